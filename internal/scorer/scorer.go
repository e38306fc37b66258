// Package scorer evaluates each stage's utterance group against its weighted
// rubric and aggregates the results into stage and call-level grades. Absent
// stages are scored deterministically with no external call.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/config"
	"call-insights-go/internal/llm"
	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/types"
)

type questionEval struct {
	Answer      string `json:"answer"`
	Score       int    `json:"score"`
	Evidence    string `json:"evidence"`
	Explanation string `json:"explanation"`
}

const evalSystem = "You evaluate one compliance question about one stage of a service call. " +
	"Judge what is appropriate for the context rather than ticking a checklist: parties may have met " +
	"before the recording, and an answer that appears a few utterances later still counts. " +
	"Answer YES, PARTIAL or NO with an integer score from 0 to 100 and quote the supporting evidence."

type Scorer struct {
	client llm.Client
	cfg    config.PipelineConfig
	log    *logrus.Entry
}

func New(client llm.Client, cfg config.PipelineConfig, log *logrus.Entry) *Scorer {
	return &Scorer{client: client, cfg: cfg, log: log.WithField("component", "scorer")}
}

// EvaluateAll scores every taxonomy stage in order, feeding each stage the
// one-line results of the stages before it. The only error is context
// cancellation; capability failures degrade per question.
func (s *Scorer) EvaluateAll(ctx context.Context, tax taxonomy.Taxonomy, summaries map[string]types.StageSummary, utts []types.Utterance) (map[string]types.StageAnalysis, error) {
	analyses := make(map[string]types.StageAnalysis, len(tax.Stages))
	var prior strings.Builder
	for _, stage := range tax.Stages {
		a, err := s.EvaluateStage(ctx, stage, summaries[stage.Key], utts, prior.String())
		if err != nil {
			return nil, err
		}
		analyses[stage.Key] = a
		fmt.Fprintf(&prior, "%s: %s (%.1f)\n", stage.Key, a.OverallCompliance, a.ComplianceScore)
	}
	return analyses, nil
}

// EvaluateStage produces the StageAnalysis for one stage. Each rubric
// question is evaluated independently against the stage members plus
// trailing context, so content answered a few turns later is visible.
func (s *Scorer) EvaluateStage(ctx context.Context, stage taxonomy.Stage, summary types.StageSummary, utts []types.Utterance, priorSummary string) (types.StageAnalysis, error) {
	if summary.Status != types.StagePresent || len(summary.UtteranceIndices) == 0 {
		return absentAnalysis(stage), nil
	}

	members := make([]types.Utterance, 0, len(summary.UtteranceIndices))
	last := 0
	for _, idx := range summary.UtteranceIndices {
		if idx < 0 || idx >= len(utts) {
			continue
		}
		members = append(members, utts[idx])
		if idx > last {
			last = idx
		}
	}
	trailEnd := last + 1 + s.cfg.TrailingContext
	if trailEnd > len(utts) {
		trailEnd = len(utts)
	}
	trailing := utts[last+1 : trailEnd]

	stageLog := s.log.WithField("stage", stage.Key)
	schema := llm.GenerateSchema[questionEval]()
	results := make([]types.QuestionResult, 0, len(stage.Rubric))
	scores := make([]int, 0, len(stage.Rubric))
	weights := make([]int, 0, len(stage.Rubric))
	var strengths, gaps []string

	for _, q := range stage.Rubric {
		if err := ctx.Err(); err != nil {
			return types.StageAnalysis{}, err
		}
		r := s.evaluateQuestion(ctx, stage, q, members, trailing, priorSummary, schema, stageLog)
		if ctx.Err() != nil {
			return types.StageAnalysis{}, ctx.Err()
		}
		results = append(results, r)
		scores = append(scores, r.Score)
		weights = append(weights, q.Weight)
		switch r.Answer {
		case types.AnswerYes:
			strengths = append(strengths, q.Text)
		case types.AnswerNo:
			gaps = append(gaps, q.Text)
		}
	}

	score := WeightedScore(scores, weights)
	return types.StageAnalysis{
		Status:            types.StagePresent,
		Questions:         results,
		ComplianceScore:   score,
		OverallCompliance: deriveCompliance(results),
		QualityRating:     RatingForScore(score),
		KeyStrengths:      strengths,
		CriticalGaps:      gaps,
	}, nil
}

func (s *Scorer) evaluateQuestion(ctx context.Context, stage taxonomy.Stage, q taxonomy.Question, members, trailing []types.Utterance, priorSummary string, schema any, log *logrus.Entry) types.QuestionResult {
	raw, err := s.client.Complete(ctx, llm.Request{
		System:     evalSystem,
		User:       renderQuestion(stage, q, members, trailing, priorSummary),
		SchemaName: "question_eval",
		Schema:     schema,
	})
	if err != nil {
		log.WithField("question", q.ID).WithError(err).Warn("evaluation unavailable; scoring 0")
		return types.QuestionResult{ID: q.ID, Answer: types.AnswerNo, Score: 0, Explanation: "evaluation unavailable"}
	}
	eval, err := llm.Decode[questionEval](raw)
	if err != nil || !validAnswer(eval.Answer) {
		if err == nil {
			err = fmt.Errorf("%w: answer %q", llm.ErrMalformed, eval.Answer)
		}
		if errors.Is(err, llm.ErrMalformed) {
			log.WithField("question", q.ID).WithError(err).Warn("unparseable evaluation; scoring 0")
		}
		return types.QuestionResult{ID: q.ID, Answer: types.AnswerNo, Score: 0, Explanation: "could not parse evaluation response"}
	}

	score := eval.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return types.QuestionResult{
		ID:          q.ID,
		Answer:      eval.Answer,
		Score:       score,
		Evidence:    eval.Evidence,
		Explanation: eval.Explanation,
	}
}

// absentAnalysis is the deterministic result for a stage with no tagged
// utterances: non-compliant, score 0, no questions, no external call.
func absentAnalysis(stage taxonomy.Stage) types.StageAnalysis {
	return types.StageAnalysis{
		Status:            types.StageAbsent,
		Questions:         []types.QuestionResult{},
		ComplianceScore:   0,
		OverallCompliance: types.NonCompliant,
		QualityRating:     "N/A",
		CriticalGaps:      []string{stage.Name + " stage missing entirely"},
		Recommendations:   []string{"Include a proper " + stage.Name + " in future calls"},
	}
}

// deriveCompliance turns independent per-question answers into the stage
// verdict: a strict majority of YES is COMPLIANT, a strict majority of NO is
// NON-COMPLIANT, anything mixed is PARTIAL.
func deriveCompliance(results []types.QuestionResult) string {
	if len(results) == 0 {
		return types.NonCompliant
	}
	var yes, no int
	for _, r := range results {
		switch r.Answer {
		case types.AnswerYes:
			yes++
		case types.AnswerNo:
			no++
		}
	}
	half := len(results) / 2
	switch {
	case yes > half:
		return types.Compliant
	case no > half:
		return types.NonCompliant
	default:
		return types.PartiallyOK
	}
}

func validAnswer(a string) bool {
	switch a {
	case types.AnswerYes, types.AnswerPartial, types.AnswerNo:
		return true
	}
	return false
}

func renderQuestion(stage taxonomy.Stage, q taxonomy.Question, members, trailing []types.Utterance, priorSummary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "STAGE: %s\n\nSTAGE UTTERANCES:\n", stage.Name)
	writeUtterances(&b, members)
	if len(trailing) > 0 {
		b.WriteString("\nFOLLOWING CONTEXT (after the stage, for answers that arrive late):\n")
		writeUtterances(&b, trailing)
	}
	if priorSummary != "" {
		b.WriteString("\nPRIOR STAGE RESULTS:\n")
		b.WriteString(priorSummary)
	}
	fmt.Fprintf(&b, "\nQUESTION (%s): %s\nCRITERIA: %s\n", q.ID, q.Text, q.Criteria)
	return b.String()
}

func writeUtterances(b *strings.Builder, utts []types.Utterance) {
	for _, u := range utts {
		fmt.Fprintf(b, "[%d] [%.2fs - %.2fs] %s: %s\n", u.Index, u.Start, u.End, u.Speaker, u.Text)
	}
}
