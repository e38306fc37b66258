// Package annotate produces utterance-level coaching annotations and the
// call-level capability extractions that sit outside the compliance rubric:
// call type, sales insights, and the call summary.
package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/llm"
	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/transcript"
	"call-insights-go/internal/types"
)

type annotationRecord struct {
	UtteranceIndex    int    `json:"utterance_index"`
	Type              string `json:"type"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Severity          string `json:"severity"`
	Recommendation    string `json:"recommendation"`
	RelatedQuestionID string `json:"related_question_id"`
	Impact            string `json:"impact"`
}

type annotationBatch struct {
	Annotations []annotationRecord `json:"annotations"`
}

type callTypeResult struct {
	CallType  string `json:"call_type"`
	Reasoning string `json:"reasoning"`
}

type dimensionRecord struct {
	Name  string `json:"name"`
	Grade string `json:"grade"`
	Notes string `json:"notes"`
}

type salesResult struct {
	EffectivenessGrade    string            `json:"effectiveness_grade"`
	Dimensions            []dimensionRecord `json:"dimensions"`
	OpportunitiesCaptured []string          `json:"opportunities_captured"`
	OpportunitiesMissed   []string          `json:"opportunities_missed"`
	BuyingSignals         []string          `json:"buying_signals"`
}

type summaryResult struct {
	Summary string `json:"summary"`
}

const annotationSystem = `You annotate service-call transcripts with coaching notes for the stage presented.
Annotation types: success (done well), partial (attempted but incomplete), warning (done poorly or skipped), info (notable context), opportunity (sales opening captured or missed), customer_signal (buying or objection cue from the customer).
Severity is high, medium or low. Each annotation names the utterance it belongs to by utterance_index; only annotate utterances shown to you. Follow the stage guidance.`

const callTypeSystem = `You classify completed service calls. Pick the single best call_type from: repair_call, maintenance_visit, installation, emergency_service, follow_up, warranty_service, other.
Base the choice on what the technician actually does and discusses across the whole call, not on isolated keywords.`

const salesSystem = `You assess the sales effectiveness of a completed service call.
Grade each dimension A to F, using these dimension names: rapport_building (connection with the customer), needs_discovery (surfacing customer needs), solution_presentation (clarity of work and options), objection_handling (responses to hesitation or pushback), closing_effectiveness (securing next steps and commitments).
List concrete opportunities the technician captured, opportunities missed, and customer buying signals. effectiveness_grade is the overall letter.`

const summarySystem = `You summarize service calls for a manager skimming many of them.
Write two to four sentences: why the customer called, what the technician did, how the call ended. Mention concrete outcomes such as fixed, quoted, or scheduled follow-up when present.`

type Producer struct {
	client llm.Client
	tax    taxonomy.Taxonomy
	log    *logrus.Entry
}

func New(client llm.Client, tax taxonomy.Taxonomy, log *logrus.Entry) *Producer {
	return &Producer{
		client: client,
		tax:    tax,
		log:    log.WithField("component", "annotate"),
	}
}

// ProposeAnnotations runs one annotation pass per present stage, in taxonomy
// order, and concatenates the vetted results. A stage whose pass fails is
// skipped and the first such failure is reported alongside whatever the other
// stages produced.
func (p *Producer) ProposeAnnotations(ctx context.Context, utts []types.Utterance, summaries map[string]types.StageSummary) ([]types.Annotation, error) {
	schema := llm.GenerateSchema[annotationBatch]()
	var anns []types.Annotation
	var firstErr error
	for _, stage := range p.tax.Stages {
		sum, ok := summaries[stage.Key]
		if !ok || sum.Status != types.StagePresent || len(sum.UtteranceIndices) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return anns, err
		}

		stageLog := p.log.WithField("stage", stage.Key)
		raw, err := p.client.Complete(ctx, llm.Request{
			System:     annotationSystem,
			User:       renderAnnotationPrompt(stage, sum, utts),
			SchemaName: "stage_annotations",
			Schema:     schema,
		})
		if err != nil {
			if ctx.Err() != nil {
				return anns, ctx.Err()
			}
			stageLog.WithError(err).Warn("annotation pass failed; stage skipped")
			if firstErr == nil {
				firstErr = fmt.Errorf("annotate %s: %w", stage.Key, err)
			}
			continue
		}
		batch, err := llm.Decode[annotationBatch](raw)
		if err != nil {
			stageLog.WithError(err).Warn("unparseable annotation batch; stage skipped")
			if firstErr == nil {
				firstErr = fmt.Errorf("annotate %s: %w", stage.Key, err)
			}
			continue
		}
		anns = append(anns, p.vet(stage, batch.Annotations, stageLog)...)
	}
	return anns, firstErr
}

// vet drops records with unknown types or empty titles, coerces invalid
// severities to low, and clears question references that do not belong to the
// stage rubric.
func (p *Producer) vet(stage taxonomy.Stage, recs []annotationRecord, log *logrus.Entry) []types.Annotation {
	out := make([]types.Annotation, 0, len(recs))
	for _, rec := range recs {
		if !types.ValidAnnotationType(rec.Type) {
			log.WithFields(logrus.Fields{"index": rec.UtteranceIndex, "type": rec.Type}).Warn("unknown annotation type dropped")
			continue
		}
		if strings.TrimSpace(rec.Title) == "" {
			log.WithField("index", rec.UtteranceIndex).Warn("untitled annotation dropped")
			continue
		}
		sev := rec.Severity
		if !types.ValidSeverity(sev) {
			sev = types.SeverityLow
		}
		qid := rec.RelatedQuestionID
		if qid != "" && !stageHasQuestion(stage, qid) {
			log.WithFields(logrus.Fields{"index": rec.UtteranceIndex, "question": qid}).Warn("annotation references unknown question; reference cleared")
			qid = ""
		}
		out = append(out, types.Annotation{
			UtteranceIndex:    rec.UtteranceIndex,
			Type:              rec.Type,
			Title:             strings.TrimSpace(rec.Title),
			Description:       rec.Description,
			Severity:          sev,
			Recommendation:    rec.Recommendation,
			RelatedQuestionID: qid,
			Impact:            rec.Impact,
		})
	}
	return out
}

// IdentifyCallType classifies the call. On failure the fallback is "other",
// returned with the error so the caller can mark the step degraded.
func (p *Producer) IdentifyCallType(ctx context.Context, utts []types.Utterance) (string, error) {
	raw, err := p.client.Complete(ctx, llm.Request{
		System:     callTypeSystem,
		User:       transcript.Render(utts),
		SchemaName: "call_type",
		Schema:     llm.GenerateSchema[callTypeResult](),
	})
	if err != nil {
		return types.CallTypeOther, fmt.Errorf("identify call type: %w", err)
	}
	res, err := llm.Decode[callTypeResult](raw)
	if err != nil {
		return types.CallTypeOther, fmt.Errorf("identify call type: %w", err)
	}
	ct := types.NormalizeCallType(res.CallType)
	if res.CallType != "" && ct != res.CallType {
		p.log.WithField("call_type", res.CallType).Warn("unrecognized call type; using other")
	}
	return ct, nil
}

// ExtractSalesInsights grades the sales dimensions of the call. Dimensions
// with grades outside A-F are dropped; when neither the overall grade nor any
// dimension survives, the extraction counts as failed.
func (p *Producer) ExtractSalesInsights(ctx context.Context, utts []types.Utterance, analyses map[string]types.StageAnalysis) (*types.SalesInsights, error) {
	raw, err := p.client.Complete(ctx, llm.Request{
		System:     salesSystem,
		User:       p.renderSalesPrompt(utts, analyses),
		SchemaName: "sales_insights",
		Schema:     llm.GenerateSchema[salesResult](),
	})
	if err != nil {
		return nil, fmt.Errorf("sales insights: %w", err)
	}
	res, err := llm.Decode[salesResult](raw)
	if err != nil {
		return nil, fmt.Errorf("sales insights: %w", err)
	}

	ins := &types.SalesInsights{
		OpportunitiesCaptured: res.OpportunitiesCaptured,
		OpportunitiesMissed:   res.OpportunitiesMissed,
		BuyingSignals:         res.BuyingSignals,
	}
	for _, d := range res.Dimensions {
		g := normalizeGrade(d.Grade)
		if g == "" {
			p.log.WithFields(logrus.Fields{"dimension": d.Name, "grade": d.Grade}).Warn("dimension with invalid grade dropped")
			continue
		}
		ins.Dimensions = append(ins.Dimensions, types.DimensionGrade{Name: d.Name, Grade: g, Notes: d.Notes})
	}
	ins.EffectivenessGrade = normalizeGrade(res.EffectivenessGrade)
	if ins.EffectivenessGrade == "" && len(ins.Dimensions) == 0 {
		return nil, fmt.Errorf("sales insights carried no usable grades")
	}
	return ins, nil
}

// Summarize writes the short narrative summary of the call.
func (p *Producer) Summarize(ctx context.Context, utts []types.Utterance, callType string) (string, error) {
	raw, err := p.client.Complete(ctx, llm.Request{
		System:     summarySystem,
		User:       fmt.Sprintf("CALL TYPE: %s\n\nTRANSCRIPT:\n%s", callType, transcript.Render(utts)),
		SchemaName: "call_summary",
		Schema:     llm.GenerateSchema[summaryResult](),
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	res, err := llm.Decode[summaryResult](raw)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(res.Summary), nil
}

func renderAnnotationPrompt(stage taxonomy.Stage, sum types.StageSummary, utts []types.Utterance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "STAGE: %s\n%s\n", stage.Name, stage.Description)
	if stage.AnnotationGuidance != "" {
		fmt.Fprintf(&b, "\nGUIDANCE:\n%s\n", stage.AnnotationGuidance)
	}
	b.WriteString("\nSTAGE UTTERANCES:\n")
	for _, i := range sum.UtteranceIndices {
		if i < 0 || i >= len(utts) {
			continue
		}
		u := utts[i]
		fmt.Fprintf(&b, "[%d] [%.2fs - %.2fs] %s: %s\n", u.Index, u.Start, u.End, u.Speaker, u.Text)
	}
	return b.String()
}

func (p *Producer) renderSalesPrompt(utts []types.Utterance, analyses map[string]types.StageAnalysis) string {
	var b strings.Builder
	b.WriteString("STAGE COMPLIANCE:\n")
	for _, s := range p.tax.Stages {
		a, ok := analyses[s.Key]
		if !ok {
			continue
		}
		if a.Status == types.StagePresent {
			fmt.Fprintf(&b, "- %s: %.1f (%s)\n", s.Name, a.ComplianceScore, a.OverallCompliance)
		} else {
			fmt.Fprintf(&b, "- %s: missing\n", s.Name)
		}
	}
	b.WriteString("\nTRANSCRIPT:\n")
	b.WriteString(transcript.Render(utts))
	return b.String()
}

func stageHasQuestion(stage taxonomy.Stage, id string) bool {
	for _, q := range stage.Rubric {
		if q.ID == id {
			return true
		}
	}
	return false
}

func normalizeGrade(g string) string {
	g = strings.ToUpper(strings.TrimSpace(g))
	switch g {
	case "A", "B", "C", "D", "F":
		return g
	}
	return ""
}
