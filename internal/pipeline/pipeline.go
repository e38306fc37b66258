// Package pipeline orders the analysis steps and checkpoints each one, so a
// rerun after an interruption resumes from the last completed step instead of
// repeating capability calls.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"call-insights-go/internal/annotate"
	"call-insights-go/internal/checkpoint"
	"call-insights-go/internal/config"
	"call-insights-go/internal/labeler"
	"call-insights-go/internal/llm"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/scorer"
	"call-insights-go/internal/stages"
	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/transcript"
	"call-insights-go/internal/types"
)

// Checkpoint step names. Renaming one orphans existing caches for that step.
const (
	stepSpeakerRoles   = "speaker_roles"
	stepLabels         = "labels"
	stepStageSummaries = "stage_summaries"
	stepStageAnalysis  = "stage_analysis"
	stepCallType       = "call_type"
	stepAnnotations    = "annotations"
	stepSalesInsights  = "sales_insights"
	stepSummary        = "summary"
)

type Pipeline struct {
	cfg      *config.Config
	tax      taxonomy.Taxonomy
	client   llm.Client
	store    checkpoint.Store
	log      *logrus.Entry
	runID    string
	labeler  *labeler.Labeler
	scorer   *scorer.Scorer
	producer *annotate.Producer
	degraded []string
}

func New(cfg *config.Config, tax taxonomy.Taxonomy, client llm.Client, store checkpoint.Store, log *logger.Logger) *Pipeline {
	runID := uuid.NewString()
	entry := log.WithRun(runID)
	return &Pipeline{
		cfg:      cfg,
		tax:      tax,
		client:   client,
		store:    store,
		log:      entry,
		runID:    runID,
		labeler:  labeler.New(client, cfg.Pipeline, tax, entry),
		scorer:   scorer.New(client, cfg.Pipeline, entry),
		producer: annotate.New(client, tax, entry),
	}
}

// Run analyzes a parsed transcript end to end and assembles the call
// assessment. Steps that degrade keep their fallback output and are listed in
// the assessment; only context cancellation aborts the run.
func (p *Pipeline) Run(ctx context.Context, utts []types.Utterance) (*types.CallAssessment, error) {
	if len(utts) == 0 {
		return nil, fmt.Errorf("no utterances to analyze")
	}
	start := time.Now()
	p.degraded = nil
	p.log.WithFields(logrus.Fields{"utterances": len(utts), "model": p.client.Model()}).Info("analysis starting")

	roles, err := runStep(ctx, p, stepSpeakerRoles, func(ctx context.Context) (types.SpeakerRoles, error) {
		return p.labeler.ResolveSpeakerRoles(ctx, utts)
	})
	if err != nil {
		return nil, err
	}

	labeled, err := runStep(ctx, p, stepLabels, func(ctx context.Context) ([]types.Utterance, error) {
		return p.labeler.Label(ctx, utts)
	})
	if err != nil {
		return nil, err
	}

	summaries, err := runStep(ctx, p, stepStageSummaries, func(context.Context) (map[string]types.StageSummary, error) {
		return stages.Summarize(labeled, p.tax), nil
	})
	if err != nil {
		return nil, err
	}

	analyses, err := runStep(ctx, p, stepStageAnalysis, func(ctx context.Context) (map[string]types.StageAnalysis, error) {
		return p.scorer.EvaluateAll(ctx, p.tax, summaries, labeled)
	})
	if err != nil {
		return nil, err
	}

	callType, err := runStep(ctx, p, stepCallType, func(ctx context.Context) (string, error) {
		return p.producer.IdentifyCallType(ctx, labeled)
	})
	if err != nil {
		return nil, err
	}

	anns, err := runStep(ctx, p, stepAnnotations, func(ctx context.Context) ([]types.Annotation, error) {
		return p.producer.ProposeAnnotations(ctx, labeled, summaries)
	})
	if err != nil {
		return nil, err
	}

	insights, err := runStep(ctx, p, stepSalesInsights, func(ctx context.Context) (*types.SalesInsights, error) {
		return p.producer.ExtractSalesInsights(ctx, labeled, analyses)
	})
	if err != nil {
		return nil, err
	}

	summary, err := runStep(ctx, p, stepSummary, func(ctx context.Context) (string, error) {
		return p.producer.Summarize(ctx, labeled, callType)
	})
	if err != nil {
		return nil, err
	}

	merged, applied, touched := annotate.Merge(labeled, anns)
	p.log.WithFields(logrus.Fields{"applied": applied, "utterances_touched": touched}).Info("annotations merged")

	overall := scorer.Overall(analyses)
	overall = scorer.FoldDimensions(overall, analyses, insights)

	assessment := &types.CallAssessment{
		RunID:          p.runID,
		GeneratedAt:    time.Now().UTC(),
		CallType:       callType,
		SpeakerRoles:   roles,
		Summary:        summary,
		Utterances:     merged,
		StageSummaries: summaries,
		StageAnalyses:  analyses,
		Overall:        overall,
		SalesInsights:  insights,
		TalkMetrics:    transcript.Metrics(merged, roles),
		DurationMs:     time.Since(start).Milliseconds(),
		Degraded:       append([]string(nil), p.degraded...),
	}
	p.log.WithFields(logrus.Fields{
		"score":            overall.Score,
		"rating":           overall.Rating,
		"stages_evaluated": overall.StagesEvaluated,
		"degraded_steps":   len(p.degraded),
		"duration_ms":      assessment.DurationMs,
	}).Info("analysis complete")
	return assessment, nil
}

// ClearCheckpoints drops the saved steps for this store's scope. Call it only
// after the final assessment has been written somewhere durable.
func (p *Pipeline) ClearCheckpoints(ctx context.Context) error {
	return p.store.ClearAll(ctx)
}

// runStep returns the checkpointed value for a step when one exists,
// otherwise computes and saves it. A degraded compute keeps its fallback
// value but is not saved, so the next run retries the step. Context
// cancellation aborts without saving.
func runStep[T any](ctx context.Context, p *Pipeline, step string, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	log := p.log.WithField("step", step)

	if payload, err := p.store.Load(ctx, step); err == nil {
		var v T
		if uerr := json.Unmarshal(payload, &v); uerr == nil {
			log.Info("restored from checkpoint")
			return v, nil
		} else {
			log.WithError(uerr).Warn("corrupt checkpoint ignored")
		}
	} else if !errors.Is(err, checkpoint.ErrNotFound) {
		log.WithError(err).Warn("checkpoint load failed; recomputing")
	}

	started := time.Now()
	v, err := compute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return v, ctx.Err()
		}
		p.degraded = append(p.degraded, step)
		log.WithError(err).Warn("step degraded; fallback kept, not checkpointed")
		return v, nil
	}

	payload, merr := json.MarshalIndent(v, "", "  ")
	if merr != nil {
		log.WithError(merr).Warn("checkpoint marshal failed; step not saved")
	} else if serr := p.store.Save(ctx, step, payload); serr != nil {
		log.WithError(serr).Warn("checkpoint save failed")
	}
	log.WithField("duration_ms", time.Since(started).Milliseconds()).Info("step complete")
	return v, nil
}
