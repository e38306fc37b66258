// Package labeler assigns stage tags to every utterance by sliding an
// overlapping context window over the transcript and classifying targets in
// batches. Label coverage is fail-soft: a batch the capability cannot serve
// leaves its targets untagged and the run continues.
package labeler

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/config"
	"call-insights-go/internal/llm"
	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/types"
)

type labelRecord struct {
	Index        int      `json:"index"`
	PrimaryStage string   `json:"primary_stage"`
	StageTags    []string `json:"stage_tags"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
}

type labelBatch struct {
	Labels []labelRecord `json:"labels"`
}

type Labeler struct {
	client llm.Client
	cfg    config.PipelineConfig
	tax    taxonomy.Taxonomy
	system string
	log    *logrus.Entry
}

func New(client llm.Client, cfg config.PipelineConfig, tax taxonomy.Taxonomy, log *logrus.Entry) *Labeler {
	return &Labeler{
		client: client,
		cfg:    cfg,
		tax:    tax,
		system: labelSystem(tax),
		log:    log.WithField("component", "labeler"),
	}
}

// Window returns the [lo, hi) bounds of the context window around target i
// in a sequence of n utterances, for radius r.
func Window(n, i, r int) (int, int) {
	lo := i - r
	if lo < 0 {
		lo = 0
	}
	hi := i + r + 1
	if hi > n {
		hi = n
	}
	return lo, hi
}

// Label returns a labeled copy of the utterance stream: one classification
// per utterance in index order, batched cfg.BatchSize targets at a time.
// The only error it returns is context cancellation; capability failures
// degrade to untagged targets.
func (l *Labeler) Label(ctx context.Context, utts []types.Utterance) ([]types.Utterance, error) {
	out := make([]types.Utterance, len(utts))
	for i, u := range utts {
		out[i] = u.Clone()
	}

	schema := llm.GenerateSchema[labelBatch]()
	for lo := 0; lo < len(out); lo += l.cfg.BatchSize {
		hi := lo + l.cfg.BatchSize
		if hi > len(out) {
			hi = len(out)
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		batchLog := l.log.WithFields(logrus.Fields{"batch_start": lo, "batch_end": hi})
		raw, err := l.client.Complete(ctx, llm.Request{
			System:     l.system,
			User:       l.renderBatch(utts, lo, hi),
			SchemaName: "stage_labels",
			Schema:     schema,
		})
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			batchLog.WithError(err).Warn("label batch failed; targets stay untagged")
			continue
		}
		batch, err := llm.Decode[labelBatch](raw)
		if err != nil {
			batchLog.WithError(err).Warn("unparseable label batch; targets stay untagged")
			continue
		}
		l.apply(out, lo, hi, batch.Labels, batchLog)
	}
	return out, nil
}

// apply reconciles returned labels against the batch targets. Cardinality
// mismatches are warnings, not failures: whatever subset maps to a target is
// applied, the rest of the targets keep empty stage_tags.
func (l *Labeler) apply(out []types.Utterance, lo, hi int, labels []labelRecord, log *logrus.Entry) {
	if len(labels) != hi-lo {
		log.WithFields(logrus.Fields{"expected": hi - lo, "got": len(labels)}).
			Warn("label cardinality mismatch; applying returned subset")
	}

	seen := make(map[int]bool, len(labels))
	for _, rec := range labels {
		if rec.Index < lo || rec.Index >= hi {
			log.WithField("index", rec.Index).Warn("label for non-target index dropped")
			continue
		}
		if seen[rec.Index] {
			log.WithField("index", rec.Index).Warn("duplicate label for target; last wins")
		}
		seen[rec.Index] = true

		tags := make([]string, 0, len(rec.StageTags))
		for _, t := range rec.StageTags {
			if l.tax.Contains(t) {
				tags = append(tags, t)
			} else {
				log.WithFields(logrus.Fields{"index": rec.Index, "tag": t}).Warn("unknown stage tag dropped")
			}
		}
		primary := rec.PrimaryStage
		if primary != "" && !l.tax.Contains(primary) {
			log.WithFields(logrus.Fields{"index": rec.Index, "tag": primary}).Warn("unknown primary stage dropped")
			primary = ""
		}
		if primary == "" && len(tags) > 0 {
			primary = tags[0]
		}
		if primary != "" && !containsString(tags, primary) {
			tags = append([]string{primary}, tags...)
		}

		u := &out[rec.Index]
		u.PrimaryStage = primary
		u.StageTags = tags
		u.Confidence = clamp01(rec.Confidence)
		if rec.Reasoning != "" {
			log.WithFields(logrus.Fields{"index": rec.Index, "reasoning": rec.Reasoning}).Debug("label applied")
		}
	}
}

func (l *Labeler) renderBatch(utts []types.Utterance, lo, hi int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Label the %d TARGET utterances below. Each target appears inside its context window; the line marked >> is the target.\n", hi-lo)
	for i := lo; i < hi; i++ {
		wlo, whi := Window(len(utts), i, l.cfg.WindowRadius)
		fmt.Fprintf(&b, "\nTARGET %d\n", i)
		for j := wlo; j < whi; j++ {
			marker := "  "
			if j == i {
				marker = ">>"
			}
			fmt.Fprintf(&b, "%s[%d] %s: %s\n", marker, utts[j].Index, utts[j].Speaker, utts[j].Text)
		}
	}
	return b.String()
}

func labelSystem(tax taxonomy.Taxonomy) string {
	var b strings.Builder
	b.WriteString("You label service-call utterances against a stage taxonomy. ")
	b.WriteString("An utterance may belong to several stages; primary_stage is the single dominant one and must appear in stage_tags. ")
	b.WriteString("Return exactly one label per TARGET utterance, carrying the target's index.\n\nStages:\n")
	for _, s := range tax.Stages {
		fmt.Fprintf(&b, "- %s: %s\n", s.Key, s.Description)
		if len(s.Keywords) > 0 {
			fmt.Fprintf(&b, "  cues: %s\n", strings.Join(s.Keywords, ", "))
		}
		if len(s.KeyElements) > 0 {
			fmt.Fprintf(&b, "  elements: %s\n", strings.Join(s.KeyElements, ", "))
		}
	}
	return b.String()
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
