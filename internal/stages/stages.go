// Package stages folds per-utterance stage tags into per-stage groupings.
package stages

import (
	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/types"
)

// Summarize builds one StageSummary per taxonomy key from the labeled
// utterance stream. Inserts are idempotent, so an utterance tagged twice for
// the same stage is counted once; time bounds grow to the union of member
// spans. A stage no utterance references stays absent with nil bounds, which
// is a valid terminal state.
func Summarize(utts []types.Utterance, tax taxonomy.Taxonomy) map[string]types.StageSummary {
	summaries := make(map[string]types.StageSummary, len(tax.Stages))
	members := make(map[string]map[int]bool, len(tax.Stages))
	for _, key := range tax.Keys() {
		summaries[key] = types.StageSummary{
			StageKey:         key,
			UtteranceIndices: []int{},
			Status:           types.StageAbsent,
		}
		members[key] = map[int]bool{}
	}

	for _, u := range utts {
		for _, tag := range u.StageTags {
			s, ok := summaries[tag]
			if !ok {
				// not a taxonomy key; the labeler already warned
				continue
			}
			if members[tag][u.Index] {
				continue
			}
			members[tag][u.Index] = true
			s.UtteranceIndices = append(s.UtteranceIndices, u.Index)
			s.Status = types.StagePresent
			if s.StartTime == nil || u.Start < *s.StartTime {
				start := u.Start
				s.StartTime = &start
			}
			if s.EndTime == nil || u.End > *s.EndTime {
				end := u.End
				s.EndTime = &end
			}
			summaries[tag] = s
		}
	}

	for key, s := range summaries {
		s.UtteranceCount = len(s.UtteranceIndices)
		summaries[key] = s
	}
	return summaries
}
