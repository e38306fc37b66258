package annotate

import (
	"sort"

	"call-insights-go/internal/types"
)

// Merge applies proposed annotations onto a copy of the transcript. Existing
// annotations are never replaced: proposals append after whatever an
// utterance already carries, in proposal order. Proposals whose index falls
// outside the transcript are dropped. Returns the merged utterances, the
// number of annotations applied, and the number of distinct utterances that
// received at least one.
func Merge(utts []types.Utterance, anns []types.Annotation) ([]types.Utterance, int, int) {
	out := make([]types.Utterance, len(utts))
	for i, u := range utts {
		out[i] = u.Clone()
	}

	byIndex := make(map[int][]types.Annotation)
	for _, a := range anns {
		if a.UtteranceIndex < 0 || a.UtteranceIndex >= len(out) {
			continue
		}
		byIndex[a.UtteranceIndex] = append(byIndex[a.UtteranceIndex], a)
	}

	indices := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	applied, touched := 0, 0
	for _, i := range indices {
		out[i].Annotations = append(out[i].Annotations, byIndex[i]...)
		applied += len(byIndex[i])
		touched++
	}
	return out, applied, touched
}
