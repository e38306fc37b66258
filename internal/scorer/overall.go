package scorer

import (
	"sort"

	"call-insights-go/internal/types"
)

// Overall computes the call-level compliance assessment: the unweighted mean
// of present-stage scores (absent stages leave the denominator entirely),
// rated on the four-band scale. Pure function of its input; iteration order
// is fixed so repeated runs produce identical output.
func Overall(analyses map[string]types.StageAnalysis) types.OverallAssessment {
	var sum float64
	var evaluated, missing int
	for _, key := range sortedKeys(analyses) {
		a := analyses[key]
		if a.Status == types.StagePresent {
			sum += a.ComplianceScore
			evaluated++
		} else {
			missing++
		}
	}
	score := 0.0
	if evaluated > 0 {
		score = Round1(sum / float64(evaluated))
	}
	return types.OverallAssessment{
		Score:           score,
		Rating:          RatingForScore(score),
		StagesEvaluated: evaluated,
		StagesMissing:   missing,
	}
}

// FoldDimensions folds sales dimension letter grades into a call-level
// letter: present-stage scores and the letter values of each valid dimension
// grade are averaged, and the average maps back to A-F. The compliance score
// and rating stay untouched; the four-band and five-band scales never mix.
func FoldDimensions(base types.OverallAssessment, analyses map[string]types.StageAnalysis, insights *types.SalesInsights) types.OverallAssessment {
	if insights == nil {
		return base
	}
	var dimVals []float64
	for _, d := range insights.Dimensions {
		if v, ok := LetterValue(d.Grade); ok {
			dimVals = append(dimVals, v)
		}
	}
	if len(dimVals) == 0 {
		return base
	}

	vals := dimVals
	for _, key := range sortedKeys(analyses) {
		if a := analyses[key]; a.Status == types.StagePresent {
			vals = append(vals, a.ComplianceScore)
		}
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	base.Grade = LetterForScore(Round1(sum / float64(len(vals))))
	return base
}

func sortedKeys(m map[string]types.StageAnalysis) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
