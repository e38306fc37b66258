package scorer

import "math"

// Two rating scales coexist and must never mix: the four-band
// Excellent/Good/Fair/Poor scale for compliance scores, and the five-band
// A-F letter scale for sales effectiveness. Each has its own table here and
// nothing else in the repo maps numbers to categories.

// RatingForScore maps a 0-100 compliance score to the four-band quality
// scale. The same table applies at stage and call level.
func RatingForScore(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 50:
		return "Fair"
	default:
		return "Poor"
	}
}

var letterValues = map[string]float64{
	"A": 90,
	"B": 80,
	"C": 70,
	"D": 60,
	"F": 50,
}

// LetterValue returns the numeric equivalent of an A-F letter grade.
func LetterValue(grade string) (float64, bool) {
	v, ok := letterValues[grade]
	return v, ok
}

// LetterForScore maps a numeric average back to the five-band letter scale.
func LetterForScore(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func ValidGrade(grade string) bool {
	_, ok := letterValues[grade]
	return ok
}

// WeightedScore computes sum(score*weight)/sum(weight) over parallel slices,
// rounded to one decimal. Zero total weight yields 0.
func WeightedScore(scores, weights []int) float64 {
	var sum, total float64
	for i := range scores {
		w := 0
		if i < len(weights) {
			w = weights[i]
		}
		sum += float64(scores[i]) * float64(w)
		total += float64(w)
	}
	if total == 0 {
		return 0
	}
	return Round1(sum / total)
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
