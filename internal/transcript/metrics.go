package transcript

import "call-insights-go/internal/types"

// Metrics derives conversation statistics locally, with no external calls.
// Talk ratios are shares of total spoken time; speech from speakers with an
// unknown role counts toward the total but neither ratio. Silence is the sum
// of positive gaps between consecutive utterances; an utterance starting
// before its predecessor ends counts as an interruption.
func Metrics(utts []types.Utterance, roles types.SpeakerRoles) types.TalkMetrics {
	var m types.TalkMetrics
	if len(utts) == 0 {
		return m
	}

	var total, customer, technician float64
	for i, u := range utts {
		d := u.End - u.Start
		total += d
		switch roles.Role(u.Speaker) {
		case types.RoleCustomer:
			customer += d
		case types.RoleTechnician:
			technician += d
		}
		if i > 0 {
			gap := u.Start - utts[i-1].End
			if gap > 0 {
				m.SilenceSeconds += gap
			} else if gap < 0 {
				m.InterruptionCount++
			}
		}
	}
	if total > 0 {
		m.CustomerTalkRatio = customer / total
		m.TechnicianTalkRatio = technician / total
	}
	return m
}
