package labeler

import (
	"context"
	"fmt"

	"call-insights-go/internal/llm"
	"call-insights-go/internal/transcript"
	"call-insights-go/internal/types"
)

type rolesResult struct {
	Roles map[string]string `json:"roles"`
}

const speakerSystem = "Identify which diarization speaker is the service technician and which is the customer. " +
	"Respond with a roles object mapping each speaker identifier to \"technician\", \"customer\" or \"unknown\"."

// ResolveSpeakerRoles runs the one-shot speaker-role probe over a short
// transcript prefix; the mapping is immutable for the rest of the run. The
// returned mapping is always usable; a non-nil error only explains why the
// positional fallback was used instead of the probe result.
func (l *Labeler) ResolveSpeakerRoles(ctx context.Context, utts []types.Utterance) (types.SpeakerRoles, error) {
	log := l.log.WithField("step", "speaker_roles")

	raw, err := l.client.Complete(ctx, llm.Request{
		System:     speakerSystem,
		User:       transcript.RenderPrefix(utts, l.cfg.SpeakerProbeUtterances, 2000),
		SchemaName: "speaker_roles",
		Schema:     llm.GenerateSchema[rolesResult](),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("speaker probe failed; using positional fallback")
		return fallbackRoles(utts), fmt.Errorf("speaker probe: %w", err)
	}
	res, err := llm.Decode[rolesResult](raw)
	if err != nil {
		log.WithError(err).Warn("unparseable speaker probe; using positional fallback")
		return fallbackRoles(utts), fmt.Errorf("speaker probe: %w", err)
	}

	present := make(map[string]bool, 4)
	for _, u := range utts {
		present[u.Speaker] = true
	}
	roles := types.SpeakerRoles{}
	for spk, role := range res.Roles {
		if !present[spk] {
			log.WithField("speaker", spk).Warn("probe named a speaker not in the transcript; ignored")
			continue
		}
		switch role {
		case types.RoleTechnician, types.RoleCustomer:
			roles[spk] = role
		default:
			roles[spk] = types.RoleUnknown
		}
	}
	if len(roles) == 0 {
		log.Warn("speaker probe returned no usable mapping; using positional fallback")
		return fallbackRoles(utts), fmt.Errorf("speaker probe: empty mapping")
	}
	return roles, nil
}

// fallbackRoles guesses positionally: the first distinct speaker opened the
// call and is taken as the customer, the second as the technician.
func fallbackRoles(utts []types.Utterance) types.SpeakerRoles {
	roles := types.SpeakerRoles{}
	var order []string
	for _, u := range utts {
		if _, ok := roles[u.Speaker]; !ok {
			roles[u.Speaker] = types.RoleUnknown
			order = append(order, u.Speaker)
		}
	}
	if len(order) > 0 {
		roles[order[0]] = types.RoleCustomer
	}
	if len(order) > 1 {
		roles[order[1]] = types.RoleTechnician
	}
	return roles
}
