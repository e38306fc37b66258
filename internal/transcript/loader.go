// Package transcript consumes the upstream diarization output: an ordered
// list of speaker-tagged, timestamped text segments. Loading is the one
// fatal path in the system; everything downstream degrades instead.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"call-insights-go/internal/types"
)

type record struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

type envelope struct {
	Utterances []record `json:"utterances"`
}

// LoadFile reads a diarized transcript JSON file. Both a bare array of
// records and the {"utterances": [...]} wrapper are accepted.
func LoadFile(path string) ([]types.Utterance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	utts, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", path, err)
	}
	return utts, nil
}

// Parse decodes and validates the utterance stream. Indices are assigned by
// position; sequence order is temporal order.
func Parse(data []byte) ([]types.Utterance, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Utterances == nil {
		var bare []record
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		env.Utterances = bare
	}
	if len(env.Utterances) == 0 {
		return nil, fmt.Errorf("no utterances")
	}

	utts := make([]types.Utterance, len(env.Utterances))
	for i, r := range env.Utterances {
		if r.End < r.Start {
			return nil, fmt.Errorf("utterance %d: end %.2f before start %.2f", i, r.End, r.Start)
		}
		conf := r.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		utts[i] = types.Utterance{
			Index:      i,
			Speaker:    r.Speaker,
			Text:       r.Text,
			Start:      r.Start,
			End:        r.End,
			Confidence: conf,
		}
	}
	return utts, nil
}

// Render produces the raw full-text view used by one-shot probes.
func Render(utts []types.Utterance) string {
	var b strings.Builder
	for _, u := range utts {
		fmt.Fprintf(&b, "%s: %s\n", u.Speaker, u.Text)
	}
	return b.String()
}

// RenderPrefix renders at most n leading utterances, clipped to maxChars so
// probe input stays small regardless of utterance length.
func RenderPrefix(utts []types.Utterance, n, maxChars int) string {
	if n > len(utts) {
		n = len(utts)
	}
	s := Render(utts[:n])
	if maxChars > 0 && len(s) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
