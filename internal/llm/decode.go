package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed marks a capability response that did not survive strict
// decoding. Callers substitute their default "unparseable" result and keep
// the pipeline alive.
var ErrMalformed = errors.New("malformed capability response")

var fencePrefixes = []string{"```json", "```yaml", "```text", "```", "`json", "`"}

// Normalize is the single normalization step applied to every raw response
// before validation: trim markdown fences, then extract the first balanced
// JSON value so prose around the payload is ignored.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for _, p := range fencePrefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSuffix(s, "`")
	return extractJSON(strings.TrimSpace(s))
}

// Decode normalizes raw and strictly unmarshals it into T. Unknown fields
// are rejected; any failure is reported as ErrMalformed.
func Decode[T any](raw string) (T, error) {
	var out T
	dec := json.NewDecoder(strings.NewReader(Normalize(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// extractJSON returns the first balanced {...} or [...] region of s, or s
// unchanged when no balanced region exists (the decoder will then fail and
// report malformed).
func extractJSON(s string) string {
	start := -1
	var open, clo byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				clo = '}'
			} else {
				clo = ']'
			}
			break
		}
	}
	if start < 0 {
		return s
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case clo:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}
