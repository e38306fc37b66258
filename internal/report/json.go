// Package report writes the assembled assessment to its output formats.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"call-insights-go/internal/types"
)

// WriteJSON writes the assessment as indented JSON, the canonical output.
func WriteJSON(path string, a *types.CallAssessment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	return nil
}
