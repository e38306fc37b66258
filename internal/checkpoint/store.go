// Package checkpoint persists intermediate pipeline results so an
// interrupted analysis resumes where it stopped instead of repaying completed
// capability calls.
package checkpoint

import (
	"context"
	"errors"
)

// ErrNotFound reports that a step has no saved checkpoint. Callers treat
// every other load failure as a miss too; the sentinel just makes the
// expected case cheap to recognize.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists step payloads for one analysis scope. A single run uses its
// store sequentially; implementations only need to isolate separate scopes
// from each other.
type Store interface {
	Save(ctx context.Context, step string, payload []byte) error
	Load(ctx context.Context, step string) ([]byte, error)
	ClearAll(ctx context.Context) error
}
