package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FS stores each step as <dir>/<step>.json. The directory is created lazily
// on the first save, so a run that never checkpoints leaves nothing behind.
type FS struct {
	dir string
}

func NewFS(dir string) *FS {
	return &FS{dir: dir}
}

func (s *FS) Save(_ context.Context, step string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := os.WriteFile(s.path(step), payload, 0o644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", step, err)
	}
	return nil
}

func (s *FS) Load(_ context.Context, step string) ([]byte, error) {
	data, err := os.ReadFile(s.path(step))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", step, err)
	}
	return data, nil
}

func (s *FS) ClearAll(_ context.Context) error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear checkpoints: %w", err)
	}
	return nil
}

func (s *FS) path(step string) string {
	return filepath.Join(s.dir, step+".json")
}
