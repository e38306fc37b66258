package checkpoint

import (
	"context"
	"sync"
)

// Memory is the in-process store for tests and one-shot runs that should not
// leave cache files behind.
type Memory struct {
	mu    sync.Mutex
	steps map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{steps: make(map[string][]byte)}
}

func (s *Memory) Save(_ context.Context, step string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.steps[step] = cp
	return nil
}

func (s *Memory) Load(_ context.Context, step string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.steps[step]
	if !ok {
		return nil, ErrNotFound
	}
	return payload, nil
}

func (s *Memory) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = make(map[string][]byte)
	return nil
}
