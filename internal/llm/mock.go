package llm

import (
	"context"
	"sync"
)

// Mock is the deterministic capability used for tests and offline runs
// (USE_MOCK_LLM=true). Without a Respond hook it answers every request with
// an empty JSON object, which every decoder in the pipeline accepts as a
// degraded-but-valid result.
type Mock struct {
	Respond func(req Request) (string, error)

	mu    sync.Mutex
	calls int
}

func NewMock(respond func(req Request) (string, error)) *Mock {
	return &Mock{Respond: respond}
}

func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Respond != nil {
		return m.Respond(req)
	}
	return "{}", nil
}

func (m *Mock) Model() string {
	return "mock"
}

// Calls reports how many completions were requested, so resume tests can
// prove checkpoint hits skipped the external capability.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
