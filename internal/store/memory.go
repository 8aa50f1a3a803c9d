package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Alijeyrad/assessflow/internal/flow"
)

// Memory keeps flows in process. Values are stored encoded so callers never
// share state with the store.
type Memory struct {
	mu    sync.Mutex
	flows map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{flows: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, operatorID string) (*flow.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(operatorID)
}

func (m *Memory) Update(ctx context.Context, operatorID string, fn func(*flow.Flow) error) (*flow.Flow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.load(operatorID)
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode flow: %w", err)
	}
	m.flows[operatorID] = b
	return f, nil
}

func (m *Memory) Delete(_ context.Context, operatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, operatorID)
	return nil
}

func (m *Memory) load(operatorID string) (*flow.Flow, error) {
	b, ok := m.flows[operatorID]
	if !ok {
		return flow.New(), nil
	}
	f := flow.New()
	if err := json.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	return f, nil
}
