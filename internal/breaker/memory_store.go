package breaker

import (
	"context"
	"sync"
)

// MemoryStore keeps circuits in process memory. It is used when Redis is not configured
// and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.states[key], nil
}

func (m *MemoryStore) Update(_ context.Context, key string, fn func(*State) error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.states[key]
	if err := fn(&s); err != nil {
		return m.states[key], err
	}

	m.states[key] = s

	return s, nil
}
