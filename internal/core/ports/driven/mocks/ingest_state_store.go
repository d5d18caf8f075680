package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Ensure MockIngestStateStore implements IngestStateStore
var _ driven.IngestStateStore = (*MockIngestStateStore)(nil)

// MockIngestStateStore is a mock implementation of IngestStateStore for testing
type MockIngestStateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.IngestState
}

// NewMockIngestStateStore creates a new MockIngestStateStore
func NewMockIngestStateStore() *MockIngestStateStore {
	return &MockIngestStateStore{
		states: make(map[string]*domain.IngestState),
	}
}

func (m *MockIngestStateStore) Save(ctx context.Context, state *domain.IngestState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[state.Ticker] = &cp
	return nil
}

func (m *MockIngestStateStore) Get(ctx context.Context, ticker string) (*domain.IngestState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[ticker]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *state
	return &cp, nil
}

func (m *MockIngestStateStore) List(ctx context.Context) ([]*domain.IngestState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.IngestState, 0, len(m.states))
	for _, state := range m.states {
		cp := *state
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (m *MockIngestStateStore) Delete(ctx context.Context, ticker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, ticker)
	return nil
}

func (m *MockIngestStateStore) UpdateStatus(ctx context.Context, ticker string, status domain.IngestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[ticker]
	if !ok {
		return domain.ErrNotFound
	}
	state.Status = status
	return nil
}
