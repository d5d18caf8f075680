package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Ensure MockFilingStore implements FilingStore
var _ driven.FilingStore = (*MockFilingStore)(nil)

// MockFilingStore is a mock implementation of FilingStore for testing
type MockFilingStore struct {
	mu          sync.RWMutex
	filings     map[string]*domain.Filing
	byAccession map[string]*domain.Filing
}

// NewMockFilingStore creates a new MockFilingStore
func NewMockFilingStore() *MockFilingStore {
	return &MockFilingStore{
		filings:     make(map[string]*domain.Filing),
		byAccession: make(map[string]*domain.Filing),
	}
}

func (m *MockFilingStore) Save(ctx context.Context, filing *domain.Filing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *filing
	m.filings[filing.ID] = &cp
	if filing.AccessionNo != "" {
		m.byAccession[filing.AccessionNo] = &cp
	}
	return nil
}

func (m *MockFilingStore) Get(ctx context.Context, id string) (*domain.Filing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	filing, ok := m.filings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *filing
	return &cp, nil
}

func (m *MockFilingStore) GetByAccession(ctx context.Context, accessionNo string) (*domain.Filing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	filing, ok := m.byAccession[accessionNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *filing
	return &cp, nil
}

func (m *MockFilingStore) ListByCompany(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Filing
	for _, f := range m.sorted() {
		if f.Ticker == ticker {
			out = append(out, f)
		}
	}
	return paginate(out, limit, offset), nil
}

func (m *MockFilingStore) List(ctx context.Context, limit, offset int) ([]*domain.Filing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.sorted(), limit, offset), nil
}

func (m *MockFilingStore) UpdateStatus(ctx context.Context, id string, status domain.FilingStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	filing, ok := m.filings[id]
	if !ok {
		return domain.ErrNotFound
	}
	filing.Status = status
	filing.Error = errMsg
	return nil
}

func (m *MockFilingStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	filing, ok := m.filings[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byAccession, filing.AccessionNo)
	delete(m.filings, id)
	return nil
}

func (m *MockFilingStore) DeleteByCompany(ctx context.Context, ticker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.filings {
		if f.Ticker == ticker {
			delete(m.byAccession, f.AccessionNo)
			delete(m.filings, id)
		}
	}
	return nil
}

func (m *MockFilingStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filings), nil
}

func (m *MockFilingStore) CountByCompany(ctx context.Context, ticker string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, f := range m.filings {
		if f.Ticker == ticker {
			n++
		}
	}
	return n, nil
}

func (m *MockFilingStore) sorted() []*domain.Filing {
	out := make([]*domain.Filing, 0, len(m.filings))
	for _, f := range m.filings {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
