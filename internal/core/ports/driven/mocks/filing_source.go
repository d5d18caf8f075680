package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Ensure MockFilingSource implements FilingSource
var _ driven.FilingSource = (*MockFilingSource)(nil)

// MockFilingSource serves canned filings for ingest tests
type MockFilingSource struct {
	mu        sync.RWMutex
	refs      map[string][]domain.FilingRef // ticker -> refs
	documents map[string]string             // accession -> content
	mimeTypes map[string]string             // accession -> mime type
	failNext  error
}

// NewMockFilingSource creates a new MockFilingSource
func NewMockFilingSource() *MockFilingSource {
	return &MockFilingSource{
		refs:      make(map[string][]domain.FilingRef),
		documents: make(map[string]string),
		mimeTypes: make(map[string]string),
	}
}

func (m *MockFilingSource) ListFilings(ctx context.Context, company domain.Company, filingType domain.FilingType, limit int) ([]domain.FilingRef, error) {
	m.mu.Lock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.FilingRef
	for _, ref := range m.refs[company.Ticker] {
		if ref.Type != filingType {
			continue
		}
		out = append(out, ref)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockFilingSource) FetchDocument(ctx context.Context, ref domain.FilingRef) (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.documents[ref.AccessionNo]
	if !ok {
		return "", "", domain.ErrNotFound
	}
	mimeType := m.mimeTypes[ref.AccessionNo]
	if mimeType == "" {
		mimeType = "text/html"
	}
	return content, mimeType, nil
}

func (m *MockFilingSource) Ping(ctx context.Context) error {
	return nil
}

// Helper methods for testing

// AddFiling registers a filing ref and its document content
func (m *MockFilingSource) AddFiling(ref domain.FilingRef, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[ref.Ticker] = append(m.refs[ref.Ticker], ref)
	m.documents[ref.AccessionNo] = content
}

// SetMimeType overrides the MIME type reported for an accession number
func (m *MockFilingSource) SetMimeType(accessionNo, mimeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mimeTypes[accessionNo] = mimeType
}

// SetFailNext makes the next ListFilings call return err
func (m *MockFilingSource) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}
