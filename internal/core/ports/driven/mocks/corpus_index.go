package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Ensure MockCorpusIndex implements CorpusIndex
var _ driven.CorpusIndex = (*MockCorpusIndex)(nil)

// MockCorpusIndex is an in-memory CorpusIndex for testing. It applies
// the request's metadata filters exactly and scores by term overlap,
// with per-chunk score overrides for deterministic ranking tests.
type MockCorpusIndex struct {
	mu          sync.RWMutex
	chunks      map[string]*domain.Chunk
	scores      map[string]float64 // chunk ID -> fixed score
	failNext    error
	searchDelay time.Duration
	searchCalls int
}

// NewMockCorpusIndex creates a new MockCorpusIndex
func NewMockCorpusIndex() *MockCorpusIndex {
	return &MockCorpusIndex{
		chunks: make(map[string]*domain.Chunk),
		scores: make(map[string]float64),
	}
}

func (m *MockCorpusIndex) Index(ctx context.Context, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

func (m *MockCorpusIndex) Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	m.searchCalls++
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		m.mu.Unlock()
		return nil, err
	}
	delay := m.searchDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []domain.ScoredChunk
	for _, chunk := range m.chunks {
		if !m.matches(chunk, req) {
			continue
		}
		score := m.score(chunk, req.Text)
		if score <= 0 {
			continue
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: score})
	}

	// Order by score descending, chunk ID ascending for determinism
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Score > results[i].Score ||
				(results[j].Score == results[i].Score && results[j].Chunk.ID < results[i].Chunk.ID) {
				results[i], results[j] = results[j], results[i]
			}
		}
	}

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

func (m *MockCorpusIndex) matches(chunk *domain.Chunk, req domain.RetrievalRequest) bool {
	if req.Company != "" && chunk.Ticker != req.Company {
		return false
	}
	if req.FilingType != "" && chunk.FilingType != req.FilingType {
		return false
	}
	if req.Section != "" && chunk.Section != req.Section {
		return false
	}
	if !req.Years.Contains(chunk.FiscalYear) {
		return false
	}
	return true
}

func (m *MockCorpusIndex) score(chunk *domain.Chunk, query string) float64 {
	if s, ok := m.scores[chunk.ID]; ok {
		return s
	}
	if query == "" {
		return 0.5
	}
	text := strings.ToLower(chunk.Text)
	var matched, total int
	for _, term := range strings.Fields(strings.ToLower(query)) {
		total++
		if strings.Contains(text, term) {
			matched++
		}
	}
	if total == 0 {
		return 0.5
	}
	if matched == 0 {
		return 0
	}
	return 0.3 + 0.7*float64(matched)/float64(total)
}

func (m *MockCorpusIndex) Delete(ctx context.Context, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range chunkIDs {
		delete(m.chunks, id)
	}
	return nil
}

func (m *MockCorpusIndex) DeleteByFiling(ctx context.Context, filingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, chunk := range m.chunks {
		if chunk.FilingID == filingID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *MockCorpusIndex) DeleteByCompany(ctx context.Context, ticker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, chunk := range m.chunks {
		if chunk.Ticker == ticker {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *MockCorpusIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// Helper methods for testing

// SetScore fixes the score returned for a chunk regardless of query text
func (m *MockCorpusIndex) SetScore(chunkID string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[chunkID] = score
}

// SetFailNext makes the next Search call return err
func (m *MockCorpusIndex) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// SetSearchDelay delays every Search call (for timeout tests)
func (m *MockCorpusIndex) SetSearchDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchDelay = d
}

// SearchCalls returns how many Search calls were made
func (m *MockCorpusIndex) SearchCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchCalls
}

// Count returns the number of indexed chunks
func (m *MockCorpusIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Reset clears all indexed chunks and knobs
func (m *MockCorpusIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[string]*domain.Chunk)
	m.scores = make(map[string]float64)
	m.failNext = nil
	m.searchDelay = 0
	m.searchCalls = 0
}
