// Package memory provides an in-process CorpusIndex for development
// and single-node deployments that do not run Vespa. Scoring is a
// TF-IDF approximation over whitespace tokens; it is good enough for
// small corpora and keeps the query pipeline fully functional without
// external infrastructure.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusIndex = (*Index)(nil)

// Index is an in-memory corpus index
type Index struct {
	mu     sync.RWMutex
	chunks map[string]*entry

	// docFreq counts how many chunks contain each term
	docFreq map[string]int
}

type entry struct {
	chunk *domain.Chunk
	terms map[string]int // term -> frequency in chunk text
}

// NewIndex creates an empty in-memory corpus index
func NewIndex() *Index {
	return &Index{
		chunks:  make(map[string]*entry),
		docFreq: make(map[string]int),
	}
}

// Index adds or replaces chunks in the corpus
func (idx *Index) Index(ctx context.Context, chunks []*domain.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, chunk := range chunks {
		if old, ok := idx.chunks[chunk.ID]; ok {
			idx.removeTerms(old.terms)
		}

		terms := tokenize(chunk.Text + " " + chunk.Section)
		for term := range terms {
			idx.docFreq[term]++
		}

		cp := *chunk
		idx.chunks[chunk.ID] = &entry{chunk: &cp, terms: terms}
	}

	return nil
}

// Search runs one scoped similarity query
func (idx *Index) Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryTerms := tokenize(req.Text)
	total := len(idx.chunks)

	var results []domain.ScoredChunk
	for _, e := range idx.chunks {
		if !matches(e.chunk, req) {
			continue
		}

		score := idx.score(e, queryTerms, total)
		if score <= 0 {
			continue
		}

		results = append(results, domain.ScoredChunk{Chunk: e.chunk, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}

	return results, nil
}

// Delete removes chunks by ID
func (idx *Index) Delete(ctx context.Context, chunkIDs []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, id := range chunkIDs {
		if e, ok := idx.chunks[id]; ok {
			idx.removeTerms(e.terms)
			delete(idx.chunks, id)
		}
	}
	return nil
}

// DeleteByFiling removes all chunks for a filing
func (idx *Index) DeleteByFiling(ctx context.Context, filingID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for id, e := range idx.chunks {
		if e.chunk.FilingID == filingID {
			idx.removeTerms(e.terms)
			delete(idx.chunks, id)
		}
	}
	return nil
}

// DeleteByCompany removes all chunks for a company
func (idx *Index) DeleteByCompany(ctx context.Context, ticker string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for id, e := range idx.chunks {
		if strings.EqualFold(e.chunk.Ticker, ticker) {
			idx.removeTerms(e.terms)
			delete(idx.chunks, id)
		}
	}
	return nil
}

// HealthCheck always succeeds for the in-memory index
func (idx *Index) HealthCheck(ctx context.Context) error {
	return nil
}

// Count returns the number of indexed chunks
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// removeTerms decrements document frequencies for a removed chunk.
// Caller must hold the write lock.
func (idx *Index) removeTerms(terms map[string]int) {
	for term := range terms {
		if idx.docFreq[term] <= 1 {
			delete(idx.docFreq, term)
		} else {
			idx.docFreq[term]--
		}
	}
}

// score computes a TF-IDF overlap score between the query terms and a chunk
func (idx *Index) score(e *entry, queryTerms map[string]int, totalDocs int) float64 {
	if len(queryTerms) == 0 {
		// Pure metadata query: every matching chunk gets a flat score
		return 1.0
	}

	var score float64
	for term := range queryTerms {
		tf, ok := e.terms[term]
		if !ok {
			continue
		}

		df := idx.docFreq[term]
		idf := math.Log(1 + float64(totalDocs)/float64(df+1))
		score += (1 + math.Log(float64(tf))) * idf
	}

	return score
}

// matches applies the request's metadata constraints
func matches(chunk *domain.Chunk, req domain.RetrievalRequest) bool {
	if req.Company != "" && !strings.EqualFold(chunk.Ticker, req.Company) {
		return false
	}
	if req.FilingType != "" && chunk.FilingType != req.FilingType {
		return false
	}
	if req.Section != "" && !strings.EqualFold(chunk.Section, req.Section) {
		return false
	}
	if req.Years.From > 0 && chunk.FiscalYear < req.Years.From {
		return false
	}
	if req.Years.To > 0 && chunk.FiscalYear > req.Years.To {
		return false
	}
	return true
}

// tokenize lowercases and splits text into terms, dropping punctuation
// and single-character tokens
func tokenize(text string) map[string]int {
	terms := make(map[string]int)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		term := strings.Trim(field, ".,;:!?()[]{}\"'`")
		if len(term) < 2 {
			continue
		}
		terms[term]++
	}
	return terms
}
