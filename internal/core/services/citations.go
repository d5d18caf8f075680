package services

import (
	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// CitationTracker keeps a 1:1 mapping from retrieved chunks to Citation
// records. It is populated at retrieval time so every chunk handed to
// synthesis is attributable even when the model output never echoes the
// metadata. Citations deduplicate by (company, filing type, section,
// date) and keep first-appearance order.
//
// Not safe for concurrent use; each query pipeline owns its own tracker.
type CitationTracker struct {
	citations []domain.Citation
	byKey     map[string]int
	byChunk   map[string]int
}

// NewCitationTracker creates an empty tracker
func NewCitationTracker() *CitationTracker {
	return &CitationTracker{
		byKey:   make(map[string]int),
		byChunk: make(map[string]int),
	}
}

// TrackResult registers every chunk of a merged retrieval result
func (t *CitationTracker) TrackResult(result *domain.RetrievalResult) {
	if result == nil {
		return
	}
	for _, rc := range result.Chunks {
		t.Track(rc)
	}
}

// Track registers one chunk and returns the index of its citation.
// Chunks from the same filing section share a citation entry.
func (t *CitationTracker) Track(rc *domain.RankedChunk) int {
	citation := domain.Citation{
		Ticker:     rc.Chunk.Ticker,
		Company:    rc.Chunk.Company,
		FilingType: rc.Chunk.FilingType,
		Section:    rc.Chunk.Section,
		FilingDate: rc.Chunk.FilingDate,
		FiscalYear: rc.Chunk.FiscalYear,
	}

	key := citation.Key()
	idx, ok := t.byKey[key]
	if !ok {
		idx = len(t.citations)
		t.citations = append(t.citations, citation)
		t.byKey[key] = idx
	}
	t.byChunk[rc.Chunk.ID] = idx
	return idx
}

// ForChunk returns the citation backing a tracked chunk
func (t *CitationTracker) ForChunk(chunkID string) (domain.Citation, bool) {
	idx, ok := t.byChunk[chunkID]
	if !ok {
		return domain.Citation{}, false
	}
	return t.citations[idx], true
}

// Citations returns all citations in first-appearance order
func (t *CitationTracker) Citations() []domain.Citation {
	out := make([]domain.Citation, len(t.citations))
	copy(out, t.citations)
	return out
}

// Len returns the number of distinct citations
func (t *CitationTracker) Len() int {
	return len(t.citations)
}
