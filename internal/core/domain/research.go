package domain

import "time"

// RetrievalRequest is one scoped similarity query against the corpus
// index. The orchestrator derives one or more per QueryComponents.
type RetrievalRequest struct {
	Company    string     `json:"company,omitempty"` // Ticker, empty = any
	Concept    string     `json:"concept,omitempty"` // Taxonomy tag that produced this request
	FilingType FilingType `json:"filing_type,omitempty"`
	Section    string     `json:"section,omitempty"`
	Years      YearRange  `json:"years,omitempty"`
	Text       string     `json:"text"`
	Limit      int        `json:"limit"`
}

// ScoredChunk is the raw (chunk, score) pair returned by the corpus
// index for a single request.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// RankedChunk is a merged retrieval hit: the chunk, its final score
// after metadata weighting, and the request that produced it.
type RankedChunk struct {
	Chunk      *Chunk           `json:"chunk"`
	Score      float64          `json:"score"`      // Blended score used for ranking
	Similarity float64          `json:"similarity"` // Raw index score
	Request    RetrievalRequest `json:"-"`
}

// RetrievalResult is the merged, deduplicated, ranked output of one
// orchestrated retrieval. Chunk identities are unique within Chunks.
type RetrievalResult struct {
	Chunks        []*RankedChunk `json:"chunks"`
	TotalRequests int            `json:"total_requests"`
	FailedRequests int           `json:"failed_requests"`
	Warnings      []string       `json:"warnings,omitempty"`
	Took          time.Duration  `json:"took" swaggertype:"integer" example:"1500000"`
}

// Empty reports whether retrieval produced no usable chunks
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Chunks) == 0
}

// Companies returns the distinct tickers present in the result, in
// first-appearance order.
func (r *RetrievalResult) Companies() []string {
	if r == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, rc := range r.Chunks {
		if _, ok := seen[rc.Chunk.Ticker]; ok {
			continue
		}
		seen[rc.Chunk.Ticker] = struct{}{}
		out = append(out, rc.Chunk.Ticker)
	}
	return out
}

// Citation is the provenance record for a filing section used in an
// answer. Derived 1:1 from retrieved chunks and deduplicated by
// (company, filing type, section, date).
type Citation struct {
	Ticker     string     `json:"ticker"`
	Company    string     `json:"company"`
	FilingType FilingType `json:"filing_type"`
	Section    string     `json:"section"`
	FilingDate time.Time  `json:"filing_date"`
	FiscalYear int        `json:"fiscal_year,omitempty"`
}

// Key returns the deduplication identity of the citation
func (c Citation) Key() string {
	return c.Ticker + "|" + string(c.FilingType) + "|" + c.Section + "|" + c.FilingDate.Format("2006-01-02")
}

// Answer is the final synthesized response for one query
type Answer struct {
	ID         string        `json:"id"`
	QueryID    string        `json:"query_id"`
	Query      string        `json:"query"`
	Text       string        `json:"text"`
	Citations  []Citation    `json:"citations"`
	Confidence float64       `json:"confidence"`
	Warnings   []string      `json:"warnings,omitempty"`
	ChunksUsed int           `json:"chunks_used"`
	Took       time.Duration `json:"took" swaggertype:"integer" example:"2500000000"`
	CreatedAt  time.Time     `json:"created_at"`
}
