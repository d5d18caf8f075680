package domain

import (
	"fmt"
	"time"
)

// FilingStatus tracks a filing through the ingest pipeline
type FilingStatus string

const (
	FilingStatusFetched FilingStatus = "fetched" // Downloaded, not yet processed
	FilingStatusChunked FilingStatus = "chunked" // Sections extracted and chunked
	FilingStatusIndexed FilingStatus = "indexed"
	FilingStatusFailed  FilingStatus = "failed"
)

// Filing represents one regulatory disclosure document for one company
// on one date.
type Filing struct {
	ID          string       `json:"id"`
	Ticker      string       `json:"ticker"`
	CIK         int          `json:"cik"`
	Type        FilingType   `json:"type"`
	AccessionNo string       `json:"accession_no"` // EDGAR accession number
	FiscalYear  int          `json:"fiscal_year"`
	FilingDate  time.Time    `json:"filing_date"`
	SourceURL   string       `json:"source_url"`
	Status      FilingStatus `json:"status"`
	ChunkCount  int          `json:"chunk_count"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Chunk is a bounded text span from a filing, the unit of retrieval.
// The query pipeline never mutates chunks; it only ranks, merges, and
// annotates references to them.
type Chunk struct {
	ID         string     `json:"id"`
	FilingID   string     `json:"filing_id,omitempty"`
	Ticker     string     `json:"ticker"`
	Company    string     `json:"company,omitempty"`
	FilingType FilingType `json:"filing_type"`
	Section    string     `json:"section"`
	FiscalYear int        `json:"fiscal_year"`
	FilingDate time.Time  `json:"filing_date"`
	Position   int        `json:"position"` // Chunk index within the section
	Text       string     `json:"text"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// ChunkID builds the canonical chunk identifier
func ChunkID(ticker string, filingType FilingType, fiscalYear, position int) string {
	return fmt.Sprintf("%s_%s_%d_%d", ticker, filingType, fiscalYear, position)
}

// FilingSection is one extracted section of a filing prior to chunking
type FilingSection struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SectionGeneral is the fallback section name when no recognized
// heading pattern matches.
const SectionGeneral = "General Content"

// Canonical 10-K/10-Q section names used by the taxonomy and the
// section extractor.
const (
	SectionBusiness     = "Business"
	SectionRiskFactors  = "Risk Factors"
	SectionMDA          = "Management Discussion and Analysis"
	SectionFinancials   = "Financial Statements"
	SectionCompensation = "Executive Compensation"
	SectionCompDiscuss  = "Compensation Discussion and Analysis"
	SectionOwnership    = "Ownership Disclosure"
)
