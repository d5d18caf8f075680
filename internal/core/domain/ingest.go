package domain

import "time"

// IngestStatus represents the current state of a company sync
type IngestStatus string

const (
	IngestStatusIdle      IngestStatus = "idle"
	IngestStatusRunning   IngestStatus = "running"
	IngestStatusCompleted IngestStatus = "completed"
	IngestStatusFailed    IngestStatus = "failed"
)

// IngestState tracks the ingest state for one company
type IngestState struct {
	Ticker      string       `json:"ticker"`
	Status      IngestStatus `json:"status"`
	LastSyncAt  *time.Time   `json:"last_sync_at,omitempty"`
	NextSyncAt  *time.Time   `json:"next_sync_at,omitempty"`
	Stats       IngestStats  `json:"stats"`
	Error       string       `json:"error,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// IngestStats holds statistics for an ingest run
type IngestStats struct {
	FilingsFetched int `json:"filings_fetched"`
	FilingsSkipped int `json:"filings_skipped"` // Already in the corpus
	SectionsFound  int `json:"sections_found"`
	ChunksIndexed  int `json:"chunks_indexed"`
	Errors         int `json:"errors"`
}

// IngestResult represents the outcome of one company sync
type IngestResult struct {
	Ticker   string      `json:"ticker"`
	Success  bool        `json:"success"`
	Stats    IngestStats `json:"stats"`
	Error    string      `json:"error,omitempty"`
	Duration float64     `json:"duration_seconds"`
}

// FilingRef identifies one filing available from the filing source,
// prior to download.
type FilingRef struct {
	Ticker      string     `json:"ticker"`
	CIK         int        `json:"cik"`
	Type        FilingType `json:"type"`
	AccessionNo string     `json:"accession_no"`
	FilingDate  time.Time  `json:"filing_date"`
	DocumentURL string     `json:"document_url"`
}

// FiscalYear derives the fiscal year from the filing date
func (f FilingRef) FiscalYear() int {
	return f.FilingDate.Year()
}
