package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// IngestOrchestrator coordinates the filing ingest pipeline
type IngestOrchestrator interface {
	// SyncCompany fetches, processes, and indexes recent filings for one company
	SyncCompany(ctx context.Context, ticker string) (*domain.IngestResult, error)

	// SyncCorpus refreshes every company in the registry
	SyncCorpus(ctx context.Context) ([]*domain.IngestResult, error)

	// IngestFiling processes one already-fetched filing (normalise,
	// section-split, chunk, index)
	IngestFiling(ctx context.Context, filingID string) error

	// GetState retrieves the ingest state for a company
	GetState(ctx context.Context, ticker string) (*domain.IngestState, error)

	// ListStates retrieves ingest states for all companies
	ListStates(ctx context.Context) ([]*domain.IngestState, error)
}

// Scheduler manages periodic corpus refresh scheduling
type Scheduler interface {
	// Start begins the scheduler loop
	Start(ctx context.Context) error

	// Stop stops the scheduler
	Stop(ctx context.Context) error
}
