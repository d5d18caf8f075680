package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// FilingStore handles filing persistence (PostgreSQL)
type FilingStore interface {
	// Save creates or updates a filing
	Save(ctx context.Context, filing *domain.Filing) error

	// Get retrieves a filing by ID
	Get(ctx context.Context, id string) (*domain.Filing, error)

	// GetByAccession retrieves a filing by EDGAR accession number
	GetByAccession(ctx context.Context, accessionNo string) (*domain.Filing, error)

	// ListByCompany retrieves filings for a ticker with pagination
	ListByCompany(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error)

	// List retrieves all filings with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Filing, error)

	// UpdateStatus updates the pipeline status and error message
	UpdateStatus(ctx context.Context, id string, status domain.FilingStatus, errMsg string) error

	// Delete deletes a filing
	Delete(ctx context.Context, id string) error

	// DeleteByCompany deletes all filings for a ticker
	DeleteByCompany(ctx context.Context, ticker string) error

	// Count returns total filing count
	Count(ctx context.Context) (int, error)

	// CountByCompany returns filing count for a ticker
	CountByCompany(ctx context.Context, ticker string) (int, error)
}

// ChunkStore handles chunk persistence (PostgreSQL). The index
// collaborator holds the searchable copy; this store is the durable
// record used for reindexing.
type ChunkStore interface {
	// Save creates or updates a chunk
	Save(ctx context.Context, chunk *domain.Chunk) error

	// SaveBatch saves multiple chunks in a transaction
	SaveBatch(ctx context.Context, chunks []*domain.Chunk) error

	// GetByFiling retrieves all chunks for a filing, ordered by position
	GetByFiling(ctx context.Context, filingID string) ([]*domain.Chunk, error)

	// Delete deletes a chunk
	Delete(ctx context.Context, id string) error

	// DeleteByFiling deletes all chunks for a filing
	DeleteByFiling(ctx context.Context, filingID string) error

	// DeleteByCompany deletes all chunks for a ticker
	DeleteByCompany(ctx context.Context, ticker string) error

	// Count returns total chunk count
	Count(ctx context.Context) (int, error)
}

// IngestStateStore handles per-company ingest state persistence (PostgreSQL)
type IngestStateStore interface {
	// Save creates or updates ingest state
	Save(ctx context.Context, state *domain.IngestState) error

	// Get retrieves ingest state for a ticker
	Get(ctx context.Context, ticker string) (*domain.IngestState, error)

	// List retrieves ingest states for all companies
	List(ctx context.Context) ([]*domain.IngestState, error)

	// Delete deletes ingest state for a ticker
	Delete(ctx context.Context, ticker string) error

	// UpdateStatus updates only the status field
	UpdateStatus(ctx context.Context, ticker string, status domain.IngestStatus) error
}
