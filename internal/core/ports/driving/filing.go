package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// FilingWithChunks pairs a filing with its stored chunks
type FilingWithChunks struct {
	Filing *domain.Filing  `json:"filing"`
	Chunks []*domain.Chunk `json:"chunks"`
}

// FilingService provides read-only access to stored filings
type FilingService interface {
	// Get retrieves a filing by ID
	Get(ctx context.Context, id string) (*domain.Filing, error)

	// GetWithChunks retrieves a filing with its chunks
	GetWithChunks(ctx context.Context, id string) (*FilingWithChunks, error)

	// ListByCompany retrieves filings for a ticker
	ListByCompany(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error)

	// Count returns the total number of filings
	Count(ctx context.Context) (int, error)

	// CountByCompany returns the filing count for a ticker
	CountByCompany(ctx context.Context, ticker string) (int, error)
}
