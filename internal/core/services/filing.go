package services

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
)

// Ensure filingService implements FilingService
var _ driving.FilingService = (*filingService)(nil)

// filingService implements read-only filing access
type filingService struct {
	filingStore driven.FilingStore
	chunkStore  driven.ChunkStore
}

// NewFilingService creates a new FilingService
func NewFilingService(filingStore driven.FilingStore, chunkStore driven.ChunkStore) driving.FilingService {
	return &filingService{
		filingStore: filingStore,
		chunkStore:  chunkStore,
	}
}

// Get retrieves a filing by ID
func (s *filingService) Get(ctx context.Context, id string) (*domain.Filing, error) {
	return s.filingStore.Get(ctx, id)
}

// GetWithChunks retrieves a filing with its chunks
func (s *filingService) GetWithChunks(ctx context.Context, id string) (*driving.FilingWithChunks, error) {
	filing, err := s.filingStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunkStore.GetByFiling(ctx, id)
	if err != nil {
		return nil, err
	}
	return &driving.FilingWithChunks{Filing: filing, Chunks: chunks}, nil
}

// ListByCompany retrieves filings for a ticker
func (s *filingService) ListByCompany(ctx context.Context, ticker string, limit, offset int) ([]*domain.Filing, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.filingStore.ListByCompany(ctx, ticker, limit, offset)
}

// Count returns the total number of filings
func (s *filingService) Count(ctx context.Context) (int, error) {
	return s.filingStore.Count(ctx)
}

// CountByCompany returns the filing count for a ticker
func (s *filingService) CountByCompany(ctx context.Context, ticker string) (int, error) {
	return s.filingStore.CountByCompany(ctx, ticker)
}
