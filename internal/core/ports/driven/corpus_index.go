package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// CorpusIndex is the similarity-search collaborator holding the filing
// chunk corpus (Vespa, or the in-memory index for development).
// Read-only from the query pipeline's perspective; only the ingest
// pipeline writes to it. Implementations that support semantic search
// compute query embeddings internally - the query pipeline never calls
// the embedding service itself.
type CorpusIndex interface {
	// Index adds or replaces chunks in the corpus
	Index(ctx context.Context, chunks []*domain.Chunk) error

	// Search runs one scoped similarity query. The request's metadata
	// constraints (company, filing type, section, year range) are
	// applied as filters; results are ordered by relevance descending.
	Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.ScoredChunk, error)

	// Delete removes chunks by ID
	Delete(ctx context.Context, chunkIDs []string) error

	// DeleteByFiling removes all chunks for a filing
	DeleteByFiling(ctx context.Context, filingID string) error

	// DeleteByCompany removes all chunks for a company
	DeleteByCompany(ctx context.Context, ticker string) error

	// HealthCheck verifies the index is available
	HealthCheck(ctx context.Context) error
}
