package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// CatalogService exposes the static corpus catalog: the company
// registry and the concept taxonomy. Both are loaded once at startup
// and read-only, so every method is pure with respect to its inputs.
type CatalogService interface {
	// Companies returns all registered companies ordered by ticker
	Companies(ctx context.Context) ([]domain.Company, error)

	// Company returns one company by ticker or alias
	Company(ctx context.Context, ticker string) (*domain.Company, error)

	// Concepts returns every taxonomy entry in sorted concept order
	Concepts(ctx context.Context) ([]domain.TaxonomyEntry, error)

	// Concept returns one taxonomy entry by tag
	Concept(ctx context.Context, tag string) (*domain.TaxonomyEntry, error)
}
