package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
)

// Ensure catalogService implements CatalogService
var _ driving.CatalogService = (*catalogService)(nil)

// catalogService exposes the static company registry and taxonomy
type catalogService struct {
	registry *domain.CompanyRegistry
	taxonomy *domain.Taxonomy
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(registry *domain.CompanyRegistry, taxonomy *domain.Taxonomy) driving.CatalogService {
	return &catalogService{
		registry: registry,
		taxonomy: taxonomy,
	}
}

// Companies returns all registered companies ordered by ticker
func (s *catalogService) Companies(ctx context.Context) ([]domain.Company, error) {
	return s.registry.Companies(), nil
}

// Company returns one company by ticker or alias
func (s *catalogService) Company(ctx context.Context, ticker string) (*domain.Company, error) {
	company, ok := s.registry.Get(ticker)
	if !ok {
		return nil, fmt.Errorf("%w: unknown company %q", domain.ErrNotFound, ticker)
	}
	return &company, nil
}

// Concepts returns every taxonomy entry in sorted concept order
func (s *catalogService) Concepts(ctx context.Context) ([]domain.TaxonomyEntry, error) {
	tags := s.taxonomy.Concepts()
	entries := make([]domain.TaxonomyEntry, 0, len(tags))
	for _, tag := range tags {
		if entry, ok := s.taxonomy.Entry(tag); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Concept returns one taxonomy entry by tag
func (s *catalogService) Concept(ctx context.Context, tag string) (*domain.TaxonomyEntry, error) {
	entry, ok := s.taxonomy.Entry(tag)
	if !ok {
		return nil, fmt.Errorf("%w: unknown concept %q", domain.ErrNotFound, tag)
	}
	return &entry, nil
}
