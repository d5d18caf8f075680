// Package config loads the static corpus configuration: the company
// registry and the financial concept taxonomy. Both ship with embedded
// defaults and can be overridden with YAML files on disk.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

//go:embed companies.yaml
var defaultCompaniesYAML []byte

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

type companiesFile struct {
	Companies []domain.Company `yaml:"companies"`
}

type taxonomyFile struct {
	Concepts []domain.TaxonomyEntry `yaml:"concepts"`
}

// LoadCompanyRegistry builds the company registry from the YAML file at
// path, or from the embedded defaults when path is empty.
func LoadCompanyRegistry(path string) (*domain.CompanyRegistry, error) {
	data := defaultCompaniesYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read companies file: %w", err)
		}
		data = b
	}

	var f companiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse companies file: %w", err)
	}
	if len(f.Companies) == 0 {
		return nil, fmt.Errorf("companies file defines no companies")
	}

	return domain.NewCompanyRegistry(f.Companies), nil
}

// LoadTaxonomy builds the concept taxonomy from the YAML file at path,
// or from the embedded defaults when path is empty.
func LoadTaxonomy(path string) (*domain.Taxonomy, error) {
	data := defaultTaxonomyYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
		}
		data = b
	}

	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy file: %w", err)
	}
	if len(f.Concepts) == 0 {
		return nil, fmt.Errorf("taxonomy file defines no concepts")
	}

	for _, e := range f.Concepts {
		if len(e.Candidates) == 0 {
			return nil, fmt.Errorf("concept %q has no section candidates", e.Concept)
		}
	}

	return domain.NewTaxonomy(f.Concepts), nil
}
