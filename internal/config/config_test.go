package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

func TestLoadCompanyRegistryDefaults(t *testing.T) {
	registry, err := LoadCompanyRegistry("")
	if err != nil {
		t.Fatalf("LoadCompanyRegistry() error = %v", err)
	}

	if registry.Len() != 11 {
		t.Errorf("expected 11 companies, got %d", registry.Len())
	}

	apple, ok := registry.Get("AAPL")
	if !ok {
		t.Fatal("expected AAPL in default registry")
	}
	if apple.CIK != 320193 {
		t.Errorf("AAPL CIK = %d, want 320193", apple.CIK)
	}

	// Alias matching should find companies by name
	tickers := registry.MatchText("How has Johnson & Johnson performed?")
	if len(tickers) != 1 || tickers[0] != "JNJ" {
		t.Errorf("MatchText = %v, want [JNJ]", tickers)
	}
}

func TestLoadTaxonomyDefaults(t *testing.T) {
	taxonomy, err := LoadTaxonomy("")
	if err != nil {
		t.Fatalf("LoadTaxonomy() error = %v", err)
	}

	if len(taxonomy.Concepts()) != 10 {
		t.Errorf("expected 10 concepts, got %d", len(taxonomy.Concepts()))
	}

	candidates := taxonomy.Lookup("research_development")
	if len(candidates) == 0 {
		t.Fatal("expected candidates for research_development")
	}
	first := candidates[0]
	if first.FilingType != domain.FilingType10K || first.Section != domain.SectionMDA {
		t.Errorf("first candidate = %+v, want (10-K, MD&A)", first)
	}
}

func TestLoadCompanyRegistryOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.yaml")
	content := `companies:
  - ticker: IBM
    cik: 51143
    name: International Business Machines
    aliases: [IBM]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	registry, err := LoadCompanyRegistry(path)
	if err != nil {
		t.Fatalf("LoadCompanyRegistry() error = %v", err)
	}
	if registry.Len() != 1 {
		t.Errorf("expected 1 company, got %d", registry.Len())
	}
	if _, ok := registry.Get("IBM"); !ok {
		t.Error("expected IBM in overridden registry")
	}
}

func TestLoadTaxonomyInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	content := `concepts:
  - concept: orphan
    synonyms: [orphan]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTaxonomy(path); err == nil {
		t.Error("expected error for concept without candidates")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadCompanyRegistry("/nonexistent/companies.yaml"); err == nil {
		t.Error("expected error for missing companies file")
	}
	if _, err := LoadTaxonomy("/nonexistent/taxonomy.yaml"); err == nil {
		t.Error("expected error for missing taxonomy file")
	}
}
