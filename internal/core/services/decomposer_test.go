package services

import (
	"errors"
	"testing"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

func testRegistry() *domain.CompanyRegistry {
	return domain.NewCompanyRegistry([]domain.Company{
		{Ticker: "AAPL", CIK: 320193, Name: "Apple Inc.", Sector: "Technology", Aliases: []string{"Apple"}},
		{Ticker: "MSFT", CIK: 789019, Name: "Microsoft Corporation", Sector: "Technology", Aliases: []string{"Microsoft"}},
		{Ticker: "JPM", CIK: 19617, Name: "JPMorgan Chase & Co.", Sector: "Financials", Aliases: []string{"JPMorgan", "JP Morgan", "Chase"}},
	})
}

func testTaxonomy() *domain.Taxonomy {
	return domain.NewTaxonomy([]domain.TaxonomyEntry{
		{
			Concept:  "research_development",
			Synonyms: []string{"R&D", "research and development", "innovation spending"},
			Keywords: []string{"research", "development", "innovation"},
			Candidates: []domain.SectionRef{
				{FilingType: domain.FilingType10K, Section: domain.SectionMDA},
				{FilingType: domain.FilingType10K, Section: domain.SectionBusiness},
			},
		},
		{
			Concept:  "revenue_performance",
			Synonyms: []string{"revenue", "sales", "top line"},
			Keywords: []string{"revenue", "sales", "growth"},
			Candidates: []domain.SectionRef{
				{FilingType: domain.FilingType10K, Section: domain.SectionMDA},
				{FilingType: domain.FilingType10Q, Section: domain.SectionMDA},
			},
		},
		{
			Concept:  "risk_factors",
			Synonyms: []string{"risks", "risk factors"},
			Keywords: []string{"risk", "uncertainty"},
			Candidates: []domain.SectionRef{
				{FilingType: domain.FilingType10K, Section: domain.SectionRiskFactors},
			},
		},
	})
}

func testDecomposer() *Decomposer {
	return NewDecomposer(testRegistry(), testTaxonomy(), 2023)
}

func TestDecomposeCompaniesAndConcepts(t *testing.T) {
	d := testDecomposer()

	c, err := d.Decompose(domain.Query{Text: "Compare Apple and Microsoft R&D spending in 2020 and 2021"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.Companies) != 2 || c.Companies[0] != "AAPL" || c.Companies[1] != "MSFT" {
		t.Errorf("expected [AAPL MSFT], got %v", c.Companies)
	}
	if len(c.Concepts) != 1 || c.Concepts[0] != "research_development" {
		t.Errorf("expected [research_development], got %v", c.Concepts)
	}
	if c.Years.From != 2020 || c.Years.To != 2021 {
		t.Errorf("expected 2020-2021, got %v", c.Years)
	}
	if !c.Comparison {
		t.Error("expected comparison query")
	}
}

func TestDecomposeGenericQuery(t *testing.T) {
	d := testDecomposer()

	c, err := d.Decompose(domain.Query{Text: "What were the biggest trends last decade?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !c.Generic() {
		t.Errorf("expected generic components, got %+v", c)
	}
	if c.Comparison {
		t.Error("did not expect comparison")
	}
}

func TestDecomposeYearRange(t *testing.T) {
	d := testDecomposer()

	tests := []struct {
		text string
		from int
		to   int
	}{
		{"Apple revenue 2019-2022", 2019, 2022},
		{"Apple revenue from 2019 to 2022", 2019, 2022},
		{"Apple revenue in 2021", 2021, 2021},
		{"Apple revenue over the last two years", 2022, 2023},
		{"Apple revenue over the past 3 years", 2021, 2023},
		{"Apple revenue last year", 2023, 2023},
	}

	for _, tt := range tests {
		c, err := d.Decompose(domain.Query{Text: tt.text})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.text, err)
		}
		if c.Years.From != tt.from || c.Years.To != tt.to {
			t.Errorf("%q: expected %d-%d, got %v", tt.text, tt.from, tt.to, c.Years)
		}
	}
}

func TestDecomposeVagueRelativeYears(t *testing.T) {
	d := testDecomposer()

	c, err := d.Decompose(domain.Query{Text: "Apple revenue over the last few years"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Years.IsZero() {
		t.Errorf("expected open year range, got %v", c.Years)
	}
}

func TestDecomposeAmbiguousYears(t *testing.T) {
	d := testDecomposer()

	tests := []string{
		"Apple revenue from 2022 to 2019",
		"Apple revenue in 192",
		"Apple revenue since 20219",
		"Apple revenue over the last zillion years",
	}

	for _, text := range tests {
		_, err := d.Decompose(domain.Query{Text: text})
		var ambiguous *domain.AmbiguousQueryError
		if !errors.As(err, &ambiguous) {
			t.Errorf("%q: expected AmbiguousQueryError, got %v", text, err)
		}
	}
}

func TestDecomposeInvertedFilterRange(t *testing.T) {
	d := testDecomposer()

	_, err := d.Decompose(domain.Query{
		Text:    "Apple revenue",
		Filters: domain.QueryFilters{Years: domain.YearRange{From: 2022, To: 2019}},
	})

	var ambiguous *domain.AmbiguousQueryError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousQueryError, got %v", err)
	}
}

func TestDecomposeExplicitFiltersOverrideText(t *testing.T) {
	d := testDecomposer()

	c, err := d.Decompose(domain.Query{
		Text: "How did Apple perform in 2019?",
		Filters: domain.QueryFilters{
			Companies: []string{"MSFT", "microsoft", "Acme Unknown"},
			Years:     domain.YearRange{From: 2021, To: 2022},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.Companies) != 1 || c.Companies[0] != "MSFT" {
		t.Errorf("expected filter companies [MSFT], got %v", c.Companies)
	}
	if c.Years.From != 2021 || c.Years.To != 2022 {
		t.Errorf("expected 2021-2022, got %v", c.Years)
	}
}

func TestDecomposePeriodHints(t *testing.T) {
	d := testDecomposer()

	tests := []struct {
		text   string
		period domain.Period
	}{
		{"Apple quarterly revenue trend", domain.PeriodQuarterly},
		{"Apple annual report highlights", domain.PeriodAnnual},
		{"Apple latest risks", domain.PeriodRecent},
		{"Apple revenue", ""},
	}

	for _, tt := range tests {
		c, err := d.Decompose(domain.Query{Text: tt.text})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.text, err)
		}
		if c.Period != tt.period {
			t.Errorf("%q: expected period %q, got %q", tt.text, tt.period, c.Period)
		}
	}
}

func TestDecomposeComparisonKeyword(t *testing.T) {
	d := testDecomposer()

	c, err := d.Decompose(domain.Query{Text: "Apple revenue versus prior guidance"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Comparison {
		t.Error("expected comparison from keyword")
	}
}

func TestDecomposeMultipleConceptsComparison(t *testing.T) {
	d := testDecomposer()

	c, err := d.Decompose(domain.Query{Text: "Apple revenue and risk factors"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Concepts) != 2 {
		t.Fatalf("expected 2 concepts, got %v", c.Concepts)
	}
	if !c.Comparison {
		t.Error("expected comparison with multiple concepts")
	}
}
