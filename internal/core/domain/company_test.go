package domain

import (
	"testing"
)

func testRegistry() *CompanyRegistry {
	return NewCompanyRegistry([]Company{
		{Ticker: "AAPL", CIK: 320193, Name: "Apple Inc.", Sector: "Technology", Aliases: []string{"Apple"}},
		{Ticker: "MSFT", CIK: 789019, Name: "Microsoft Corporation", Sector: "Technology", Aliases: []string{"Microsoft"}},
		{Ticker: "JNJ", CIK: 200406, Name: "Johnson & Johnson", Sector: "Healthcare"},
		{Ticker: "JPM", CIK: 19617, Name: "JPMorgan Chase & Co.", Sector: "Financial", Aliases: []string{"JPMorgan", "JP Morgan"}},
	})
}

func TestCompanyRegistryGet(t *testing.T) {
	r := testRegistry()

	c, ok := r.Get("AAPL")
	if !ok {
		t.Fatal("expected AAPL to be registered")
	}
	if c.CIK != 320193 {
		t.Errorf("expected CIK 320193, got %d", c.CIK)
	}

	// Lookup is case-insensitive
	if _, ok := r.Get("aapl"); !ok {
		t.Error("expected lowercase ticker lookup to succeed")
	}

	if _, ok := r.Get("NOPE"); ok {
		t.Error("expected unknown ticker to miss")
	}
}

func TestCompanyRegistryTickersSorted(t *testing.T) {
	r := testRegistry()

	tickers := r.Tickers()
	if len(tickers) != 4 {
		t.Fatalf("expected 4 tickers, got %d", len(tickers))
	}
	for i := 1; i < len(tickers); i++ {
		if tickers[i-1] >= tickers[i] {
			t.Errorf("tickers not sorted: %v", tickers)
		}
	}
}

func TestCompanyRegistryMatchText(t *testing.T) {
	r := testRegistry()

	got := r.MatchText("Compare Apple and Microsoft R&D spending")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	if got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("expected [AAPL MSFT] in mention order, got %v", got)
	}
}

func TestCompanyRegistryMatchTextByTicker(t *testing.T) {
	r := testRegistry()

	got := r.MatchText("what did MSFT report last year?")
	if len(got) != 1 || got[0] != "MSFT" {
		t.Errorf("expected [MSFT], got %v", got)
	}
}

func TestCompanyRegistryMatchTextMultiWordAlias(t *testing.T) {
	r := testRegistry()

	got := r.MatchText("Johnson & Johnson risk factors")
	if len(got) != 1 || got[0] != "JNJ" {
		t.Errorf("expected [JNJ], got %v", got)
	}

	got = r.MatchText("JP Morgan net interest income")
	if len(got) != 1 || got[0] != "JPM" {
		t.Errorf("expected [JPM], got %v", got)
	}
}

func TestCompanyRegistryMatchTextNoDuplicates(t *testing.T) {
	r := testRegistry()

	got := r.MatchText("Apple versus Apple Inc. and AAPL")
	if len(got) != 1 {
		t.Errorf("expected one match for repeated mentions, got %v", got)
	}
}

func TestCompanyRegistryMatchTextUnknown(t *testing.T) {
	r := testRegistry()

	got := r.MatchText("Acme Corporation quarterly revenue")
	if len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestCompanyRegistryMatchTextWordBoundary(t *testing.T) {
	r := testRegistry()

	// "apple" must not match inside "pineapples"
	got := r.MatchText("we counted pineapples")
	if len(got) != 0 {
		t.Errorf("expected no matches inside larger words, got %v", got)
	}
}

func TestNormalizeToken(t *testing.T) {
	cases := map[string]string{
		"Apple Inc.":          "apple inc",
		"  JOHNSON & Johnson ": "johnson & johnson",
		"R&D":                 "r&d",
		"10-K  filings":       "10 k filings",
		"":                    "",
	}

	for in, want := range cases {
		if got := NormalizeToken(in); got != want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
