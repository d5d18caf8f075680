package domain

import (
	"testing"
	"time"
)

func TestRetrievalResultEmpty(t *testing.T) {
	var nilResult *RetrievalResult
	if !nilResult.Empty() {
		t.Error("nil result is empty")
	}

	if !(&RetrievalResult{}).Empty() {
		t.Error("result without chunks is empty")
	}

	withChunk := &RetrievalResult{Chunks: []*RankedChunk{
		{Chunk: &Chunk{ID: "MSFT_10-K_2021_0", Ticker: "MSFT"}, Score: 0.8},
	}}
	if withChunk.Empty() {
		t.Error("result with chunks is not empty")
	}
}

func TestRetrievalResultCompanies(t *testing.T) {
	result := &RetrievalResult{Chunks: []*RankedChunk{
		{Chunk: &Chunk{ID: "AAPL_10-K_2021_0", Ticker: "AAPL"}, Score: 0.9},
		{Chunk: &Chunk{ID: "MSFT_10-K_2021_0", Ticker: "MSFT"}, Score: 0.8},
		{Chunk: &Chunk{ID: "AAPL_10-K_2021_1", Ticker: "AAPL"}, Score: 0.7},
	}}

	got := result.Companies()
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct companies, got %v", got)
	}
	if got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("expected first-appearance order [AAPL MSFT], got %v", got)
	}
}

func TestCitationKey(t *testing.T) {
	date := time.Date(2021, 10, 29, 0, 0, 0, 0, time.UTC)

	a := Citation{Ticker: "AAPL", FilingType: FilingType10K, Section: SectionRiskFactors, FilingDate: date}
	b := Citation{Ticker: "AAPL", FilingType: FilingType10K, Section: SectionRiskFactors, FilingDate: date, Company: "Apple Inc."}

	if a.Key() != b.Key() {
		t.Error("citations of the same filing section must share a key")
	}

	c := Citation{Ticker: "AAPL", FilingType: FilingType10K, Section: SectionMDA, FilingDate: date}
	if a.Key() == c.Key() {
		t.Error("different sections must not collide")
	}

	d := Citation{Ticker: "AAPL", FilingType: FilingType10K, Section: SectionRiskFactors, FilingDate: date.AddDate(1, 0, 0)}
	if a.Key() == d.Key() {
		t.Error("different filing dates must not collide")
	}
}

func TestChunkID(t *testing.T) {
	id := ChunkID("AAPL", FilingType10K, 2021, 4)
	if id != "AAPL_10-K_2021_4" {
		t.Errorf("unexpected chunk id %q", id)
	}
}
