package domain

import "time"

// Period classifies the time intent of a query
type Period string

const (
	PeriodAnnual    Period = "annual"    // Annual filings preferred
	PeriodQuarterly Period = "quarterly" // Quarterly filings preferred
	PeriodRecent    Period = "recent"    // Most recent filings
)

// YearRange is an inclusive fiscal-year range. A zero bound means
// unbounded on that side; the zero value matches all years.
type YearRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

// IsZero reports whether the range is fully unbounded
func (r YearRange) IsZero() bool {
	return r.From == 0 && r.To == 0
}

// Bounded reports whether both ends are set
func (r YearRange) Bounded() bool {
	return r.From != 0 && r.To != 0
}

// Contains reports whether a fiscal year falls inside the range
func (r YearRange) Contains(year int) bool {
	if r.From != 0 && year < r.From {
		return false
	}
	if r.To != 0 && year > r.To {
		return false
	}
	return true
}

// Years expands a bounded range into individual years, oldest first.
// Unbounded or inverted ranges yield nil.
func (r YearRange) Years() []int {
	if !r.Bounded() || r.To < r.From {
		return nil
	}
	out := make([]int, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		out = append(out, y)
	}
	return out
}

// QueryFilters carries explicit constraints supplied alongside the
// query text. All fields are optional.
type QueryFilters struct {
	Companies   []string     `json:"companies,omitempty"`    // Tickers or aliases
	Years       YearRange    `json:"years,omitempty"`
	FilingTypes []FilingType `json:"filing_types,omitempty"`
}

// Query is a research question as received from the caller.
// Immutable once created.
type Query struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Filters    QueryFilters `json:"filters,omitempty"`
	ReceivedAt time.Time    `json:"received_at"`
}

// QueryComponents is the structured retrieval intent derived from a
// Query by the decomposer. Never mutated after creation.
type QueryComponents struct {
	// Companies holds matched tickers in order of first mention.
	// Empty means "all companies in the corpus".
	Companies []string `json:"companies"`

	// Concepts holds matched taxonomy tags in order of first mention.
	// Empty means generic full-text retrieval with no section routing.
	Concepts []string `json:"concepts"`

	// Years is the requested fiscal-year range, possibly unbounded.
	Years YearRange `json:"years"`

	// Period is a soft hint (annual vs quarterly) used when no explicit
	// filing-type constraint applies.
	Period Period `json:"period,omitempty"`

	// Comparison is set when the query spans 2+ companies or concepts,
	// or uses comparative language.
	Comparison bool `json:"comparison"`
}

// Generic reports whether retrieval should skip taxonomy routing
func (c QueryComponents) Generic() bool {
	return len(c.Concepts) == 0
}

// AllCompanies reports whether the query names no specific company
func (c QueryComponents) AllCompanies() bool {
	return len(c.Companies) == 0
}
