package domain

import (
	"sort"
	"strings"
)

// Company represents one issuer tracked in the filing corpus
type Company struct {
	Ticker  string   `json:"ticker" yaml:"ticker"`
	CIK     int      `json:"cik" yaml:"cik"` // SEC Central Index Key
	Name    string   `json:"name" yaml:"name"`
	Sector  string   `json:"sector,omitempty" yaml:"sector,omitempty"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// CompanyRegistry is the static set of known companies plus an alias
// lookup table built once at construction. Read-only after New.
type CompanyRegistry struct {
	companies map[string]Company // keyed by ticker
	aliases   []aliasEntry       // sorted longest-first for greedy matching
	tickers   []string           // stable sorted order
}

type aliasEntry struct {
	token  string // normalized alias
	ticker string
}

// NewCompanyRegistry builds a registry from the configured company list.
// Every company's ticker and name are matchable aliases in addition to
// the explicit alias list.
func NewCompanyRegistry(companies []Company) *CompanyRegistry {
	r := &CompanyRegistry{
		companies: make(map[string]Company, len(companies)),
	}

	for _, c := range companies {
		ticker := strings.ToUpper(c.Ticker)
		c.Ticker = ticker
		r.companies[ticker] = c
		r.tickers = append(r.tickers, ticker)

		seen := map[string]struct{}{}
		for _, alias := range append([]string{c.Ticker, c.Name}, c.Aliases...) {
			token := NormalizeToken(alias)
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			r.aliases = append(r.aliases, aliasEntry{token: token, ticker: ticker})
		}
	}

	sort.Strings(r.tickers)

	// Longest alias first so "johnson & johnson" wins over "johnson"
	sort.SliceStable(r.aliases, func(i, j int) bool {
		if len(r.aliases[i].token) != len(r.aliases[j].token) {
			return len(r.aliases[i].token) > len(r.aliases[j].token)
		}
		return r.aliases[i].token < r.aliases[j].token
	})

	return r
}

// Get returns the company for a ticker
func (r *CompanyRegistry) Get(ticker string) (Company, bool) {
	c, ok := r.companies[strings.ToUpper(ticker)]
	return c, ok
}

// Tickers returns all known tickers in sorted order
func (r *CompanyRegistry) Tickers() []string {
	out := make([]string, len(r.tickers))
	copy(out, r.tickers)
	return out
}

// Companies returns all known companies ordered by ticker
func (r *CompanyRegistry) Companies() []Company {
	out := make([]Company, 0, len(r.tickers))
	for _, t := range r.tickers {
		out = append(out, r.companies[t])
	}
	return out
}

// Len returns the number of registered companies
func (r *CompanyRegistry) Len() int {
	return len(r.tickers)
}

// MatchText scans normalized text for company mentions and returns the
// matched tickers in order of first appearance. Longer aliases are tried
// first so overlapping names resolve to the most specific company.
func (r *CompanyRegistry) MatchText(text string) []string {
	normalized := NormalizeToken(text)
	if normalized == "" {
		return nil
	}

	type hit struct {
		ticker string
		index  int
	}

	var hits []hit
	found := map[string]struct{}{}
	consumed := make([]bool, len(normalized))

	for _, a := range r.aliases {
		idx := indexWord(normalized, a.token)
		if idx < 0 {
			continue
		}
		if consumed[idx] {
			continue
		}
		if _, ok := found[a.ticker]; ok {
			continue
		}
		found[a.ticker] = struct{}{}
		for i := idx; i < idx+len(a.token) && i < len(consumed); i++ {
			consumed[i] = true
		}
		hits = append(hits, hit{ticker: a.ticker, index: idx})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ticker)
	}
	return out
}

// NormalizeToken lowercases and collapses whitespace/punctuation so alias
// matching is insensitive to casing and separators.
func NormalizeToken(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '&':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// indexWord finds token in text at a word boundary, -1 if absent.
func indexWord(text, token string) int {
	from := 0
	for {
		idx := strings.Index(text[from:], token)
		if idx < 0 {
			return -1
		}
		idx += from
		startOK := idx == 0 || text[idx-1] == ' '
		end := idx + len(token)
		endOK := end == len(text) || text[end] == ' '
		if startOK && endOK {
			return idx
		}
		from = idx + 1
		if from >= len(text) {
			return -1
		}
	}
}
