package domain

import (
	"sort"
	"strings"
)

// FilingType identifies a regulatory filing form
type FilingType string

const (
	FilingType10K    FilingType = "10-K"    // Annual report
	FilingType10Q    FilingType = "10-Q"    // Quarterly report
	FilingType8K     FilingType = "8-K"     // Current report
	FilingTypeProxy  FilingType = "DEF 14A" // Proxy statement
	FilingTypeForm3  FilingType = "3"       // Initial ownership
	FilingTypeForm4  FilingType = "4"       // Ownership change
	FilingTypeForm5  FilingType = "5"       // Annual ownership
)

// FilingTypes lists every supported form, most common first
func FilingTypes() []FilingType {
	return []FilingType{
		FilingType10K, FilingType10Q, FilingType8K,
		FilingTypeProxy, FilingTypeForm3, FilingTypeForm4, FilingTypeForm5,
	}
}

// SectionRef names a section within a filing type, e.g. (10-K, "Risk Factors").
// Used both as a taxonomy candidate and as a retrieval filter.
type SectionRef struct {
	FilingType FilingType `json:"filing_type" yaml:"filing_type"`
	Section    string     `json:"section" yaml:"section"`
}

// TaxonomyEntry maps one financial concept to where that information is
// conventionally disclosed. Candidates are ordered most-specific first.
type TaxonomyEntry struct {
	Concept    string       `json:"concept" yaml:"concept"`
	Synonyms   []string     `json:"synonyms" yaml:"synonyms"`
	Keywords   []string     `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Candidates []SectionRef `json:"candidates" yaml:"candidates"`
}

// Taxonomy is the static concept-to-section routing table. Loaded once at
// startup and read-only afterwards; Lookup is pure and deterministic.
type Taxonomy struct {
	entries  map[string]TaxonomyEntry
	concepts []string     // stable sorted order
	synonyms []synonymRef // sorted longest-first for greedy matching
}

type synonymRef struct {
	token   string
	concept string
}

// NewTaxonomy builds the routing table from configured entries.
// Concept names themselves are matchable synonyms.
func NewTaxonomy(entries []TaxonomyEntry) *Taxonomy {
	t := &Taxonomy{
		entries: make(map[string]TaxonomyEntry, len(entries)),
	}

	for _, e := range entries {
		concept := strings.ToLower(strings.TrimSpace(e.Concept))
		if concept == "" {
			continue
		}
		e.Concept = concept
		t.entries[concept] = e
		t.concepts = append(t.concepts, concept)

		seen := map[string]struct{}{}
		names := append([]string{strings.ReplaceAll(concept, "_", " ")}, e.Synonyms...)
		for _, s := range names {
			token := NormalizeToken(s)
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			t.synonyms = append(t.synonyms, synonymRef{token: token, concept: concept})
		}
	}

	sort.Strings(t.concepts)

	sort.SliceStable(t.synonyms, func(i, j int) bool {
		if len(t.synonyms[i].token) != len(t.synonyms[j].token) {
			return len(t.synonyms[i].token) > len(t.synonyms[j].token)
		}
		return t.synonyms[i].token < t.synonyms[j].token
	})

	return t
}

// Lookup returns the ordered section candidates for a concept tag.
// Unknown concepts yield an empty list, never an error.
func (t *Taxonomy) Lookup(concept string) []SectionRef {
	e, ok := t.entries[strings.ToLower(concept)]
	if !ok {
		return nil
	}
	out := make([]SectionRef, len(e.Candidates))
	copy(out, e.Candidates)
	return out
}

// Entry returns the full taxonomy entry for a concept tag
func (t *Taxonomy) Entry(concept string) (TaxonomyEntry, bool) {
	e, ok := t.entries[strings.ToLower(concept)]
	return e, ok
}

// Concepts returns all known concept tags in sorted order
func (t *Taxonomy) Concepts() []string {
	out := make([]string, len(t.concepts))
	copy(out, t.concepts)
	return out
}

// MatchText scans normalized text for concept mentions, longest synonym
// first so "research and development" is not shadowed by "development".
// Returns concept tags in order of first appearance.
func (t *Taxonomy) MatchText(text string) []string {
	normalized := NormalizeToken(text)
	if normalized == "" {
		return nil
	}

	type hit struct {
		concept string
		index   int
	}

	var hits []hit
	found := map[string]struct{}{}
	consumed := make([]bool, len(normalized))

	for _, s := range t.synonyms {
		idx := indexWord(normalized, s.token)
		if idx < 0 || consumed[idx] {
			continue
		}
		if _, ok := found[s.concept]; ok {
			continue
		}
		found[s.concept] = struct{}{}
		for i := idx; i < idx+len(s.token) && i < len(consumed); i++ {
			consumed[i] = true
		}
		hits = append(hits, hit{concept: s.concept, index: idx})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.concept)
	}
	return out
}
