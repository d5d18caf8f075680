package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// Decomposer turns free-text research questions into structured
// QueryComponents. Company and concept matching run against the static
// registry and taxonomy tables built at startup; time parsing handles
// explicit years, ranges, and relative phrases. The only hard failure
// is an explicit time constraint that cannot be parsed - everything
// else narrows scope instead of erroring.
type Decomposer struct {
	registry *domain.CompanyRegistry
	taxonomy *domain.Taxonomy

	// maxYear anchors relative phrases like "last two years". Set to
	// the newest fiscal year known to the corpus.
	maxYear int
}

// NewDecomposer creates a decomposer over the given registry and taxonomy
func NewDecomposer(registry *domain.CompanyRegistry, taxonomy *domain.Taxonomy, maxYear int) *Decomposer {
	return &Decomposer{
		registry: registry,
		taxonomy: taxonomy,
		maxYear:  maxYear,
	}
}

var (
	yearRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	yearRangeRe = regexp.MustCompile(`\b((?:19|20)\d{2})\s*(?:-|–|to|through)\s*((?:19|20)\d{2})\b`)

	// Four-digit tokens in a time position that are not plausible years
	badYearRe = regexp.MustCompile(`(?i)\b(in|since|during|from|between)\s+(\d{3}|\d{5,})\b`)

	relativeRe = regexp.MustCompile(`(?i)\b(?:last|past)\s+(\w+)\s+years?\b`)
	lastYearRe = regexp.MustCompile(`(?i)\b(?:last|past)\s+year\b`)

	quarterlyRe  = regexp.MustCompile(`(?i)\b(quarterly|quarter|qoq|10-q)\b`)
	annualRe     = regexp.MustCompile(`(?i)\b(annual|annually|yearly|year-over-year|yoy|10-k)\b`)
	recentRe     = regexp.MustCompile(`(?i)\b(recent|latest|current)\b`)
	comparisonRe = regexp.MustCompile(`(?i)\b(compare|compared|comparison|versus|vs\.?|against|difference|differences)\b`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// Decompose derives QueryComponents from a query. Explicit filters on
// the query override anything parsed from the text. Returns
// *domain.AmbiguousQueryError when a time expression looks explicit but
// cannot be parsed.
func (d *Decomposer) Decompose(query domain.Query) (domain.QueryComponents, error) {
	var c domain.QueryComponents

	years, err := d.parseYears(query.Text)
	if err != nil {
		return c, err
	}
	c.Years = years
	c.Period = parsePeriod(query.Text)

	c.Companies = d.registry.MatchText(query.Text)
	c.Concepts = d.taxonomy.MatchText(query.Text)

	// Explicit filters win over parsed text
	if len(query.Filters.Companies) > 0 {
		c.Companies = d.resolveCompanies(query.Filters.Companies)
	}
	if !query.Filters.Years.IsZero() {
		if query.Filters.Years.Bounded() && query.Filters.Years.To < query.Filters.Years.From {
			return c, &domain.AmbiguousQueryError{
				Token:  rangeToken(query.Filters.Years),
				Reason: "year range is inverted",
			}
		}
		c.Years = query.Filters.Years
	}

	c.Comparison = len(c.Companies) >= 2 || len(c.Concepts) >= 2 ||
		comparisonRe.MatchString(query.Text)

	return c, nil
}

// resolveCompanies maps explicit filter values (tickers or aliases) to
// tickers. Unknown names are dropped; an all-unknown filter falls back
// to the full corpus rather than failing.
func (d *Decomposer) resolveCompanies(names []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, name := range names {
		ticker := ""
		if c, ok := d.registry.Get(name); ok {
			ticker = c.Ticker
		} else if matched := d.registry.MatchText(name); len(matched) == 1 {
			ticker = matched[0]
		}
		if ticker == "" {
			continue
		}
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}
		out = append(out, ticker)
	}
	return out
}

func (d *Decomposer) parseYears(text string) (domain.YearRange, error) {
	if m := badYearRe.FindStringSubmatch(text); m != nil {
		return domain.YearRange{}, &domain.AmbiguousQueryError{
			Token:  m[2],
			Reason: "cannot parse year",
		}
	}

	if m := yearRangeRe.FindStringSubmatch(text); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if to < from {
			return domain.YearRange{}, &domain.AmbiguousQueryError{
				Token:  m[0],
				Reason: "year range is inverted",
			}
		}
		return domain.YearRange{From: from, To: to}, nil
	}

	if years := yearRe.FindAllString(text, -1); len(years) > 0 {
		from, to := 0, 0
		for _, y := range years {
			year, _ := strconv.Atoi(y)
			if from == 0 || year < from {
				from = year
			}
			if year > to {
				to = year
			}
		}
		return domain.YearRange{From: from, To: to}, nil
	}

	if m := relativeRe.FindStringSubmatch(text); m != nil {
		word := strings.ToLower(m[1])
		n, err := strconv.Atoi(word)
		if err != nil {
			var ok bool
			n, ok = numberWords[word]
			if !ok {
				// "few"/"several" are vague, not malformed; leave the
				// range open rather than guessing or failing.
				if word == "few" || word == "several" || word == "couple" {
					return domain.YearRange{}, nil
				}
				return domain.YearRange{}, &domain.AmbiguousQueryError{
					Token:  m[0],
					Reason: "cannot parse relative year count",
				}
			}
		}
		if n <= 0 {
			return domain.YearRange{}, &domain.AmbiguousQueryError{
				Token:  m[0],
				Reason: "relative year count must be positive",
			}
		}
		return domain.YearRange{From: d.maxYear - n + 1, To: d.maxYear}, nil
	}

	if lastYearRe.MatchString(text) {
		return domain.YearRange{From: d.maxYear, To: d.maxYear}, nil
	}

	return domain.YearRange{}, nil
}

func parsePeriod(text string) domain.Period {
	switch {
	case quarterlyRe.MatchString(text):
		return domain.PeriodQuarterly
	case annualRe.MatchString(text):
		return domain.PeriodAnnual
	case recentRe.MatchString(text):
		return domain.PeriodRecent
	}
	return ""
}

func rangeToken(r domain.YearRange) string {
	return strconv.Itoa(r.From) + "-" + strconv.Itoa(r.To)
}
