package postprocessors

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// sectionPattern maps a heading pattern to a canonical section name.
// Heading styles vary across filers ("Item 1A. Risk Factors",
// "ITEM 1A - RISK FACTORS", "Item 1A Risk Factors"), so matching is
// a declarative pattern table rather than exact string comparison.
type sectionPattern struct {
	section string
	re      *regexp.Regexp
}

// headingSep admits the separator styles filers use between the item
// number and the section title: "Item 1A. Risk Factors",
// "ITEM 1A - RISK FACTORS", "Item 1A: Risk Factors", "Item 1A Risk Factors".
const headingSep = `[\s.:\x{2013}\x{2014}-]*`

var sectionPatterns = []sectionPattern{
	{domain.SectionRiskFactors, regexp.MustCompile(`(?i)item\s*1a` + headingSep + `risk\s*factors`)},
	{domain.SectionBusiness, regexp.MustCompile(`(?i)item\s*1` + headingSep + `business`)},
	{domain.SectionMDA, regexp.MustCompile(`(?i)item\s*7` + headingSep + `management'?s\s*discussion`)},
	{domain.SectionFinancials, regexp.MustCompile(`(?i)item\s*8` + headingSep + `financial\s*statements`)},
	{domain.SectionCompDiscuss, regexp.MustCompile(`(?i)compensation\s*discussion`)},
	{domain.SectionCompensation, regexp.MustCompile(`(?i)executive\s*compensation`)},
}

// SectionConfig configures the section splitter
type SectionConfig struct {
	// MinSectionLength drops fragments too short to carry substance
	MinSectionLength int
}

// DefaultSectionConfig returns the standard minimum section length
func DefaultSectionConfig() SectionConfig {
	return SectionConfig{
		MinSectionLength: 200,
	}
}

// SectionSplitter extracts canonical filing sections from normalised
// text. Each section becomes one chunk carrying the section name in
// its metadata. Content matching no heading pattern falls back to a
// single "General Content" section.
type SectionSplitter struct {
	config SectionConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*SectionSplitter)(nil)

// NewSectionSplitter creates a section splitter with the given config
func NewSectionSplitter(config SectionConfig) *SectionSplitter {
	if config.MinSectionLength <= 0 {
		config.MinSectionLength = DefaultSectionConfig().MinSectionLength
	}
	return &SectionSplitter{config: config}
}

// Process splits each input chunk into section chunks
func (s *SectionSplitter) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	position := 0

	for _, chunk := range chunks {
		for _, sec := range s.extractSections(chunk.Content) {
			result = append(result, driven.Chunk{
				Content:  sec.Text,
				Position: position,
				Metadata: map[string]string{driven.MetaSection: sec.Name},
			})
			position++
		}
	}

	return result
}

// Name returns the processor name
func (s *SectionSplitter) Name() string {
	return "section-splitter"
}

// Order places the splitter first in the pipeline
func (s *SectionSplitter) Order() int {
	return 0
}

// extractSections finds each known section heading and takes the text
// from the end of the heading to the start of the next recognised
// heading. Sections shorter than the minimum are dropped. When nothing
// matches, the whole document becomes one General Content section.
func (s *SectionSplitter) extractSections(content string) []domain.FilingSection {
	var sections []domain.FilingSection

	for _, sp := range sectionPatterns {
		loc := sp.re.FindStringIndex(content)
		if loc == nil {
			continue
		}

		start := loc[1]
		end := len(content)

		// Section ends where the next recognised heading begins
		for _, other := range sectionPatterns {
			if other.section == sp.section {
				continue
			}
			if next := other.re.FindStringIndex(content[start:]); next != nil {
				if candidate := start + next[0]; candidate < end {
					end = candidate
				}
			}
		}

		text := strings.TrimSpace(content[start:end])
		if len(text) >= s.config.MinSectionLength {
			sections = append(sections, domain.FilingSection{Name: sp.section, Text: text})
		}
	}

	if len(sections) == 0 {
		if text := strings.TrimSpace(content); len(text) >= s.config.MinSectionLength {
			sections = append(sections, domain.FilingSection{Name: domain.SectionGeneral, Text: text})
		}
	}

	return sections
}
