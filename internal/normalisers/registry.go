// Package normalisers converts raw filing content into clean text for
// section extraction. Normalisers are selected by MIME type with
// priority-based tie-breaking.
package normalisers

import (
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry holds normalisers sorted by descending priority, so lookups
// are a filter over an already-ordered slice.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a registry with the filing normalisers
// pre-registered: HTML for EDGAR primary documents and a plain text
// catch-all for older full-text submissions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlaintextNormaliser{})
	r.Register(&FilingHTMLNormaliser{})
	return r
}

func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, normaliser)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Get returns the highest-priority normaliser matching the MIME type,
// nil when none match.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := canonicalMIME(mimeType)
	for _, n := range r.normalisers {
		if supports(n, want) {
			return n
		}
	}
	return nil
}

// GetAll returns every matching normaliser, best first.
func (r *Registry) GetAll(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := canonicalMIME(mimeType)
	var matches []driven.Normaliser
	for _, n := range r.normalisers {
		if supports(n, want) {
			matches = append(matches, n)
		}
	}
	return matches
}

// List returns the union of registered MIME types, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, t := range n.SupportedTypes() {
			seen[t] = struct{}{}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// canonicalMIME lowercases and strips parameters such as charset.
func canonicalMIME(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func supports(n driven.Normaliser, mimeType string) bool {
	for _, pattern := range n.SupportedTypes() {
		if matchPattern(canonicalMIME(pattern), mimeType) {
			return true
		}
	}
	return false
}

// matchPattern matches exact types plus "type/*" and "*/*" wildcards.
func matchPattern(pattern, mimeType string) bool {
	if pattern == mimeType || pattern == "*/*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mimeType, prefix+"/")
	}
	return false
}

// PlaintextNormaliser handles plain text submissions. It is the
// catch-all fallback for unrecognised MIME types.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content string, mimeType string) string {
	return strings.TrimSpace(normaliseNewlines(content))
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain", "*/*"}
}

func (n *PlaintextNormaliser) Priority() int {
	return 1
}

// FilingHTMLNormaliser extracts text from EDGAR HTML filings.
// Modern primary documents are inline XBRL: HTML with ix: namespace
// tags wrapping tagged facts. Tag stripping handles those the same as
// regular markup since the fact text is in the element body.
type FilingHTMLNormaliser struct{}

func (n *FilingHTMLNormaliser) Normalise(content string, mimeType string) string {
	// Hidden inline XBRL metadata carries no readable text
	for _, tag := range []string{"ix:header", "script", "style"} {
		content = dropElement(content, tag)
	}

	content = stripTags(content)
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, " ", " ")
	content = normaliseNewlines(content)

	return strings.TrimSpace(collapseWhitespace(content))
}

func (n *FilingHTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *FilingHTMLNormaliser) Priority() int {
	return 50
}

func normaliseNewlines(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// dropElement removes every occurrence of an element and its contents.
func dropElement(content, tagName string) string {
	openTag := "<" + strings.ToLower(tagName)
	closeTag := "</" + strings.ToLower(tagName) + ">"

	for {
		lower := strings.ToLower(content)
		start := strings.Index(lower, openTag)
		if start == -1 {
			return content
		}
		end := strings.Index(lower[start:], closeTag)
		if end == -1 {
			return content
		}
		content = content[:start] + content[start+end+len(closeTag):]
	}
}

// stripTags replaces markup with spaces so adjacent cells and
// paragraphs do not fuse into one word.
func stripTags(content string) string {
	var out strings.Builder
	out.Grow(len(content))
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			out.WriteRune(' ')
		case !inTag:
			out.WriteRune(r)
		}
	}
	return out.String()
}

// collapseWhitespace squeezes runs of spaces (EDGAR tables leave many)
// and caps blank runs at one empty line, in a single pass.
func collapseWhitespace(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	spaces, newlines := 0, 0
	for _, r := range content {
		switch r {
		case ' ', '\t':
			spaces++
		case '\n':
			newlines++
			spaces = 0
		default:
			if newlines > 0 {
				if newlines > 2 {
					newlines = 2
				}
				out.WriteString(strings.Repeat("\n", newlines))
			} else if spaces > 0 {
				out.WriteByte(' ')
			}
			spaces, newlines = 0, 0
			out.WriteRune(r)
		}
	}
	return out.String()
}
