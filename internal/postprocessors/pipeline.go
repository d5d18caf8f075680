// Package postprocessors turns normalised filing text into sectioned,
// bounded chunks ready for embedding and indexing. The pipeline runs
// the section splitter first, then the chunker.
package postprocessors

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// Processors are sorted by Order() before the first run.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates an empty post-processor pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order. Input is the normalised
// filing text; output is the sectioned, bounded chunks.
func (p *Pipeline) Process(content string) []driven.Chunk {
	p.mu.Lock()
	if !p.sorted {
		sort.Slice(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	p.mu.Unlock()

	p.mu.RLock()
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.RUnlock()

	chunks := []driven.Chunk{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   len(content),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}

	return chunks
}

// List returns processor names in order
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates the filing processing pipeline:
// section splitting, then word-boundary chunking, then deduplication.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.Add(NewSectionSplitter(DefaultSectionConfig()))
	p.Add(NewChunker(DefaultChunkConfig()))
	p.Add(NewDeduplicator())
	return p
}

// ChunkConfig configures the chunker
type ChunkConfig struct {
	// MaxChunkSize is the maximum characters per chunk
	MaxChunkSize int
}

// DefaultChunkConfig returns the standard chunk bound
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize: 1000,
	}
}

// Chunker splits section text into word-boundary chunks no larger
// than MaxChunkSize characters. Section metadata from the splitter is
// carried onto every chunk produced from that section.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a chunker with the given config
func NewChunker(config ChunkConfig) *Chunker {
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = DefaultChunkConfig().MaxChunkSize
	}
	return &Chunker{config: config}
}

// Process splits each input chunk into bounded chunks
func (c *Chunker) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	position := 0

	for _, chunk := range chunks {
		for _, text := range c.splitWords(chunk.Content) {
			result = append(result, driven.Chunk{
				Content:  text,
				Position: position,
				Metadata: copyMetadata(chunk.Metadata),
			})
			position++
		}
	}

	return result
}

// Name returns the processor name
func (c *Chunker) Name() string {
	return "chunker"
}

// Order places the chunker after the section splitter
func (c *Chunker) Order() int {
	return 1
}

// splitWords accumulates words until adding the next one would exceed
// the size bound. Words longer than the bound become their own chunk.
// Whitespace runs collapse to single spaces as a side effect.
func (c *Chunker) splitWords(content string) []string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentSize := 0

	for _, word := range words {
		wordLen := len(word) + 1
		if currentSize+wordLen > c.config.MaxChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{word}
			currentSize = len(word)
		} else {
			current = append(current, word)
			currentSize += wordLen
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// Deduplicator drops chunks whose normalised text already appeared.
// Filings repeat boilerplate (safe-harbor statements, table headers)
// across sections; duplicates add index noise without retrieval value.
type Deduplicator struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*Deduplicator)(nil)

// NewDeduplicator creates a deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Process removes exact duplicate chunks, keeping first occurrence
// and renumbering positions.
func (d *Deduplicator) Process(chunks []driven.Chunk) []driven.Chunk {
	if len(chunks) <= 1 {
		return chunks
	}

	seen := make(map[string]bool)
	var result []driven.Chunk

	for _, chunk := range chunks {
		normalized := strings.TrimSpace(strings.ToLower(chunk.Content))
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		chunk.Position = len(result)
		result = append(result, chunk)
	}

	return result
}

// Name returns the processor name
func (d *Deduplicator) Name() string {
	return "deduplicator"
}

// Order places deduplication last
func (d *Deduplicator) Order() int {
	return 10
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
