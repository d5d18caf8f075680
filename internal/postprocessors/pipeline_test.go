package postprocessors

import (
	"strings"
	"testing"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Mock processor for pipeline ordering tests
type mockProcessor struct {
	name  string
	order int
}

func (m *mockProcessor) Process(chunks []driven.Chunk) []driven.Chunk {
	for i := range chunks {
		chunks[i].Content += "-" + m.name
	}
	return chunks
}

func (m *mockProcessor) Name() string { return m.name }
func (m *mockProcessor) Order() int   { return m.order }

func TestPipeline_OrdersProcessors(t *testing.T) {
	p := NewPipeline()
	p.Add(&mockProcessor{name: "second", order: 5})
	p.Add(&mockProcessor{name: "first", order: 0})

	chunks := p.Process("start")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "start-first-second" {
		t.Errorf("processors ran out of order: %s", chunks[0].Content)
	}
}

func TestPipeline_List(t *testing.T) {
	p := NewPipeline()
	p.Add(&mockProcessor{name: "a", order: 0})
	p.Add(&mockProcessor{name: "b", order: 1})

	names := p.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
}

func TestChunker_ShortContentSingleChunk(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())

	chunks := c.Process([]driven.Chunk{{Content: "revenue grew ten percent"}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "revenue grew ten percent" {
		t.Errorf("unexpected content: %s", chunks[0].Content)
	}
}

func TestChunker_SplitsAtWordBoundaries(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChunkSize: 30})

	content := "the quick brown fox jumps over the lazy dog near the riverbank every morning"
	chunks := c.Process([]driven.Chunk{{Content: content}})

	if len(chunks) < 2 {
		t.Fatalf("expected content to split, got %d chunks", len(chunks))
	}

	var rejoined []string
	for i, chunk := range chunks {
		if len(chunk.Content) > 30 {
			t.Errorf("chunk %d exceeds size bound: %d chars", i, len(chunk.Content))
		}
		if chunk.Position != i {
			t.Errorf("chunk %d has position %d", i, chunk.Position)
		}
		if strings.HasPrefix(chunk.Content, " ") || strings.HasSuffix(chunk.Content, " ") {
			t.Errorf("chunk %d has boundary whitespace: %q", i, chunk.Content)
		}
		rejoined = append(rejoined, chunk.Content)
	}

	// No words lost or duplicated across the split
	if strings.Join(rejoined, " ") != content {
		t.Errorf("rejoined chunks differ from input: %s", strings.Join(rejoined, " "))
	}
}

func TestChunker_CollapsesWhitespace(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())

	chunks := c.Process([]driven.Chunk{{Content: "net   sales\n\nincreased"}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "net sales increased" {
		t.Errorf("expected whitespace collapse, got %q", chunks[0].Content)
	}
}

func TestChunker_CarriesSectionMetadata(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChunkSize: 20})

	chunks := c.Process([]driven.Chunk{{
		Content:  "risk factors include supply chain disruption and currency exposure",
		Metadata: map[string]string{driven.MetaSection: "Risk Factors"},
	}})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Metadata[driven.MetaSection] != "Risk Factors" {
			t.Errorf("chunk %d lost section metadata", i)
		}
	}
}

func TestChunker_EmptyContent(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())

	chunks := c.Process([]driven.Chunk{{Content: "   "}})
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank content, got %d", len(chunks))
	}
}

func TestDeduplicator_RemovesExactDuplicates(t *testing.T) {
	d := NewDeduplicator()

	chunks := d.Process([]driven.Chunk{
		{Content: "safe harbor statement", Position: 0},
		{Content: "unique content", Position: 1},
		{Content: "Safe Harbor Statement", Position: 2},
	})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks after dedup, got %d", len(chunks))
	}
	if chunks[0].Position != 0 || chunks[1].Position != 1 {
		t.Errorf("expected positions renumbered, got %d, %d", chunks[0].Position, chunks[1].Position)
	}
}

func TestDefaultPipeline_EndToEnd(t *testing.T) {
	p := DefaultPipeline()

	names := p.List()
	if len(names) != 3 {
		t.Fatalf("expected 3 processors, got %d", len(names))
	}

	risks := strings.Repeat("The company operates in competitive markets worldwide. ", 10)
	mda := strings.Repeat("Net sales increased driven by services and new products. ", 10)
	content := "Item 1A. Risk Factors\n" + risks +
		"Item 7. Management's Discussion and Analysis\n" + mda

	chunks := p.Process(content)
	if len(chunks) == 0 {
		t.Fatal("expected chunks from pipeline")
	}

	sections := make(map[string]bool)
	for _, chunk := range chunks {
		sections[chunk.Metadata[driven.MetaSection]] = true
	}
	if !sections["Risk Factors"] {
		t.Error("expected Risk Factors chunks")
	}
	if !sections["Management Discussion and Analysis"] {
		t.Error("expected MD&A chunks")
	}
}
