package mocks

import (
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// MockNormaliser is a configurable Normaliser for tests. With no
// fields set it passes content through unchanged and claims the MIME
// types of EDGAR documents.
type MockNormaliser struct {
	Types       []string
	Pri         int
	NormaliseFn func(content string, mimeType string) string
}

func NewMockNormaliser() *MockNormaliser {
	return &MockNormaliser{
		Types: []string{"text/html", "text/plain"},
		Pri:   50,
	}
}

func (m *MockNormaliser) Normalise(content string, mimeType string) string {
	if m.NormaliseFn != nil {
		return m.NormaliseFn(content, mimeType)
	}
	return content
}

func (m *MockNormaliser) SupportedTypes() []string { return m.Types }

func (m *MockNormaliser) Priority() int { return m.Pri }

// MockNormaliserRegistry answers every lookup with its registered
// normalisers, most recently registered first. A fresh registry holds
// a single passthrough MockNormaliser.
type MockNormaliserRegistry struct {
	GetFn       func(mimeType string) driven.Normaliser
	GetAllFn    func(mimeType string) []driven.Normaliser
	normalisers []driven.Normaliser
}

func NewMockNormaliserRegistry() *MockNormaliserRegistry {
	return &MockNormaliserRegistry{
		normalisers: []driven.Normaliser{NewMockNormaliser()},
	}
}

func (m *MockNormaliserRegistry) Get(mimeType string) driven.Normaliser {
	if m.GetFn != nil {
		return m.GetFn(mimeType)
	}
	if len(m.normalisers) == 0 {
		return nil
	}
	return m.normalisers[0]
}

func (m *MockNormaliserRegistry) GetAll(mimeType string) []driven.Normaliser {
	if m.GetAllFn != nil {
		return m.GetAllFn(mimeType)
	}
	return m.normalisers
}

func (m *MockNormaliserRegistry) Register(normaliser driven.Normaliser) {
	m.normalisers = append([]driven.Normaliser{normaliser}, m.normalisers...)
}

func (m *MockNormaliserRegistry) List() []string {
	var types []string
	for _, n := range m.normalisers {
		types = append(types, n.SupportedTypes()...)
	}
	return types
}

// SetNormaliser replaces all registered normalisers with one.
func (m *MockNormaliserRegistry) SetNormaliser(n driven.Normaliser) {
	m.normalisers = []driven.Normaliser{n}
}

// MockPostProcessorPipeline chunks content through ProcessFn, or as a
// single whole-document chunk when unset.
type MockPostProcessorPipeline struct {
	ProcessFn func(content string) []driven.Chunk
	added     []driven.PostProcessor
}

func NewMockPostProcessorPipeline() *MockPostProcessorPipeline {
	return &MockPostProcessorPipeline{}
}

func (m *MockPostProcessorPipeline) Process(content string) []driven.Chunk {
	if m.ProcessFn != nil {
		return m.ProcessFn(content)
	}
	return []driven.Chunk{
		{Content: content, Position: 0, StartOffset: 0, EndOffset: len(content)},
	}
}

func (m *MockPostProcessorPipeline) Add(processor driven.PostProcessor) {
	m.added = append(m.added, processor)
}

func (m *MockPostProcessorPipeline) List() []string {
	names := make([]string, len(m.added))
	for i, p := range m.added {
		names[i] = p.Name()
	}
	return names
}
