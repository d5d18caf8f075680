package mocks

import (
	"context"
	"hash/fnv"
)

// MockEmbeddingService produces deterministic vectors derived from the
// input text, so the same chunk always embeds to the same vector and
// similarity assertions are stable across runs.
type MockEmbeddingService struct {
	Dim       int
	ModelName string
	EmbedErr  error // returned once by the next Embed or EmbedQuery
	HealthErr error
}

func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		Dim:       384,
		ModelName: "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.vectorFor(text)
	}
	return vectors, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	return m.vectorFor(query), nil
}

func (m *MockEmbeddingService) Dimensions() int { return m.Dim }

func (m *MockEmbeddingService) Model() string { return m.ModelName }

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error { return m.HealthErr }

func (m *MockEmbeddingService) Close() error { return nil }

func (m *MockEmbeddingService) takeErr() error {
	err := m.EmbedErr
	m.EmbedErr = nil
	return err
}

// vectorFor seeds a linear congruential generator with the text hash.
func (m *MockEmbeddingService) vectorFor(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, m.Dim)
	for i := range vector {
		seed = seed*1103515245 + 12345
		vector[i] = float32(seed%1000) / 1000.0
	}
	return vector
}
