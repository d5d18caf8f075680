package domain

import "sync"

// RuntimeConfig tracks which collaborator services are available at
// runtime. Determined at startup and updated dynamically when AI
// services change. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis" or "postgres"
	IndexBackend   string // "vespa" or "memory"

	// Dynamic capability flags (updated when AI services change)
	embeddingAvailable bool
	llmAvailable       bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, indexBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		IndexBackend:   indexBackend,
	}
}

// EmbeddingAvailable returns whether the embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether the synthesis model is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// CanSynthesize returns true if narrative answers can be generated.
// When false, queries degrade to citations-only responses.
func (c *RuntimeConfig) CanSynthesize() bool {
	return c.LLMAvailable()
}

// CanIndex returns true if new chunks can be pushed to the corpus index
func (c *RuntimeConfig) CanIndex() bool {
	if c.IndexBackend == "memory" {
		return c.EmbeddingAvailable()
	}
	return true
}
