package domain

import "time"

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderFireworks AIProvider = "fireworks"
	AIProviderOllama    AIProvider = "ollama"
)

// Settings holds instance-wide research configuration
type Settings struct {
	// Retrieval defaults
	MaxRequests       int `json:"max_requests"`        // Cap on fan-out per query
	SectionCandidates int `json:"section_candidates"`  // Taxonomy candidates queried per concept
	MergeLimit        int `json:"merge_limit"`         // Max chunks kept after merge
	PerRequestLimit   int `json:"per_request_limit"`   // Result limit per index request

	// Synthesis defaults
	ContextBudget int `json:"context_budget"` // Max context characters
	MaxSources    int `json:"max_sources"`    // Max chunks rendered into the prompt

	// Ingest configuration
	IngestEnabled    bool `json:"ingest_enabled"`
	FilingsPerType   int  `json:"filings_per_type"` // EDGAR fetch limit per filing type
	RefreshIntervalH int  `json:"refresh_interval_hours"`

	// Metadata
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"` // User ID
}

// DefaultSettings returns sensible defaults for a new deployment
func DefaultSettings() *Settings {
	return &Settings{
		MaxRequests:       24,
		SectionCandidates: 2,
		MergeLimit:        24,
		PerRequestLimit:   10,
		ContextBudget:     8000,
		MaxSources:        8,
		IngestEnabled:     true,
		FilingsPerType:    3,
		RefreshIntervalH:  24,
		UpdatedAt:         time.Now(),
	}
}

// AISettings holds AI service configuration (embedding and LLM)
// This can be updated at runtime via API
type AISettings struct {
	Embedding EmbeddingSettings `json:"embedding"`
	LLM       LLMSettings       `json:"llm"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings configures the LLM service used for synthesis
type LLMSettings struct {
	Provider    AIProvider `json:"provider"`
	Model       string     `json:"model"`
	APIKey      string     `json:"-"` // Never serialize to JSON
	BaseURL     string     `json:"base_url,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Temperature float64    `json:"temperature,omitempty"`
}

// IsConfigured returns true if LLM settings are properly configured
func (l *LLMSettings) IsConfigured() bool {
	if l.Provider == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderOllama:
		return false // Self-hosted, no API key needed
	default:
		return true
	}
}

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderFireworks, AIProviderOllama:
		return true
	default:
		return false
	}
}

// Validate checks if AISettings are valid
func (s *AISettings) Validate() error {
	if s.Embedding.Provider != "" && !s.Embedding.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if s.LLM.Provider != "" && !s.LLM.Provider.IsValid() {
		return ErrInvalidProvider
	}
	return nil
}
