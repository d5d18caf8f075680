package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// UpdateSettingsRequest represents a request to update settings
// Note: AI configuration is managed via UpdateAISettingsRequest and /settings/ai endpoint
type UpdateSettingsRequest struct {
	MaxRequests       *int  `json:"max_requests,omitempty"`
	SectionCandidates *int  `json:"section_candidates,omitempty"`
	MergeLimit        *int  `json:"merge_limit,omitempty"`
	PerRequestLimit   *int  `json:"per_request_limit,omitempty"`
	ContextBudget     *int  `json:"context_budget,omitempty"`
	MaxSources        *int  `json:"max_sources,omitempty"`
	IngestEnabled     *bool `json:"ingest_enabled,omitempty"`
	FilingsPerType    *int  `json:"filings_per_type,omitempty"`
	RefreshIntervalH  *int  `json:"refresh_interval_hours,omitempty"`
}

// SettingsService manages deployment-wide settings (admin only)
type SettingsService interface {
	// Get retrieves the current settings
	Get(ctx context.Context) (*domain.Settings, error)

	// Update updates settings (admin only)
	Update(ctx context.Context, updaterID string, req UpdateSettingsRequest) (*domain.Settings, error)

	// GetAISettings retrieves the current AI configuration
	GetAISettings(ctx context.Context) (*domain.AISettings, error)

	// UpdateAISettings updates AI configuration and hot-reloads services
	// Returns the updated settings and whether each service is now available
	UpdateAISettings(ctx context.Context, req UpdateAISettingsRequest) (*AISettingsStatus, error)

	// GetAIStatus returns the current status of AI services
	GetAIStatus(ctx context.Context) (*AISettingsStatus, error)

	// TestConnection tests the AI provider connection
	TestConnection(ctx context.Context) error
}

// UpdateAISettingsRequest represents a request to update AI settings
type UpdateAISettingsRequest struct {
	Embedding *EmbeddingSettingsInput `json:"embedding,omitempty"`
	LLM       *LLMSettingsInput       `json:"llm,omitempty"`
}

// EmbeddingSettingsInput is the input for embedding configuration
type EmbeddingSettingsInput struct {
	Provider domain.AIProvider `json:"provider"`
	Model    string            `json:"model"`
	APIKey   string            `json:"api_key"`
	BaseURL  string            `json:"base_url,omitempty"`
}

// LLMSettingsInput is the input for LLM configuration
type LLMSettingsInput struct {
	Provider    domain.AIProvider `json:"provider"`
	Model       string            `json:"model"`
	APIKey      string            `json:"api_key"`
	BaseURL     string            `json:"base_url,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// AISettingsStatus represents the status of AI services
type AISettingsStatus struct {
	Embedding AIServiceStatus    `json:"embedding"`
	LLM       AIServiceStatus    `json:"llm"`
	Index     IndexServiceStatus `json:"index"`

	// SynthesisAvailable reports whether narrative answers can be
	// generated; when false, queries degrade to citations-only.
	SynthesisAvailable bool `json:"synthesis_available"`
}

// IndexServiceStatus represents the status of the corpus index
type IndexServiceStatus struct {
	Connected         bool                   `json:"connected"`
	Backend           string                 `json:"backend"`
	SchemaMode        domain.VespaSchemaMode `json:"schema_mode,omitempty"`
	EmbeddingsEnabled bool                   `json:"embeddings_enabled"`
	EmbeddingDim      int                    `json:"embedding_dim,omitempty"`
	Healthy           bool                   `json:"healthy"`
}

// AIServiceStatus represents the status of a single AI service
type AIServiceStatus struct {
	Available    bool              `json:"available"`
	Provider     domain.AIProvider `json:"provider,omitempty"`
	Model        string            `json:"model,omitempty"`
	EmbeddingDim int               `json:"embedding_dim,omitempty"` // Only for embedding service
}
