package domain

import (
	"testing"
)

func TestAIProviderConstants(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected string
	}{
		{AIProviderOpenAI, "openai"},
		{AIProviderFireworks, "fireworks"},
		{AIProviderOllama, "ollama"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			if string(tt.provider) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(tt.provider))
			}
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if settings.MaxRequests != 24 {
		t.Errorf("expected MaxRequests 24, got %d", settings.MaxRequests)
	}
	if settings.SectionCandidates != 2 {
		t.Errorf("expected SectionCandidates 2, got %d", settings.SectionCandidates)
	}
	if settings.MergeLimit != 24 {
		t.Errorf("expected MergeLimit 24, got %d", settings.MergeLimit)
	}
	if settings.PerRequestLimit != 10 {
		t.Errorf("expected PerRequestLimit 10, got %d", settings.PerRequestLimit)
	}
	if settings.ContextBudget != 8000 {
		t.Errorf("expected ContextBudget 8000, got %d", settings.ContextBudget)
	}
	if settings.MaxSources != 8 {
		t.Errorf("expected MaxSources 8, got %d", settings.MaxSources)
	}
	if !settings.IngestEnabled {
		t.Error("expected IngestEnabled to be true")
	}
	if settings.FilingsPerType != 3 {
		t.Errorf("expected FilingsPerType 3, got %d", settings.FilingsPerType)
	}
	if settings.RefreshIntervalH != 24 {
		t.Errorf("expected RefreshIntervalH 24, got %d", settings.RefreshIntervalH)
	}
	if settings.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestEmbeddingSettingsIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{
			name:     "empty provider",
			settings: EmbeddingSettings{},
			expected: false,
		},
		{
			name:     "openai with key",
			settings: EmbeddingSettings{Provider: AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-x"},
			expected: true,
		},
		{
			name:     "openai without key",
			settings: EmbeddingSettings{Provider: AIProviderOpenAI, Model: "text-embedding-3-small"},
			expected: false,
		},
		{
			name:     "ollama without key",
			settings: EmbeddingSettings{Provider: AIProviderOllama, Model: "nomic-embed-text"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IsConfigured(); got != tt.expected {
				t.Errorf("expected IsConfigured() = %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLLMSettingsIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings LLMSettings
		expected bool
	}{
		{
			name:     "empty provider",
			settings: LLMSettings{},
			expected: false,
		},
		{
			name:     "fireworks with key",
			settings: LLMSettings{Provider: AIProviderFireworks, Model: "llama-v3p1-70b-instruct", APIKey: "fw-x"},
			expected: true,
		},
		{
			name:     "fireworks without key",
			settings: LLMSettings{Provider: AIProviderFireworks, Model: "llama-v3p1-70b-instruct"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IsConfigured(); got != tt.expected {
				t.Errorf("expected IsConfigured() = %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAIProviderRequiresAPIKey(t *testing.T) {
	if !AIProviderOpenAI.RequiresAPIKey() {
		t.Error("openai requires an API key")
	}
	if !AIProviderFireworks.RequiresAPIKey() {
		t.Error("fireworks requires an API key")
	}
	if AIProviderOllama.RequiresAPIKey() {
		t.Error("ollama is self-hosted, no API key needed")
	}
}

func TestAIProviderIsValid(t *testing.T) {
	valid := []AIProvider{AIProviderOpenAI, AIProviderFireworks, AIProviderOllama}
	for _, p := range valid {
		if !p.IsValid() {
			t.Errorf("expected %s to be valid", p)
		}
	}
	if AIProvider("bedrock").IsValid() {
		t.Error("expected unknown provider to be invalid")
	}
}

func TestAISettingsValidate(t *testing.T) {
	ok := &AISettings{
		Embedding: EmbeddingSettings{Provider: AIProviderOpenAI},
		LLM:       LLMSettings{Provider: AIProviderFireworks},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := &AISettings{LLM: LLMSettings{Provider: AIProvider("unknown")}}
	if err := bad.Validate(); err != ErrInvalidProvider {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}

	empty := &AISettings{}
	if err := empty.Validate(); err != nil {
		t.Errorf("empty settings are valid (unconfigured), got %v", err)
	}
}
