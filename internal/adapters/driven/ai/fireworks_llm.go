package ai

import (
	"fmt"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// NewFireworksLLM creates an LLM service backed by Fireworks AI.
// Fireworks exposes an OpenAI-compatible chat completions API, so the
// adapter reuses the OpenAI client with a different base URL.
func NewFireworksLLM(apiKey, model, baseURL string) (driven.LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Fireworks API key is required")
	}

	if model == "" {
		model = "accounts/fireworks/models/llama-v3p1-70b-instruct"
	}

	return NewOpenAILLM(apiKey, model, fireworksBaseURL(baseURL))
}
