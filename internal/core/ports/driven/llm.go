package driven

import (
	"context"
)

// CompletionRequest is one synthesis call to the language model.
// Context carries the retrieved source blocks; Instructions carries the
// system-level grounding directive.
type CompletionRequest struct {
	Instructions string // System prompt
	Context      string // Retrieved source material
	Prompt       string // The user's question
	MaxTokens    int    // 0 = provider default
	Temperature  float64
}

// LLMService is the language-model collaborator used for answer
// synthesis. Implementations must respect the caller's context
// deadline; timeouts and transport failures are returned as errors and
// retried by the synthesis orchestrator, never inside the adapter.
type LLMService interface {
	// Complete generates a grounded answer from the request.
	// Returns the raw model text; source-marker parsing happens upstream.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
