package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Services is the registry of hot-swappable AI services. Admins can
// reconfigure the embedding and synthesis providers through the
// settings API without a restart, so every read goes through here
// rather than holding a service reference across requests.
//
// Safe for concurrent use. A nil slot means the capability is off and
// the research pipeline degrades to retrieval-only answers.
type Services struct {
	mu        sync.RWMutex
	config    *domain.RuntimeConfig
	embedding driven.EmbeddingService
	llm       driven.LLMService
}

func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{config: config}
}

func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service, nil when
// embeddings are not configured.
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedding
}

// LLMService returns the current synthesis service, nil when no LLM
// is configured.
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llm
}

// SetEmbeddingService installs svc, closing any predecessor, and keeps
// the capability flag in sync. Passing nil disables embeddings.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.embedding != nil {
		_ = s.embedding.Close()
	}
	s.embedding = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetLLMService installs svc, closing any predecessor, and keeps the
// capability flag in sync. Passing nil disables synthesis.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.llm != nil {
		_ = s.llm.Close()
	}
	s.llm = svc
	s.config.SetLLMAvailable(svc != nil)
}

// ValidateAndSetEmbedding installs svc only if it answers a health
// check. A failing service is closed and the slot left unchanged.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM installs svc only if it answers a ping.
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetLLMService(svc)
	return nil
}

// Close shuts down both services and clears the capability flags.
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embedding != nil {
		_ = s.embedding.Close()
		s.embedding = nil
	}
	if s.llm != nil {
		_ = s.llm.Close()
		s.llm = nil
	}
	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)
	return nil
}
