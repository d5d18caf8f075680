package ai

import (
	"errors"
	"testing"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

func TestNewFactory(t *testing.T) {
	factory := NewFactory()
	if factory == nil {
		t.Fatal("expected non-nil factory")
	}
}

func TestFactory_CreateEmbeddingService_NilSettings(t *testing.T) {
	factory := NewFactory()

	svc, err := factory.CreateEmbeddingService(nil)
	if err != nil {
		t.Errorf("expected no error for nil settings, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for nil settings")
	}
}

func TestFactory_CreateEmbeddingService_NotConfigured(t *testing.T) {
	factory := NewFactory()

	settings := &domain.EmbeddingSettings{
		Provider: "",
		Model:    "",
		APIKey:   "",
	}

	svc, err := factory.CreateEmbeddingService(settings)
	if err != nil {
		t.Errorf("expected no error for unconfigured settings, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for unconfigured settings")
	}
}

func TestFactory_CreateEmbeddingService_OpenAI(t *testing.T) {
	factory := NewFactory()

	settings := &domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
	}

	svc, err := factory.CreateEmbeddingService(settings)
	if err != nil {
		t.Errorf("expected no error for OpenAI, got %v", err)
	}
	if svc == nil {
		t.Fatal("expected non-nil embedding service")
	}
	if svc.Model() != "text-embedding-3-small" {
		t.Errorf("expected model text-embedding-3-small, got %s", svc.Model())
	}
}

func TestFactory_CreateEmbeddingService_Fireworks(t *testing.T) {
	factory := NewFactory()

	settings := &domain.EmbeddingSettings{
		Provider: domain.AIProviderFireworks,
		Model:    "nomic-ai/nomic-embed-text-v1.5",
		APIKey:   "fw-test",
	}

	svc, err := factory.CreateEmbeddingService(settings)
	if err != nil {
		t.Errorf("expected no error for Fireworks, got %v", err)
	}
	if svc == nil {
		t.Fatal("expected non-nil embedding service")
	}
}

func TestFactory_CreateEmbeddingService_Ollama(t *testing.T) {
	factory := NewFactory()

	// Ollama requires no API key
	settings := &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	}

	svc, err := factory.CreateEmbeddingService(settings)
	if err != nil {
		t.Errorf("expected no error for Ollama, got %v", err)
	}
	if svc == nil {
		t.Fatal("expected non-nil embedding service")
	}
	if svc.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions for nomic-embed-text, got %d", svc.Dimensions())
	}
}

func TestFactory_CreateEmbeddingService_InvalidProvider(t *testing.T) {
	factory := NewFactory()

	settings := &domain.EmbeddingSettings{
		Provider: "bedrock",
		Model:    "titan-embed",
		APIKey:   "key",
	}

	_, err := factory.CreateEmbeddingService(settings)
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}

func TestFactory_CreateLLMService_NilSettings(t *testing.T) {
	factory := NewFactory()

	svc, err := factory.CreateLLMService(nil)
	if err != nil {
		t.Errorf("expected no error for nil settings, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for nil settings")
	}
}

func TestFactory_CreateLLMService_NotConfigured(t *testing.T) {
	factory := NewFactory()

	settings := &domain.LLMSettings{
		Provider: "",
		Model:    "",
		APIKey:   "",
	}

	svc, err := factory.CreateLLMService(settings)
	if err != nil {
		t.Errorf("expected no error for unconfigured settings, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for unconfigured settings")
	}
}

func TestFactory_CreateLLMService_OpenAI(t *testing.T) {
	factory := NewFactory()

	settings := &domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test",
	}

	svc, err := factory.CreateLLMService(settings)
	if err != nil {
		t.Errorf("expected no error for OpenAI, got %v", err)
	}
	if svc == nil {
		t.Fatal("expected non-nil LLM service")
	}
	if svc.Model() != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %s", svc.Model())
	}
}

func TestFactory_CreateLLMService_Fireworks(t *testing.T) {
	factory := NewFactory()

	settings := &domain.LLMSettings{
		Provider: domain.AIProviderFireworks,
		Model:    "accounts/fireworks/models/llama-v3p1-70b-instruct",
		APIKey:   "fw-test",
	}

	svc, err := factory.CreateLLMService(settings)
	if err != nil {
		t.Errorf("expected no error for Fireworks, got %v", err)
	}
	if svc == nil {
		t.Fatal("expected non-nil LLM service")
	}
}

func TestFactory_CreateLLMService_Ollama(t *testing.T) {
	factory := NewFactory()

	settings := &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.1",
	}

	svc, err := factory.CreateLLMService(settings)
	if err != nil {
		t.Errorf("expected no error for Ollama, got %v", err)
	}
	if svc == nil {
		t.Fatal("expected non-nil LLM service")
	}
}

func TestFactory_CreateLLMService_InvalidProvider(t *testing.T) {
	factory := NewFactory()

	settings := &domain.LLMSettings{
		Provider: "bedrock",
		Model:    "titan-text",
		APIKey:   "key",
	}

	_, err := factory.CreateLLMService(settings)
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}
