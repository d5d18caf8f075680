package services

import (
	"context"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
	"github.com/custodia-labs/finsight-core/internal/runtime"
)

var _ driving.SettingsService = (*settingsService)(nil)

type settingsService struct {
	settingsStore driven.SettingsStore
	aiFactory     driven.AIServiceFactory
	services      *runtime.Services
	index         driven.CorpusIndex
	vespaConfig   driven.VespaConfigStore // nil on memory-index deployments
}

func NewSettingsService(
	settingsStore driven.SettingsStore,
	aiFactory driven.AIServiceFactory,
	services *runtime.Services,
	index driven.CorpusIndex,
	vespaConfig driven.VespaConfigStore,
) driving.SettingsService {
	return &settingsService{
		settingsStore: settingsStore,
		aiFactory:     aiFactory,
		services:      services,
		index:         index,
		vespaConfig:   vespaConfig,
	}
}

func (s *settingsService) Get(ctx context.Context) (*domain.Settings, error) {
	return s.settingsStore.GetSettings(ctx)
}

// override copies the request field onto the setting when it was sent.
func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Update applies a partial settings update. Absent fields keep their
// current values.
func (s *settingsService) Update(ctx context.Context, updaterID string, req driving.UpdateSettingsRequest) (*domain.Settings, error) {
	settings, err := s.settingsStore.GetSettings(ctx)
	if err != nil {
		// First update on a fresh deployment starts from the defaults
		settings = domain.DefaultSettings()
	}

	override(&settings.MaxRequests, req.MaxRequests)
	override(&settings.SectionCandidates, req.SectionCandidates)
	override(&settings.MergeLimit, req.MergeLimit)
	override(&settings.PerRequestLimit, req.PerRequestLimit)
	override(&settings.ContextBudget, req.ContextBudget)
	override(&settings.MaxSources, req.MaxSources)
	override(&settings.IngestEnabled, req.IngestEnabled)
	override(&settings.FilingsPerType, req.FilingsPerType)
	override(&settings.RefreshIntervalH, req.RefreshIntervalH)

	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	settings.UpdatedAt = time.Now()
	settings.UpdatedBy = updaterID

	if err := s.settingsStore.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func validateSettings(settings *domain.Settings) error {
	positive := []int{
		settings.MaxRequests,
		settings.SectionCandidates,
		settings.MergeLimit,
		settings.PerRequestLimit,
		settings.ContextBudget,
		settings.MaxSources,
		settings.FilingsPerType,
		settings.RefreshIntervalH,
	}
	for _, v := range positive {
		if v <= 0 {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

func (s *settingsService) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	return s.settingsStore.GetAISettings(ctx)
}

// UpdateAISettings persists the AI provider configuration and
// hot-swaps the running services to match it.
func (s *settingsService) UpdateAISettings(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
	aiSettings, err := s.settingsStore.GetAISettings(ctx)
	if err != nil {
		aiSettings = &domain.AISettings{}
	}

	if req.Embedding != nil {
		aiSettings.Embedding = domain.EmbeddingSettings{
			Provider: req.Embedding.Provider,
			Model:    req.Embedding.Model,
			APIKey:   req.Embedding.APIKey,
			BaseURL:  req.Embedding.BaseURL,
		}
	}
	if req.LLM != nil {
		aiSettings.LLM = domain.LLMSettings{
			Provider:    req.LLM.Provider,
			Model:       req.LLM.Model,
			APIKey:      req.LLM.APIKey,
			BaseURL:     req.LLM.BaseURL,
			MaxTokens:   req.LLM.MaxTokens,
			Temperature: req.LLM.Temperature,
		}
	}

	if err := aiSettings.Validate(); err != nil {
		return nil, err
	}
	aiSettings.UpdatedAt = time.Now()

	if err := s.settingsStore.SaveAISettings(ctx, aiSettings); err != nil {
		return nil, err
	}

	status := &driving.AISettingsStatus{
		Embedding: s.reloadEmbedding(ctx, aiSettings),
		LLM:       s.reloadLLM(ctx, aiSettings),
	}
	status.Index = s.indexStatus(ctx)
	status.SynthesisAvailable = s.services.Config().CanSynthesize()
	return status, nil
}

// reloadEmbedding swaps the running embedding service to match the
// saved settings. A failed swap leaves the slot empty rather than
// keeping a service the settings no longer describe.
func (s *settingsService) reloadEmbedding(ctx context.Context, aiSettings *domain.AISettings) driving.AIServiceStatus {
	if !aiSettings.Embedding.IsConfigured() {
		s.services.SetEmbeddingService(nil)
		return driving.AIServiceStatus{Available: false}
	}

	embSvc, err := s.aiFactory.CreateEmbeddingService(&aiSettings.Embedding)
	if err != nil {
		return driving.AIServiceStatus{Available: false}
	}
	if err := s.services.ValidateAndSetEmbedding(ctx, embSvc); err != nil {
		return driving.AIServiceStatus{Available: false}
	}
	return driving.AIServiceStatus{
		Available: true,
		Provider:  aiSettings.Embedding.Provider,
		Model:     aiSettings.Embedding.Model,
	}
}

func (s *settingsService) reloadLLM(ctx context.Context, aiSettings *domain.AISettings) driving.AIServiceStatus {
	if !aiSettings.LLM.IsConfigured() {
		s.services.SetLLMService(nil)
		return driving.AIServiceStatus{Available: false}
	}

	llmSvc, err := s.aiFactory.CreateLLMService(&aiSettings.LLM)
	if err != nil {
		return driving.AIServiceStatus{Available: false}
	}
	if err := s.services.ValidateAndSetLLM(ctx, llmSvc); err != nil {
		return driving.AIServiceStatus{Available: false}
	}
	return driving.AIServiceStatus{
		Available: true,
		Provider:  aiSettings.LLM.Provider,
		Model:     aiSettings.LLM.Model,
	}
}

// GetAIStatus reports what is currently running, not what is saved.
// Provider names come from the saved settings since services do not
// know which provider produced them.
func (s *settingsService) GetAIStatus(ctx context.Context) (*driving.AISettingsStatus, error) {
	aiSettings, _ := s.settingsStore.GetAISettings(ctx)

	status := &driving.AISettingsStatus{
		Index:              s.indexStatus(ctx),
		SynthesisAvailable: s.services.Config().CanSynthesize(),
	}

	if embSvc := s.services.EmbeddingService(); embSvc != nil {
		status.Embedding = driving.AIServiceStatus{
			Available:    true,
			Model:        embSvc.Model(),
			EmbeddingDim: embSvc.Dimensions(),
		}
		if aiSettings != nil {
			status.Embedding.Provider = aiSettings.Embedding.Provider
		}
	}

	if llmSvc := s.services.LLMService(); llmSvc != nil {
		status.LLM = driving.AIServiceStatus{
			Available: true,
			Model:     llmSvc.Model(),
		}
		if aiSettings != nil {
			status.LLM.Provider = aiSettings.LLM.Provider
		}
	}

	return status, nil
}

// indexStatus reports the corpus index backend and health.
func (s *settingsService) indexStatus(ctx context.Context) driving.IndexServiceStatus {
	status := driving.IndexServiceStatus{
		Backend: s.services.Config().IndexBackend,
	}

	if s.vespaConfig == nil {
		// Memory index needs no connection step
		status.Connected = true
	} else if cfg, err := s.vespaConfig.GetVespaConfig(ctx); err == nil && cfg != nil {
		status.Connected = cfg.IsConnected()
		status.SchemaMode = cfg.SchemaMode
		status.EmbeddingsEnabled = cfg.HasEmbeddings()
		status.EmbeddingDim = cfg.EmbeddingDim
	}

	if s.index != nil {
		status.Healthy = s.index.HealthCheck(ctx) == nil
	}
	return status
}

// TestConnection checks both configured AI providers end to end.
func (s *settingsService) TestConnection(ctx context.Context) error {
	if embSvc := s.services.EmbeddingService(); embSvc != nil {
		if err := embSvc.HealthCheck(ctx); err != nil {
			return err
		}
	}
	if llmSvc := s.services.LLMService(); llmSvc != nil {
		if err := llmSvc.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
