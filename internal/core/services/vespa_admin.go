package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
	"github.com/custodia-labs/finsight-core/internal/runtime"
)

var _ driving.VespaAdminService = (*vespaAdminService)(nil)

const defaultVespaEndpoint = "http://vespa:19071"

// vespaAdminService connects the deployment to a Vespa cluster and
// manages which chunk schema (BM25-only or hybrid) is deployed there.
type vespaAdminService struct {
	deployer      driven.VespaDeployer
	configStore   driven.VespaConfigStore
	settingsStore driven.SettingsStore
	services      *runtime.Services
}

func NewVespaAdminService(
	deployer driven.VespaDeployer,
	configStore driven.VespaConfigStore,
	settingsStore driven.SettingsStore,
	services *runtime.Services,
) driving.VespaAdminService {
	return &vespaAdminService{
		deployer:      deployer,
		configStore:   configStore,
		settingsStore: settingsStore,
		services:      services,
	}
}

// targetEmbedding reports the embedding dimension and provider the
// schema should be built for, nil dimension when no embedding service
// is configured.
func (s *vespaAdminService) targetEmbedding(ctx context.Context) (*int, domain.AIProvider) {
	embSvc := s.services.EmbeddingService()
	if embSvc == nil {
		return nil, ""
	}
	dim := embSvc.Dimensions()

	var provider domain.AIProvider
	if aiSettings, _ := s.settingsStore.GetAISettings(ctx); aiSettings != nil {
		provider = aiSettings.Embedding.Provider
	}
	return &dim, provider
}

// validateTransition rejects schema changes that would orphan indexed
// embeddings: hybrid never downgrades to BM25, and a deployed dimension
// never changes without a full reindex.
func validateTransition(config *domain.VespaConfig, embeddingDim *int) error {
	if config.SchemaMode != domain.VespaSchemaModeHybrid {
		return nil
	}
	if embeddingDim == nil {
		return fmt.Errorf("cannot downgrade from hybrid to BM25-only schema; embeddings are already indexed")
	}
	if *embeddingDim != config.EmbeddingDim {
		return fmt.Errorf("cannot change embedding dimension from %d to %d; would require reindexing all documents",
			config.EmbeddingDim, *embeddingDim)
	}
	return nil
}

func statusFromConfig(config *domain.VespaConfig, canUpgrade, reindexRequired, healthy bool) *driving.VespaStatus {
	return &driving.VespaStatus{
		Connected:         config.Connected,
		Endpoint:          config.Endpoint,
		DevMode:           config.DevMode,
		SchemaMode:        config.SchemaMode,
		EmbeddingsEnabled: config.HasEmbeddings(),
		EmbeddingDim:      config.EmbeddingDim,
		EmbeddingProvider: config.EmbeddingProvider,
		SchemaVersion:     config.SchemaVersion,
		CanUpgrade:        canUpgrade,
		ReindexRequired:   reindexRequired,
		Healthy:           healthy,
		ClusterInfo:       config.ClusterInfo,
	}
}

// Connect health-checks the cluster, deploys the appropriate chunk
// schema, and persists the resulting connection state. It upserts: a
// BM25 deployment can upgrade to hybrid, never the reverse.
func (s *vespaAdminService) Connect(ctx context.Context, req driving.ConnectVespaRequest) (*driving.VespaStatus, error) {
	config, err := s.configStore.GetVespaConfig(ctx)
	if err != nil {
		config = domain.DefaultVespaConfig()
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = config.Endpoint
	}
	if endpoint == "" {
		endpoint = defaultVespaEndpoint
	}

	if err := s.deployer.HealthCheck(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("vespa health check failed: %w", err)
	}

	embeddingDim, embeddingProvider := s.targetEmbedding(ctx)
	if err := validateTransition(config, embeddingDim); err != nil {
		return nil, err
	}

	// Production deployments merge our schema into the cluster's
	// existing application package; dev mode ships a self-contained one.
	var existingPkg *driven.AppPackage
	var clusterInfo *domain.VespaClusterInfo
	if !req.DevMode {
		existingPkg, err = s.deployer.FetchAppPackage(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch existing app package: %w", err)
		}
		if existingPkg == nil {
			return nil, fmt.Errorf("no existing Vespa application found; use dev_mode=true or deploy your application package first")
		}
		clusterInfo = existingPkg.ClusterInfo
	}

	result, err := s.deployer.Deploy(ctx, endpoint, embeddingDim, existingPkg)
	if err != nil {
		return nil, fmt.Errorf("vespa schema deployment failed: %w", err)
	}

	now := time.Now()
	config.Endpoint = endpoint
	config.Connected = result.Success
	config.DevMode = req.DevMode
	config.SchemaMode = result.SchemaMode
	config.SchemaVersion = result.SchemaVersion
	config.ClusterInfo = clusterInfo
	if embeddingDim != nil {
		config.EmbeddingDim = *embeddingDim
		config.EmbeddingProvider = embeddingProvider
	}
	config.ConnectedAt = now
	config.UpdatedAt = now

	if err := s.configStore.SaveVespaConfig(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to save vespa config: %w", err)
	}

	return statusFromConfig(config, config.CanUpgradeToHybrid(), result.Upgraded, true), nil
}

// Status reports stored connection state plus a live health check.
func (s *vespaAdminService) Status(ctx context.Context) (*driving.VespaStatus, error) {
	config, err := s.configStore.GetVespaConfig(ctx)
	if err != nil {
		return &driving.VespaStatus{
			Connected: false,
			Endpoint:  defaultVespaEndpoint,
			Healthy:   false,
		}, nil
	}

	healthy := false
	if config.Connected && config.Endpoint != "" {
		healthy = s.deployer.HealthCheck(ctx, config.Endpoint) == nil
	}

	// An embedding service arriving after a BM25 deployment makes the
	// schema upgradeable even if the stored config predates it.
	canUpgrade := config.CanUpgradeToHybrid()
	if s.services.EmbeddingService() != nil && config.SchemaMode == domain.VespaSchemaModeBM25 {
		canUpgrade = true
	}

	return statusFromConfig(config, canUpgrade, false, healthy), nil
}

func (s *vespaAdminService) HealthCheck(ctx context.Context) error {
	config, err := s.configStore.GetVespaConfig(ctx)
	if err != nil {
		return fmt.Errorf("vespa not configured")
	}
	if !config.Connected {
		return fmt.Errorf("vespa not connected")
	}
	return s.deployer.HealthCheck(ctx, config.Endpoint)
}
