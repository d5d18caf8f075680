package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
	"github.com/custodia-labs/finsight-core/internal/runtime"
)

// MockVespaDeployer is a mock implementation of driven.VespaDeployer
type MockVespaDeployer struct {
	mock.Mock
}

func (m *MockVespaDeployer) Deploy(ctx context.Context, endpoint string, embeddingDim *int, existingPkg *driven.AppPackage) (*domain.VespaDeployResult, error) {
	args := m.Called(ctx, endpoint, embeddingDim, existingPkg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VespaDeployResult), args.Error(1)
}

func (m *MockVespaDeployer) FetchAppPackage(ctx context.Context, endpoint string) (*driven.AppPackage, error) {
	args := m.Called(ctx, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driven.AppPackage), args.Error(1)
}

func (m *MockVespaDeployer) GetSchemaInfo(ctx context.Context, endpoint string) (*driven.SchemaInfo, error) {
	args := m.Called(ctx, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driven.SchemaInfo), args.Error(1)
}

func (m *MockVespaDeployer) HealthCheck(ctx context.Context, endpoint string) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

// MockVespaConfigStore is a mock implementation of driven.VespaConfigStore
type MockVespaConfigStore struct {
	mock.Mock
}

func (m *MockVespaConfigStore) GetVespaConfig(ctx context.Context) (*domain.VespaConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VespaConfig), args.Error(1)
}

func (m *MockVespaConfigStore) SaveVespaConfig(ctx context.Context, config *domain.VespaConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

type vespaAdminFixture struct {
	deployer    *MockVespaDeployer
	configStore *MockVespaConfigStore
	settings    *mocks.MockSettingsStore
	services    *runtime.Services
	svc         driving.VespaAdminService
}

func newVespaAdminFixture() *vespaAdminFixture {
	deployer := &MockVespaDeployer{}
	configStore := &MockVespaConfigStore{}
	settings := mocks.NewMockSettingsStore()
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "vespa"))
	svc := NewVespaAdminService(deployer, configStore, settings, services)
	return &vespaAdminFixture{
		deployer:    deployer,
		configStore: configStore,
		settings:    settings,
		services:    services,
		svc:         svc,
	}
}

func TestVespaAdminService_Connect_FreshBM25(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	f.configStore.On("GetVespaConfig", ctx).Return(nil, errors.New("not found"))
	f.deployer.On("HealthCheck", ctx, "http://vespa:19071").Return(nil)
	f.deployer.On("Deploy", ctx, "http://vespa:19071", (*int)(nil), (*driven.AppPackage)(nil)).Return(&domain.VespaDeployResult{
		Success:       true,
		SchemaMode:    domain.VespaSchemaModeBM25,
		SchemaVersion: "v1",
	}, nil)
	f.configStore.On("SaveVespaConfig", ctx, mock.AnythingOfType("*domain.VespaConfig")).Return(nil)

	status, err := f.svc.Connect(ctx, driving.ConnectVespaRequest{DevMode: true})
	require.NoError(t, err)

	assert.True(t, status.Connected)
	assert.Equal(t, "http://vespa:19071", status.Endpoint)
	assert.Equal(t, domain.VespaSchemaModeBM25, status.SchemaMode)
	assert.False(t, status.EmbeddingsEnabled)
	assert.True(t, status.CanUpgrade)
	f.deployer.AssertExpectations(t)
	f.configStore.AssertExpectations(t)
}

func TestVespaAdminService_Connect_HybridWithEmbedding(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	f.services.SetEmbeddingService(mocks.NewMockEmbeddingService())
	_ = f.settings.SaveAISettings(ctx, &domain.AISettings{
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI,
			Model:    "text-embedding-3-small",
			APIKey:   "sk-test",
		},
	})

	f.configStore.On("GetVespaConfig", ctx).Return(nil, errors.New("not found"))
	f.deployer.On("HealthCheck", ctx, "http://localhost:19071").Return(nil)
	f.deployer.On("Deploy", ctx, "http://localhost:19071", mock.AnythingOfType("*int"), (*driven.AppPackage)(nil)).Return(&domain.VespaDeployResult{
		Success:       true,
		SchemaMode:    domain.VespaSchemaModeHybrid,
		EmbeddingDim:  384,
		SchemaVersion: "v1",
	}, nil)
	f.configStore.On("SaveVespaConfig", ctx, mock.AnythingOfType("*domain.VespaConfig")).Return(nil)

	status, err := f.svc.Connect(ctx, driving.ConnectVespaRequest{
		Endpoint: "http://localhost:19071",
		DevMode:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.VespaSchemaModeHybrid, status.SchemaMode)
	assert.True(t, status.EmbeddingsEnabled)
	assert.Equal(t, 384, status.EmbeddingDim)
	assert.Equal(t, domain.AIProviderOpenAI, status.EmbeddingProvider)

	// The mock embedding service reports 384 dimensions
	dimArg := f.deployer.Calls[1].Arguments.Get(2).(*int)
	require.NotNil(t, dimArg)
	assert.Equal(t, 384, *dimArg)
}

func TestVespaAdminService_Connect_RejectsDowngrade(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	// Hybrid schema already deployed, but no embedding service configured
	f.configStore.On("GetVespaConfig", ctx).Return(&domain.VespaConfig{
		Endpoint:     "http://vespa:19071",
		Connected:    true,
		SchemaMode:   domain.VespaSchemaModeHybrid,
		EmbeddingDim: 384,
	}, nil)
	f.deployer.On("HealthCheck", ctx, "http://vespa:19071").Return(nil)

	_, err := f.svc.Connect(ctx, driving.ConnectVespaRequest{DevMode: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "downgrade")
	f.deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVespaAdminService_Connect_RejectsDimensionChange(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	f.services.SetEmbeddingService(mocks.NewMockEmbeddingService()) // 384 dims

	f.configStore.On("GetVespaConfig", ctx).Return(&domain.VespaConfig{
		Endpoint:     "http://vespa:19071",
		Connected:    true,
		SchemaMode:   domain.VespaSchemaModeHybrid,
		EmbeddingDim: 768,
	}, nil)
	f.deployer.On("HealthCheck", ctx, "http://vespa:19071").Return(nil)

	_, err := f.svc.Connect(ctx, driving.ConnectVespaRequest{DevMode: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestVespaAdminService_Connect_HealthCheckFails(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	f.configStore.On("GetVespaConfig", ctx).Return(nil, errors.New("not found"))
	f.deployer.On("HealthCheck", ctx, "http://vespa:19071").Return(errors.New("connection refused"))

	_, err := f.svc.Connect(ctx, driving.ConnectVespaRequest{DevMode: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health check")
}

func TestVespaAdminService_Connect_ProductionRequiresExistingPackage(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	f.configStore.On("GetVespaConfig", ctx).Return(nil, errors.New("not found"))
	f.deployer.On("HealthCheck", ctx, "http://vespa:19071").Return(nil)
	f.deployer.On("FetchAppPackage", ctx, "http://vespa:19071").Return(nil, nil)

	_, err := f.svc.Connect(ctx, driving.ConnectVespaRequest{DevMode: false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev_mode")
}

func TestVespaAdminService_Status_Unconfigured(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	f.configStore.On("GetVespaConfig", ctx).Return(nil, errors.New("not found"))

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.False(t, status.Healthy)
}

func TestVespaAdminService_Status_CanUpgradeWithEmbedding(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	f.services.SetEmbeddingService(mocks.NewMockEmbeddingService())

	f.configStore.On("GetVespaConfig", ctx).Return(&domain.VespaConfig{
		Endpoint:   "http://vespa:19071",
		Connected:  true,
		SchemaMode: domain.VespaSchemaModeBM25,
	}, nil)
	f.deployer.On("HealthCheck", ctx, "http://vespa:19071").Return(nil)

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.True(t, status.Healthy)
	assert.True(t, status.CanUpgrade)
	assert.False(t, status.EmbeddingsEnabled)
}

func TestVespaAdminService_HealthCheck(t *testing.T) {
	f := newVespaAdminFixture()
	ctx := context.Background()

	// Not configured
	f.configStore.On("GetVespaConfig", ctx).Return(nil, errors.New("not found")).Once()
	err := f.svc.HealthCheck(ctx)
	require.Error(t, err)

	// Configured but never connected
	f.configStore.On("GetVespaConfig", ctx).Return(&domain.VespaConfig{
		Endpoint:  "http://vespa:19071",
		Connected: false,
	}, nil).Once()
	err = f.svc.HealthCheck(ctx)
	require.Error(t, err)

	// Connected and healthy
	f.configStore.On("GetVespaConfig", ctx).Return(&domain.VespaConfig{
		Endpoint:  "http://vespa:19071",
		Connected: true,
	}, nil).Once()
	f.deployer.On("HealthCheck", ctx, "http://vespa:19071").Return(nil)
	err = f.svc.HealthCheck(ctx)
	require.NoError(t, err)
}
