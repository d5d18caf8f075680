package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// VespaAdminService manages the Vespa connection and the filing-chunk
// schema deployment.
type VespaAdminService interface {
	// Connect reaches the cluster and deploys the schema: hybrid
	// when an embedding service is running, BM25-only otherwise. A
	// deployed schema can be upgraded to hybrid later but never
	// downgraded.
	Connect(ctx context.Context, req ConnectVespaRequest) (*VespaStatus, error)

	Status(ctx context.Context) (*VespaStatus, error)

	HealthCheck(ctx context.Context) error
}

type ConnectVespaRequest struct {
	// Endpoint overrides the stored or default cluster endpoint.
	Endpoint string `json:"endpoint,omitempty"`

	// DevMode deploys a full application package. Production mode
	// instead fetches the cluster's existing package and adds the
	// filing-chunk schema to it.
	DevMode bool `json:"dev_mode"`
}

// VespaStatus describes the connection, deployed schema, and cluster
// health in one view for the admin API.
type VespaStatus struct {
	Connected bool   `json:"connected"`
	Endpoint  string `json:"endpoint"`
	DevMode   bool   `json:"dev_mode"`

	SchemaMode    domain.VespaSchemaMode `json:"schema_mode"`
	SchemaVersion string                 `json:"schema_version"`

	EmbeddingsEnabled bool              `json:"embeddings_enabled"`
	EmbeddingDim      int               `json:"embedding_dim,omitempty"`
	EmbeddingProvider domain.AIProvider `json:"embedding_provider,omitempty"`

	// CanUpgrade is set when the schema is BM25-only but an
	// embedding service is available.
	CanUpgrade bool `json:"can_upgrade"`

	// ReindexRequired is set after a schema change that existing
	// documents do not satisfy.
	ReindexRequired bool `json:"reindex_required"`

	Healthy       bool  `json:"healthy"`
	IndexedChunks int64 `json:"indexed_chunks"`

	// ClusterInfo is populated in production mode from the fetched
	// application package.
	ClusterInfo *domain.VespaClusterInfo `json:"cluster_info,omitempty"`
}
