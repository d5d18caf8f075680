package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// VespaDeployer pushes the filing-chunk schema to a Vespa cluster via
// the config server API.
type VespaDeployer interface {
	// Deploy submits an application package. A nil embeddingDim
	// deploys the BM25-only schema; a value deploys the hybrid
	// schema with a tensor field of that dimension. When existingPkg
	// is given the schema is merged into it instead of using the
	// embedded services.xml.
	Deploy(ctx context.Context, endpoint string, embeddingDim *int, existingPkg *AppPackage) (*domain.VespaDeployResult, error)

	// FetchAppPackage downloads the cluster's active application
	// package, nil when nothing is deployed.
	FetchAppPackage(ctx context.Context, endpoint string) (*AppPackage, error)

	// GetSchemaInfo reports what schema the cluster currently runs.
	GetSchemaInfo(ctx context.Context, endpoint string) (*SchemaInfo, error)

	HealthCheck(ctx context.Context, endpoint string) error
}

// AppPackage is a Vespa application package: the raw XML plus any
// schema files, keyed by filename.
type AppPackage struct {
	ServicesXML string            `json:"services_xml"`
	HostsXML    string            `json:"hosts_xml,omitempty"`
	Schemas     map[string]string `json:"schemas"`

	ClusterInfo *domain.VespaClusterInfo `json:"cluster_info,omitempty"`
}

// SchemaInfo describes the deployed filing-chunk schema.
type SchemaInfo struct {
	Deployed     bool
	SchemaMode   domain.VespaSchemaMode
	EmbeddingDim int // set when hybrid
	Version      string
}

// VespaConfigStore persists the connection and schema state between
// restarts.
type VespaConfigStore interface {
	GetVespaConfig(ctx context.Context) (*domain.VespaConfig, error)
	SaveVespaConfig(ctx context.Context, config *domain.VespaConfig) error
}
