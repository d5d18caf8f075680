package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// SettingsStore persists the deployment's tuning knobs and AI provider
// configuration. AI settings carry API keys, which the Postgres
// adapter encrypts at rest.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SaveSettings(ctx context.Context, settings *domain.Settings) error

	GetAISettings(ctx context.Context) (*domain.AISettings, error)
	SaveAISettings(ctx context.Context, settings *domain.AISettings) error
}
