package driven

import (
	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// AIServiceFactory builds provider clients from saved settings. The
// settings service calls it on every hot-reload. Both methods return
// nil, nil for unconfigured settings.
type AIServiceFactory interface {
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)
	CreateLLMService(settings *domain.LLMSettings) (LLMService, error)
}
