package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// AnswerRequest carries a research question plus optional explicit
// constraints supplied by the caller.
type AnswerRequest struct {
	Query   string              `json:"query"`
	Filters domain.QueryFilters `json:"filters,omitempty"`
}

// ResearchService is the caller-facing contract of the query pipeline.
// Answer returns a full Answer or one of the typed pipeline errors:
// *domain.AmbiguousQueryError when an explicit time constraint cannot
// be parsed, *domain.NoRelevantContentError when retrieval produced
// nothing usable, and *domain.SynthesisUnavailableError (carrying the
// retrieval output) when the model collaborator failed after retries.
type ResearchService interface {
	// Answer runs the full pipeline: decompose, route, retrieve,
	// synthesize, and returns the cited answer.
	Answer(ctx context.Context, req AnswerRequest) (*domain.Answer, error)

	// Retrieve runs decomposition and retrieval only, returning the
	// merged ranked chunk set without invoking the model. Used for the
	// citations-only degraded path and for debugging retrieval scope.
	Retrieve(ctx context.Context, req AnswerRequest) (*domain.RetrievalResult, error)
}
