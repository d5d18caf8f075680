package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// FilingSource fetches regulatory filings for the ingest pipeline
// (EDGAR in production). Implementations own rate limiting and the
// source's access etiquette; callers just ask for filings.
type FilingSource interface {
	// ListFilings returns the most recent filings of one type for a
	// company, newest first, up to limit.
	ListFilings(ctx context.Context, company domain.Company, filingType domain.FilingType, limit int) ([]domain.FilingRef, error)

	// FetchDocument downloads the primary document for a filing.
	// Returns the raw content and its MIME type.
	FetchDocument(ctx context.Context, ref domain.FilingRef) (content string, mimeType string, err error)

	// Ping verifies the filing source is reachable
	Ping(ctx context.Context) error
}
