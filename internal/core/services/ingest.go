package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
	"github.com/custodia-labs/finsight-core/internal/runtime"
)

// Ensure IngestOrchestrator implements the driving contract
var _ driving.IngestOrchestrator = (*IngestOrchestrator)(nil)

// IngestOrchestrator coordinates the filing ingest pipeline.
// For each company it runs the flow:
//  1. Look up the company in the registry
//  2. Mark ingest state as running
//  3. List recent filings per tracked filing type from the source
//  4. Skip filings already in the corpus
//  5. Fetch and process each new filing (normalise, section-split,
//     chunk, index)
//  6. Record final state and stats
type IngestOrchestrator struct {
	registry      *domain.CompanyRegistry
	source        driven.FilingSource
	filingStore   driven.FilingStore
	chunkStore    driven.ChunkStore
	stateStore    driven.IngestStateStore
	index         driven.CorpusIndex
	normaliserReg driven.NormaliserRegistry
	pipeline      driven.PostProcessorPipeline
	services      *runtime.Services
	logger        *slog.Logger

	filingTypes    []domain.FilingType
	filingsPerType int
}

// IngestOrchestratorConfig holds dependencies for IngestOrchestrator
type IngestOrchestratorConfig struct {
	Registry      *domain.CompanyRegistry
	Source        driven.FilingSource
	FilingStore   driven.FilingStore
	ChunkStore    driven.ChunkStore
	StateStore    driven.IngestStateStore
	Index         driven.CorpusIndex
	NormaliserReg driven.NormaliserRegistry
	Pipeline      driven.PostProcessorPipeline
	Services      *runtime.Services
	Logger        *slog.Logger

	// FilingTypes tracked during sync; defaults to 10-K, 10-Q, DEF 14A
	FilingTypes    []domain.FilingType
	FilingsPerType int
}

// NewIngestOrchestrator creates a new ingest orchestrator
func NewIngestOrchestrator(cfg IngestOrchestratorConfig) *IngestOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.FilingTypes) == 0 {
		cfg.FilingTypes = []domain.FilingType{
			domain.FilingType10K, domain.FilingType10Q, domain.FilingTypeProxy,
		}
	}
	if cfg.FilingsPerType <= 0 {
		cfg.FilingsPerType = domain.DefaultSettings().FilingsPerType
	}

	return &IngestOrchestrator{
		registry:       cfg.Registry,
		source:         cfg.Source,
		filingStore:    cfg.FilingStore,
		chunkStore:     cfg.ChunkStore,
		stateStore:     cfg.StateStore,
		index:          cfg.Index,
		normaliserReg:  cfg.NormaliserReg,
		pipeline:       cfg.Pipeline,
		services:       cfg.Services,
		logger:         logger,
		filingTypes:    cfg.FilingTypes,
		filingsPerType: cfg.FilingsPerType,
	}
}

// SyncCompany fetches, processes, and indexes recent filings for one company
func (o *IngestOrchestrator) SyncCompany(ctx context.Context, ticker string) (*domain.IngestResult, error) {
	startTime := time.Now()

	o.logger.Info("starting company sync", "ticker", ticker)

	company, ok := o.registry.Get(ticker)
	if !ok {
		return o.failSync(ctx, ticker, startTime, fmt.Errorf("%w: unknown company %q", domain.ErrNotFound, ticker))
	}

	state, err := o.stateStore.Get(ctx, company.Ticker)
	if err != nil {
		state = &domain.IngestState{
			Ticker: company.Ticker,
			Status: domain.IngestStatusIdle,
		}
	}
	if state.Status == domain.IngestStatusRunning {
		return nil, fmt.Errorf("%w: sync already running for %s", domain.ErrIngestInProgress, company.Ticker)
	}

	now := time.Now()
	state.Status = domain.IngestStatusRunning
	state.StartedAt = &now
	state.Error = ""
	if err := o.stateStore.Save(ctx, state); err != nil {
		o.logger.Warn("failed to update ingest state to running", "ticker", company.Ticker, "error", err)
	}

	stats := domain.IngestStats{}

	for _, filingType := range o.filingTypes {
		select {
		case <-ctx.Done():
			return o.failSync(ctx, company.Ticker, startTime, ctx.Err())
		default:
		}

		refs, err := o.source.ListFilings(ctx, company, filingType, o.filingsPerType)
		if err != nil {
			o.logger.Warn("failed to list filings",
				"ticker", company.Ticker,
				"filing_type", filingType,
				"error", err)
			stats.Errors++
			continue
		}

		for _, ref := range refs {
			if err := o.processFiling(ctx, company, ref, &stats); err != nil {
				o.logger.Warn("failed to process filing",
					"ticker", company.Ticker,
					"accession_no", ref.AccessionNo,
					"error", err)
				stats.Errors++
			}
		}
	}

	completedAt := time.Now()
	state.Status = domain.IngestStatusCompleted
	state.LastSyncAt = &completedAt
	state.CompletedAt = &completedAt
	state.Stats = stats
	state.Error = ""
	if err := o.stateStore.Save(ctx, state); err != nil {
		o.logger.Warn("failed to update ingest state", "ticker", company.Ticker, "error", err)
	}

	duration := time.Since(startTime).Seconds()

	o.logger.Info("company sync completed",
		"ticker", company.Ticker,
		"duration_seconds", duration,
		"filings_fetched", stats.FilingsFetched,
		"filings_skipped", stats.FilingsSkipped,
		"chunks_indexed", stats.ChunksIndexed,
		"errors", stats.Errors,
	)

	return &domain.IngestResult{
		Ticker:   company.Ticker,
		Success:  true,
		Stats:    stats,
		Duration: duration,
	}, nil
}

// SyncCorpus refreshes every company in the registry
func (o *IngestOrchestrator) SyncCorpus(ctx context.Context) ([]*domain.IngestResult, error) {
	var results []*domain.IngestResult
	for _, ticker := range o.registry.Tickers() {
		result, err := o.SyncCompany(ctx, ticker)
		if err != nil {
			o.logger.Error("company sync failed", "ticker", ticker, "error", err)
			results = append(results, &domain.IngestResult{
				Ticker:  ticker,
				Success: false,
				Error:   err.Error(),
			})
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// IngestFiling reprocesses one already-fetched filing by ID
func (o *IngestOrchestrator) IngestFiling(ctx context.Context, filingID string) error {
	filing, err := o.filingStore.Get(ctx, filingID)
	if err != nil {
		return fmt.Errorf("failed to get filing: %w", err)
	}

	company, ok := o.registry.Get(filing.Ticker)
	if !ok {
		return fmt.Errorf("%w: unknown company %q", domain.ErrNotFound, filing.Ticker)
	}

	ref := domain.FilingRef{
		Ticker:      filing.Ticker,
		CIK:         filing.CIK,
		Type:        filing.Type,
		AccessionNo: filing.AccessionNo,
		FilingDate:  filing.FilingDate,
		DocumentURL: filing.SourceURL,
	}

	content, mimeType, err := o.source.FetchDocument(ctx, ref)
	if err != nil {
		_ = o.filingStore.UpdateStatus(ctx, filing.ID, domain.FilingStatusFailed, err.Error())
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	if err := o.indexFiling(ctx, company, filing, content, mimeType, &domain.IngestStats{}); err != nil {
		_ = o.filingStore.UpdateStatus(ctx, filing.ID, domain.FilingStatusFailed, err.Error())
		return err
	}
	return nil
}

// GetState retrieves the ingest state for a company
func (o *IngestOrchestrator) GetState(ctx context.Context, ticker string) (*domain.IngestState, error) {
	return o.stateStore.Get(ctx, ticker)
}

// ListStates retrieves ingest states for all companies
func (o *IngestOrchestrator) ListStates(ctx context.Context) ([]*domain.IngestState, error) {
	return o.stateStore.List(ctx)
}

// processFiling downloads and indexes one filing from the source.
// Filings already present in the corpus are skipped by accession number.
func (o *IngestOrchestrator) processFiling(ctx context.Context, company domain.Company, ref domain.FilingRef, stats *domain.IngestStats) error {
	existing, err := o.filingStore.GetByAccession(ctx, ref.AccessionNo)
	if err == nil && existing != nil && existing.Status == domain.FilingStatusIndexed {
		stats.FilingsSkipped++
		return nil
	}

	content, mimeType, err := o.source.FetchDocument(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	now := time.Now()
	filing := &domain.Filing{
		ID:          domain.GenerateID(),
		Ticker:      company.Ticker,
		CIK:         ref.CIK,
		Type:        ref.Type,
		AccessionNo: ref.AccessionNo,
		FiscalYear:  ref.FiscalYear(),
		FilingDate:  ref.FilingDate,
		SourceURL:   ref.DocumentURL,
		Status:      domain.FilingStatusFetched,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		filing.ID = existing.ID
		filing.CreatedAt = existing.CreatedAt
	}
	if err := o.filingStore.Save(ctx, filing); err != nil {
		return fmt.Errorf("failed to save filing: %w", err)
	}
	stats.FilingsFetched++

	return o.indexFiling(ctx, company, filing, content, mimeType, stats)
}

// indexFiling normalises, sections, chunks, and indexes one filing's content
func (o *IngestOrchestrator) indexFiling(ctx context.Context, company domain.Company, filing *domain.Filing, content, mimeType string, stats *domain.IngestStats) error {
	if normaliser := o.normaliserReg.Get(mimeType); normaliser != nil {
		content = normaliser.Normalise(content, mimeType)
	}

	pieces := o.pipeline.Process(content)

	sections := map[string]struct{}{}
	chunks := make([]*domain.Chunk, 0, len(pieces))
	now := time.Now()
	for i, piece := range pieces {
		section := piece.Metadata[driven.MetaSection]
		if section == "" {
			section = domain.SectionGeneral
		}
		sections[section] = struct{}{}

		chunks = append(chunks, &domain.Chunk{
			ID:         domain.ChunkID(filing.Ticker, filing.Type, filing.FiscalYear, i),
			FilingID:   filing.ID,
			Ticker:     filing.Ticker,
			Company:    company.Name,
			FilingType: filing.Type,
			Section:    section,
			FiscalYear: filing.FiscalYear,
			FilingDate: filing.FilingDate,
			Position:   piece.Position,
			Text:       piece.Content,
			CreatedAt:  now,
		})
	}

	stats.SectionsFound += len(sections)

	// Replace any previous chunks for this filing before saving
	if err := o.chunkStore.DeleteByFiling(ctx, filing.ID); err != nil {
		o.logger.Warn("failed to delete previous chunks", "filing_id", filing.ID, "error", err)
	}
	if err := o.chunkStore.SaveBatch(ctx, chunks); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}
	if err := o.filingStore.UpdateStatus(ctx, filing.ID, domain.FilingStatusChunked, ""); err != nil {
		o.logger.Warn("failed to update filing status", "filing_id", filing.ID, "error", err)
	}

	if err := o.index.Index(ctx, chunks); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	stats.ChunksIndexed += len(chunks)

	if err := o.filingStore.UpdateStatus(ctx, filing.ID, domain.FilingStatusIndexed, ""); err != nil {
		o.logger.Warn("failed to update filing status", "filing_id", filing.ID, "error", err)
	}

	o.logger.Debug("indexed filing",
		"ticker", filing.Ticker,
		"filing_type", filing.Type,
		"fiscal_year", filing.FiscalYear,
		"sections", len(sections),
		"chunks", len(chunks),
	)
	return nil
}

// failSync marks a company sync as failed and returns the result
func (o *IngestOrchestrator) failSync(ctx context.Context, ticker string, startTime time.Time, err error) (*domain.IngestResult, error) {
	duration := time.Since(startTime).Seconds()

	o.logger.Error("company sync failed", "ticker", ticker, "duration_seconds", duration, "error", err)

	state, getErr := o.stateStore.Get(ctx, ticker)
	if getErr == nil && state != nil {
		now := time.Now()
		state.Status = domain.IngestStatusFailed
		state.CompletedAt = &now
		state.Error = err.Error()
		_ = o.stateStore.Save(ctx, state)
	}

	return &domain.IngestResult{
		Ticker:   ticker,
		Success:  false,
		Error:    err.Error(),
		Duration: duration,
	}, err
}
