package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
	"github.com/custodia-labs/finsight-core/internal/runtime"
)

// Ensure researchService implements ResearchService
var _ driving.ResearchService = (*researchService)(nil)

// researchService runs the full query pipeline: decompose the question,
// route concepts through the taxonomy, fan retrieval out across the
// corpus index, and synthesize a cited answer. Each call owns its own
// citation tracker; nothing is shared between in-flight queries.
type researchService struct {
	decomposer  *Decomposer
	retriever   *Retriever
	synthesizer *Synthesizer
	registry    *domain.CompanyRegistry
	logger      *slog.Logger
}

// ResearchServiceConfig wires the pipeline stages together.
// The language model is resolved per call through runtime services so a
// provider configured at runtime is picked up without a restart.
type ResearchServiceConfig struct {
	Index    driven.CorpusIndex
	Registry *domain.CompanyRegistry
	Taxonomy *domain.Taxonomy
	Services *runtime.Services

	MaxYear  int // Newest fiscal year in the corpus, anchors relative dates
	Settings *domain.Settings
	Logger   *slog.Logger
}

// NewResearchService creates the caller-facing research pipeline
func NewResearchService(cfg ResearchServiceConfig) driving.ResearchService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxYear == 0 {
		cfg.MaxYear = time.Now().UTC().Year()
	}
	if cfg.Settings == nil {
		cfg.Settings = domain.DefaultSettings()
	}

	return &researchService{
		decomposer: NewDecomposer(cfg.Registry, cfg.Taxonomy, cfg.MaxYear),
		retriever: NewRetriever(RetrieverConfig{
			Index:             cfg.Index,
			Taxonomy:          cfg.Taxonomy,
			Registry:          cfg.Registry,
			MaxRequests:       cfg.Settings.MaxRequests,
			SectionCandidates: cfg.Settings.SectionCandidates,
			PerRequestLimit:   cfg.Settings.PerRequestLimit,
			MergeLimit:        cfg.Settings.MergeLimit,
			Logger:            cfg.Logger,
		}),
		synthesizer: NewSynthesizer(SynthesizerConfig{
			LLM:           cfg.Services.LLMService,
			ContextBudget: cfg.Settings.ContextBudget,
			MaxSources:    cfg.Settings.MaxSources,
			Logger:        cfg.Logger,
		}),
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}
}

// Answer runs the full pipeline for one question
func (s *researchService) Answer(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
	start := time.Now()

	query, components, result, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	tracker := NewCitationTracker()
	tracker.TrackResult(result)

	answer, err := s.synthesizer.Synthesize(ctx, query, components, result, tracker)
	if err != nil {
		s.logger.Warn("synthesis failed, degrading to citations",
			"query_id", query.ID,
			"error", err)
		return nil, err
	}

	answer.Warnings = append(answer.Warnings, scopeWarnings(components, result)...)
	answer.Warnings = append(answer.Warnings, result.Warnings...)
	answer.Took = time.Since(start)

	s.logger.Info("answered research query",
		"query_id", query.ID,
		"chunks", len(result.Chunks),
		"citations", len(answer.Citations),
		"confidence", answer.Confidence,
		"took", answer.Took)

	return answer, nil
}

// Retrieve runs decomposition and retrieval only, without synthesis
func (s *researchService) Retrieve(ctx context.Context, req driving.AnswerRequest) (*domain.RetrievalResult, error) {
	_, _, result, err := s.retrieve(ctx, req)
	return result, err
}

func (s *researchService) retrieve(ctx context.Context, req driving.AnswerRequest) (domain.Query, domain.QueryComponents, *domain.RetrievalResult, error) {
	query := domain.Query{
		ID:         uuid.NewString(),
		Text:       strings.TrimSpace(req.Query),
		Filters:    req.Filters,
		ReceivedAt: time.Now().UTC(),
	}
	if query.Text == "" {
		return query, domain.QueryComponents{}, nil,
			fmt.Errorf("%w: query text is required", domain.ErrInvalidInput)
	}

	components, err := s.decomposer.Decompose(query)
	if err != nil {
		return query, components, nil, err
	}

	s.logger.Debug("decomposed query",
		"query_id", query.ID,
		"companies", components.Companies,
		"concepts", components.Concepts,
		"years", components.Years,
		"comparison", components.Comparison)

	result, err := s.retriever.Retrieve(ctx, query, components)
	if err != nil {
		return query, components, nil, err
	}
	return query, components, result, nil
}

// scopeWarnings reports named companies that contributed nothing to the
// merged result. Degradations narrow scope silently at retrieval time
// but must be visible on the answer.
func scopeWarnings(components domain.QueryComponents, result *domain.RetrievalResult) []string {
	if len(components.Companies) == 0 {
		return nil
	}
	retrieved := map[string]struct{}{}
	for _, ticker := range result.Companies() {
		retrieved[ticker] = struct{}{}
	}
	var warnings []string
	for _, ticker := range components.Companies {
		if _, ok := retrieved[ticker]; !ok {
			warnings = append(warnings, fmt.Sprintf("no relevant filings found for %s", ticker))
		}
	}
	return warnings
}
