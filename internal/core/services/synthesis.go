package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

const synthesisInstructions = `You are a financial research analyst. Answer the question using ONLY the numbered source excerpts provided. Ground every claim in the sources and reference them inline as [Source N]. If the sources do not contain enough information to answer, say so plainly. Do not use outside knowledge.`

// sourceClipLength bounds the excerpt rendered per source block so a
// single long chunk cannot starve the rest of the context.
const sourceClipLength = 600

var sourceMarkerRe = regexp.MustCompile(`\[Source (\d+)\]`)

// Synthesizer turns a merged retrieval result into a grounded, cited
// answer via the language-model collaborator. Transport failures retry
// with backoff; after exhaustion the caller gets a
// *domain.SynthesisUnavailableError still carrying the retrieval result
// so it can degrade to a citations-only response.
type Synthesizer struct {
	llm func() driven.LLMService

	contextBudget int
	maxSources    int
	maxTokens     int
	temperature   float64
	timeout       time.Duration
	maxAttempts   int
	backoff       time.Duration
	logger        *slog.Logger
}

// SynthesizerConfig carries the model accessor and tuning knobs.
// LLM is a func so a runtime-swapped model service is picked up per call.
type SynthesizerConfig struct {
	LLM func() driven.LLMService

	ContextBudget int           // Character budget for rendered source blocks
	MaxSources    int           // Source blocks rendered at most
	MaxTokens     int           // Completion token cap
	Temperature   float64       // 0 uses the corpus default
	Timeout       time.Duration // Per-attempt completion timeout
	MaxAttempts   int
	Backoff       time.Duration // Base delay, doubled per attempt
	Logger        *slog.Logger
}

// NewSynthesizer creates a synthesis orchestrator
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	defaults := domain.DefaultSettings()
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = defaults.ContextBudget
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = defaults.MaxSources
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synthesizer{
		llm:           cfg.LLM,
		contextBudget: cfg.ContextBudget,
		maxSources:    cfg.MaxSources,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		timeout:       cfg.Timeout,
		maxAttempts:   cfg.MaxAttempts,
		backoff:       cfg.Backoff,
		logger:        cfg.Logger,
	}
}

// Synthesize produces the answer text and the citations it references.
// The tracker must already hold every chunk in the result.
func (s *Synthesizer) Synthesize(ctx context.Context, query domain.Query, components domain.QueryComponents, result *domain.RetrievalResult, tracker *CitationTracker) (*domain.Answer, error) {
	sources := s.selectSources(result)
	prompt := renderSources(sources)

	llm := s.llm()
	if llm == nil {
		return nil, &domain.SynthesisUnavailableError{
			Result:    result,
			Citations: tracker.Citations(),
			Attempts:  0,
			Err:       domain.ErrServiceUnavailable,
		}
	}

	req := driven.CompletionRequest{
		Instructions: synthesisInstructions,
		Context:      prompt,
		Prompt:       query.Text,
		MaxTokens:    s.maxTokens,
		Temperature:  s.temperature,
	}

	text, err := s.completeWithRetry(ctx, llm, req)
	if err != nil {
		return nil, &domain.SynthesisUnavailableError{
			Result:    result,
			Citations: tracker.Citations(),
			Attempts:  s.maxAttempts,
			Err:       err,
		}
	}

	citations, dropped := s.mapCitations(text, sources, tracker)

	answer := &domain.Answer{
		ID:         uuid.NewString(),
		QueryID:    query.ID,
		Query:      query.Text,
		Text:       text,
		Citations:  citations,
		Confidence: confidence(result, citations, components),
		ChunksUsed: len(sources),
		CreatedAt:  time.Now().UTC(),
	}
	if dropped > 0 {
		answer.Warnings = append(answer.Warnings,
			fmt.Sprintf("%d source references from the model were outside the supplied context and were dropped", dropped))
	}
	return answer, nil
}

func (s *Synthesizer) completeWithRetry(ctx context.Context, llm driven.LLMService, req driven.CompletionRequest) (string, error) {
	var lastErr error
	delay := s.backoff

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		text, err := llm.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			if strings.TrimSpace(text) == "" {
				err = fmt.Errorf("model returned empty response")
			} else {
				return text, nil
			}
		}

		lastErr = err
		s.logger.Warn("synthesis attempt failed", "attempt", attempt, "error", err)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < s.maxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}
	}
	return "", lastErr
}

// selectSources picks the highest-ranked chunks that fit the context
// budget. Chunks are included whole or not at all; lower-ranked chunks
// are dropped first.
func (s *Synthesizer) selectSources(result *domain.RetrievalResult) []*domain.RankedChunk {
	var sources []*domain.RankedChunk
	used := 0
	for _, rc := range result.Chunks {
		if len(sources) >= s.maxSources {
			break
		}
		block := len(renderSource(len(sources)+1, rc))
		if used+block > s.contextBudget {
			continue
		}
		used += block
		sources = append(sources, rc)
	}
	return sources
}

func renderSources(sources []*domain.RankedChunk) string {
	var b strings.Builder
	for i, rc := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(renderSource(i+1, rc))
	}
	return b.String()
}

func renderSource(n int, rc *domain.RankedChunk) string {
	c := rc.Chunk
	date := "undated"
	if !c.FilingDate.IsZero() {
		date = c.FilingDate.Format("2006-01-02")
	}
	text := c.Text
	if len(text) > sourceClipLength {
		text = clipAtWord(text, sourceClipLength)
	}
	return fmt.Sprintf("[Source %d] %s (%s) - %s - %s (%s)\n%s",
		n, c.Company, c.Ticker, c.FilingType, c.Section, date, text)
}

func clipAtWord(text string, limit int) string {
	clipped := text[:limit]
	if idx := strings.LastIndexByte(clipped, ' '); idx > 0 {
		clipped = clipped[:idx]
	}
	return clipped + "..."
}

// mapCitations resolves [Source N] markers in the model output back to
// citation records. Markers outside the supplied context are dropped
// and counted, never fabricated into citations. A response with no
// markers cites every supplied source.
func (s *Synthesizer) mapCitations(text string, sources []*domain.RankedChunk, tracker *CitationTracker) ([]domain.Citation, int) {
	markers := sourceMarkerRe.FindAllStringSubmatch(text, -1)

	var referenced []int
	seen := map[int]struct{}{}
	dropped := 0
	for _, m := range markers {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(sources) {
			dropped++
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		referenced = append(referenced, n)
	}

	if len(referenced) == 0 {
		referenced = make([]int, len(sources))
		for i := range sources {
			referenced[i] = i + 1
		}
	}
	sort.Ints(referenced)

	var citations []domain.Citation
	seenKeys := map[string]struct{}{}
	for _, n := range referenced {
		citation, ok := tracker.ForChunk(sources[n-1].Chunk.ID)
		if !ok {
			continue
		}
		if _, dup := seenKeys[citation.Key()]; dup {
			continue
		}
		seenKeys[citation.Key()] = struct{}{}
		citations = append(citations, citation)
	}
	return citations, dropped
}

// confidence scores how well the answer is supported: mean merged
// score, boosted for company coverage, concept matches, and citation
// diversity, capped at 1.0.
func confidence(result *domain.RetrievalResult, citations []domain.Citation, components domain.QueryComponents) float64 {
	if result.Empty() {
		return 0
	}

	var sum float64
	for _, rc := range result.Chunks {
		sum += rc.Score
	}
	score := sum / float64(len(result.Chunks))

	if named := len(components.Companies); named > 0 {
		retrieved := map[string]struct{}{}
		for _, ticker := range result.Companies() {
			retrieved[ticker] = struct{}{}
		}
		covered := 0
		for _, ticker := range components.Companies {
			if _, ok := retrieved[ticker]; ok {
				covered++
			}
		}
		score += 0.2 * float64(covered) / float64(named)
	}

	score += 0.02 * float64(len(components.Concepts))

	companies := map[string]struct{}{}
	for _, c := range citations {
		companies[c.Ticker] = struct{}{}
	}
	score += 0.03 * float64(len(companies))

	if score > 1.0 {
		score = 1.0
	}
	return score
}
