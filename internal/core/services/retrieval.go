package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Retriever fans structured retrieval intent out across the corpus
// index and merges the results into a single ranked list. Requests are
// independent read-only searches, so they run concurrently; each has
// its own timeout and a timed-out request contributes nothing.
type Retriever struct {
	index    driven.CorpusIndex
	taxonomy *domain.Taxonomy
	registry *domain.CompanyRegistry

	maxRequests       int
	sectionCandidates int
	perRequestLimit   int
	mergeLimit        int
	requestTimeout    time.Duration
	logger            *slog.Logger
}

// RetrieverConfig carries dependencies and tuning knobs for a Retriever.
// Zero-value knobs fall back to corpus defaults.
type RetrieverConfig struct {
	Index    driven.CorpusIndex
	Taxonomy *domain.Taxonomy
	Registry *domain.CompanyRegistry

	MaxRequests       int           // Cap on generated requests before year collapsing
	SectionCandidates int           // Taxonomy candidates consulted per concept
	PerRequestLimit   int           // Hits requested from the index per request
	MergeLimit        int           // Ranked chunks kept after merging
	RequestTimeout    time.Duration // Per-request index timeout
	Logger            *slog.Logger
}

// NewRetriever creates a retrieval orchestrator over the corpus index
func NewRetriever(cfg RetrieverConfig) *Retriever {
	defaults := domain.DefaultSettings()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.SectionCandidates <= 0 {
		cfg.SectionCandidates = defaults.SectionCandidates
	}
	if cfg.PerRequestLimit <= 0 {
		cfg.PerRequestLimit = defaults.PerRequestLimit
	}
	if cfg.MergeLimit <= 0 {
		cfg.MergeLimit = defaults.MergeLimit
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Retriever{
		index:             cfg.Index,
		taxonomy:          cfg.Taxonomy,
		registry:          cfg.Registry,
		maxRequests:       cfg.MaxRequests,
		sectionCandidates: cfg.SectionCandidates,
		perRequestLimit:   cfg.PerRequestLimit,
		mergeLimit:        cfg.MergeLimit,
		requestTimeout:    cfg.RequestTimeout,
		logger:            cfg.Logger,
	}
}

// BuildRequests constructs the Cartesian-reduced request set for the
// given components: one request per (company, section candidate, year).
// When the full product exceeds the request cap, per-year requests
// collapse into one ranged request per (company, candidate); if still
// over, candidates trim to one per concept, then to as many as fit per
// company. Every named company keeps at least one request, even when
// that means exceeding the cap.
func (r *Retriever) BuildRequests(query domain.Query, c domain.QueryComponents) []domain.RetrievalRequest {
	companies := c.Companies
	if len(companies) == 0 {
		// Unscoped company filter searches the whole corpus in one
		// request rather than one per registered company.
		companies = []string{""}
	}

	candidates := r.candidatesFor(c)

	years := []domain.YearRange{c.Years}
	if c.Years.Bounded() {
		perYear := c.Years.Years()
		if len(companies)*len(candidates)*len(perYear) <= r.maxRequests {
			years = years[:0]
			for _, y := range perYear {
				years = append(years, domain.YearRange{From: y, To: y})
			}
		}
	}

	if len(companies)*len(candidates) > r.maxRequests {
		candidates = trimCandidates(candidates)
	}
	if len(companies)*len(candidates) > r.maxRequests {
		if perCompany := r.maxRequests / len(companies); perCompany >= 1 && len(candidates) > perCompany {
			candidates = candidates[:perCompany]
		}
	}

	// Candidate-outer ordering: the first len(companies) entries pair
	// every company with its most specific candidate, so the cap cut
	// below cannot drop a company from the request set.
	var requests []domain.RetrievalRequest
	for _, cand := range candidates {
		for _, yr := range years {
			for _, company := range companies {
				requests = append(requests, domain.RetrievalRequest{
					Company:    company,
					Concept:    cand.concept,
					FilingType: cand.ref.FilingType,
					Section:    cand.ref.Section,
					Years:      yr,
					Text:       query.Text,
					Limit:      r.perRequestLimit,
				})
			}
		}
	}

	if limit := r.maxRequests; len(requests) > limit {
		if limit < len(companies) {
			limit = len(companies)
		}
		requests = requests[:limit]
	}
	return requests
}

type sectionCandidate struct {
	concept string
	ref     domain.SectionRef
}

// candidatesFor flattens taxonomy routing for the matched concepts.
// Concepts without routing entries and concept-free queries fall back
// to a single unfiltered candidate.
func (r *Retriever) candidatesFor(c domain.QueryComponents) []sectionCandidate {
	if len(c.Concepts) == 0 {
		return []sectionCandidate{{ref: domain.SectionRef{FilingType: periodFilingType(c.Period)}}}
	}

	var out []sectionCandidate
	for _, concept := range c.Concepts {
		refs := r.taxonomy.Lookup(concept)
		if len(refs) == 0 {
			out = append(out, sectionCandidate{
				concept: concept,
				ref:     domain.SectionRef{FilingType: periodFilingType(c.Period)},
			})
			continue
		}
		if len(refs) > r.sectionCandidates {
			refs = refs[:r.sectionCandidates]
		}
		for _, ref := range refs {
			out = append(out, sectionCandidate{concept: concept, ref: ref})
		}
	}
	return out
}

// trimCandidates keeps only the first (most specific) candidate per concept
func trimCandidates(candidates []sectionCandidate) []sectionCandidate {
	seen := map[string]struct{}{}
	var out []sectionCandidate
	for _, cand := range candidates {
		if _, ok := seen[cand.concept]; ok {
			continue
		}
		seen[cand.concept] = struct{}{}
		out = append(out, cand)
	}
	return out
}

func periodFilingType(p domain.Period) domain.FilingType {
	switch p {
	case domain.PeriodQuarterly:
		return domain.FilingType10Q
	case domain.PeriodAnnual:
		return domain.FilingType10K
	}
	return ""
}

// Retrieve dispatches all requests concurrently, merges the results,
// and ranks them. Returns *domain.NoRelevantContentError when no
// request produced anything.
func (r *Retriever) Retrieve(ctx context.Context, query domain.Query, c domain.QueryComponents) (*domain.RetrievalResult, error) {
	start := time.Now()

	requests := r.BuildRequests(query, c)
	result := &domain.RetrievalResult{TotalRequests: len(requests)}

	hits := make([][]domain.ScoredChunk, len(requests))
	errs := make([]error, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req domain.RetrievalRequest) {
			defer wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
			defer cancel()
			hits[i], errs[i] = r.index.Search(reqCtx, req)
		}(i, req)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, err := range errs {
		if err == nil {
			continue
		}
		result.FailedRequests++
		req := requests[i]
		if errors.Is(err, context.DeadlineExceeded) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("retrieval timed out for %s", describeRequest(req)))
		} else {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("retrieval failed for %s", describeRequest(req)))
		}
		r.logger.Warn("retrieval request failed",
			"company", req.Company,
			"concept", req.Concept,
			"error", err)
	}

	result.Chunks = r.merge(requests, hits, c)
	result.Took = time.Since(start)

	if len(result.Chunks) == 0 {
		return nil, &domain.NoRelevantContentError{
			Query:    query.Text,
			Requests: len(requests),
		}
	}
	return result, nil
}

// merge deduplicates hits by chunk identity keeping the highest blended
// score, ranks descending, then applies per-company balancing for
// comparison queries before cutting to the merge limit.
func (r *Retriever) merge(requests []domain.RetrievalRequest, hits [][]domain.ScoredChunk, c domain.QueryComponents) []*domain.RankedChunk {
	byID := map[string]*domain.RankedChunk{}
	var order []string

	for i, batch := range hits {
		for _, hit := range batch {
			if hit.Chunk == nil {
				continue
			}
			score := r.blendScore(requests[i], hit)
			existing, ok := byID[hit.Chunk.ID]
			if !ok {
				byID[hit.Chunk.ID] = &domain.RankedChunk{
					Chunk:      hit.Chunk,
					Score:      score,
					Similarity: hit.Score,
					Request:    requests[i],
				}
				order = append(order, hit.Chunk.ID)
				continue
			}
			if score > existing.Score {
				existing.Score = score
				existing.Similarity = hit.Score
				existing.Request = requests[i]
			}
		}
	}

	merged := make([]*domain.RankedChunk, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].Chunk.Ticker != merged[j].Chunk.Ticker {
			return merged[i].Chunk.Ticker < merged[j].Chunk.Ticker
		}
		return merged[i].Chunk.ID < merged[j].Chunk.ID
	})

	if c.Comparison && len(c.Companies) >= 2 {
		merged = balanceByCompany(merged, c.Companies, r.mergeLimit)
	}
	if len(merged) > r.mergeLimit {
		merged = merged[:r.mergeLimit]
	}
	return merged
}

// balanceByCompany guarantees each requested company with any retrieved
// chunk keeps at least one slot within the limit. Each company's best
// chunk is seated first, in the order companies were named; remaining
// slots fill by global rank.
func balanceByCompany(ranked []*domain.RankedChunk, companies []string, limit int) []*domain.RankedChunk {
	if len(ranked) <= limit {
		return ranked
	}

	taken := map[string]struct{}{}
	out := make([]*domain.RankedChunk, 0, limit)

	for _, company := range companies {
		for _, rc := range ranked {
			if rc.Chunk.Ticker != company {
				continue
			}
			out = append(out, rc)
			taken[rc.Chunk.ID] = struct{}{}
			break
		}
	}

	for _, rc := range ranked {
		if len(out) >= limit {
			break
		}
		if _, ok := taken[rc.Chunk.ID]; ok {
			continue
		}
		out = append(out, rc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Chunk.Ticker != out[j].Chunk.Ticker {
			return out[i].Chunk.Ticker < out[j].Chunk.Ticker
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return out
}

// blendScore combines index similarity with metadata affinity.
// Affinity starts at 0.1 and earns 0.3 for a company match, 0.2 each
// for filing type and section matches, and 0.1 per concept keyword
// found in the chunk text, capped at 1.0.
func (r *Retriever) blendScore(req domain.RetrievalRequest, hit domain.ScoredChunk) float64 {
	affinity := 0.1
	if req.Company != "" && hit.Chunk.Ticker == req.Company {
		affinity += 0.3
	}
	if req.FilingType != "" && hit.Chunk.FilingType == req.FilingType {
		affinity += 0.2
	}
	if req.Section != "" && hit.Chunk.Section == req.Section {
		affinity += 0.2
	}
	if req.Concept != "" && r.taxonomy != nil {
		if entry, ok := r.taxonomy.Entry(req.Concept); ok {
			text := strings.ToLower(hit.Chunk.Text)
			for _, kw := range entry.Keywords {
				if strings.Contains(text, strings.ToLower(kw)) {
					affinity += 0.1
				}
			}
		}
	}
	if affinity > 1.0 {
		affinity = 1.0
	}
	return 0.7*hit.Score + 0.3*affinity
}

func describeRequest(req domain.RetrievalRequest) string {
	parts := []string{}
	if req.Company != "" {
		parts = append(parts, req.Company)
	}
	if req.Concept != "" {
		parts = append(parts, req.Concept)
	}
	if req.Section != "" {
		parts = append(parts, req.Section)
	}
	if len(parts) == 0 {
		return "unscoped request"
	}
	return strings.Join(parts, "/")
}
