package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusIndex = (*CorpusIndex)(nil)

// EmbeddingProvider returns the current embedding service, or nil when
// semantic search is unavailable. Indirection is needed because the
// embedding service can be reconfigured at runtime.
type EmbeddingProvider func() driven.EmbeddingService

// CorpusIndex implements driven.CorpusIndex against a Vespa cluster.
// When an embedding service is available, queries run the hybrid rank
// profile; otherwise pure BM25.
type CorpusIndex struct {
	baseURL    string
	embeddings EmbeddingProvider
	httpClient *http.Client
}

// Config holds Vespa connection configuration
type Config struct {
	// BaseURL is the Vespa query/feed endpoint (e.g., http://localhost:8080)
	BaseURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewCorpusIndex creates a new Vespa-backed CorpusIndex
func NewCorpusIndex(cfg Config, embeddings EmbeddingProvider) *CorpusIndex {
	if embeddings == nil {
		embeddings = func() driven.EmbeddingService { return nil }
	}
	return &CorpusIndex{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		embeddings: embeddings,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// vespaDocument represents a document in Vespa feed format
type vespaDocument struct {
	Fields vespaFields `json:"fields"`
}

type vespaFields struct {
	ID         string    `json:"id"`
	FilingID   string    `json:"filing_id"`
	Ticker     string    `json:"ticker"`
	Company    string    `json:"company"`
	FilingType string    `json:"filing_type"`
	Section    string    `json:"section"`
	FiscalYear int       `json:"fiscal_year"`
	FilingDate int64     `json:"filing_date"` // Unix seconds
	Position   int       `json:"position"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Index adds or replaces chunks in the corpus.
// Embeddings are computed in one batch per call when available.
func (s *CorpusIndex) Index(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var vectors [][]float32
	if svc := s.embeddings(); svc != nil {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}
		var err error
		vectors, err = svc.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunks: %w", err)
		}
	}

	for i, chunk := range chunks {
		var embedding []float32
		if i < len(vectors) {
			embedding = vectors[i]
		}
		if err := s.indexChunk(ctx, chunk, embedding); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

func (s *CorpusIndex) indexChunk(ctx context.Context, chunk *domain.Chunk, embedding []float32) error {
	doc := vespaDocument{
		Fields: vespaFields{
			ID:         chunk.ID,
			FilingID:   chunk.FilingID,
			Ticker:     chunk.Ticker,
			Company:    chunk.Company,
			FilingType: string(chunk.FilingType),
			Section:    chunk.Section,
			FiscalYear: chunk.FiscalYear,
			FilingDate: chunk.FilingDate.Unix(),
			Position:   chunk.Position,
			Text:       chunk.Text,
			Embedding:  embedding,
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	// Vespa document API: POST /document/v1/{namespace}/{doctype}/docid/{docid}
	feedURL := fmt.Sprintf("%s/document/v1/finsight/filing/docid/%s", s.baseURL, chunk.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, feedURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vespa index failed: %s - %s", resp.Status, string(respBody))
	}

	return nil
}

// Search runs one scoped similarity query against the filing corpus
func (s *CorpusIndex) Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.ScoredChunk, error) {
	var queryEmbedding []float32
	if svc := s.embeddings(); svc != nil && req.Text != "" {
		vec, err := svc.EmbedQuery(ctx, req.Text)
		if err == nil {
			queryEmbedding = vec
		}
		// Embedding failures degrade to BM25 rather than failing the request
	}

	yql := s.buildYQL(req, len(queryEmbedding) > 0)

	hits := req.Limit
	if hits <= 0 {
		hits = 10
	}

	searchReq := map[string]interface{}{
		"yql":  yql,
		"hits": hits,
	}

	if len(queryEmbedding) > 0 {
		searchReq["input.query(embedding)"] = queryEmbedding
		searchReq["ranking.profile"] = "hybrid"
	} else {
		searchReq["ranking.profile"] = "bm25"
	}

	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/search/", s.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vespa search failed: %s - %s", resp.Status, string(respBody))
	}

	var searchResp vespaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, len(searchResp.Root.Children))
	for _, hit := range searchResp.Root.Children {
		chunk := &domain.Chunk{
			ID:         hit.Fields.ID,
			FilingID:   hit.Fields.FilingID,
			Ticker:     hit.Fields.Ticker,
			Company:    hit.Fields.Company,
			FilingType: domain.FilingType(hit.Fields.FilingType),
			Section:    hit.Fields.Section,
			FiscalYear: hit.Fields.FiscalYear,
			FilingDate: time.Unix(hit.Fields.FilingDate, 0).UTC(),
			Position:   hit.Fields.Position,
			Text:       hit.Fields.Text,
		}

		results = append(results, domain.ScoredChunk{
			Chunk: chunk,
			Score: hit.Relevance,
		})
	}

	return results, nil
}

// buildYQL assembles the where clause from the request's text and
// metadata constraints
func (s *CorpusIndex) buildYQL(req domain.RetrievalRequest, semantic bool) string {
	var conditions []string

	if req.Text != "" {
		escaped := strings.ReplaceAll(req.Text, "\"", "\\\"")
		if semantic {
			conditions = append(conditions, fmt.Sprintf(
				"(text contains \"%s\" or ({targetHits:100}nearestNeighbor(embedding,embedding)))", escaped))
		} else {
			conditions = append(conditions, fmt.Sprintf("text contains \"%s\"", escaped))
		}
	}

	if req.Company != "" {
		conditions = append(conditions, fmt.Sprintf("ticker contains \"%s\"", escapeYQL(req.Company)))
	}

	if req.FilingType != "" {
		conditions = append(conditions, fmt.Sprintf("filing_type contains \"%s\"", escapeYQL(string(req.FilingType))))
	}

	if req.Section != "" {
		conditions = append(conditions, fmt.Sprintf("section contains \"%s\"", escapeYQL(req.Section)))
	}

	if req.Years.From > 0 {
		conditions = append(conditions, fmt.Sprintf("fiscal_year >= %d", req.Years.From))
	}
	if req.Years.To > 0 {
		conditions = append(conditions, fmt.Sprintf("fiscal_year <= %d", req.Years.To))
	}

	whereClause := "true"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " and ")
	}

	return fmt.Sprintf("select * from filing where %s", whereClause)
}

func escapeYQL(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// vespaSearchResponse represents Vespa's search response format
type vespaSearchResponse struct {
	Root struct {
		Fields struct {
			TotalCount int64 `json:"totalCount"`
		} `json:"fields"`
		Children []struct {
			Relevance float64     `json:"relevance"`
			Fields    vespaFields `json:"fields"`
		} `json:"children"`
	} `json:"root"`
}

// Delete removes chunks by ID
func (s *CorpusIndex) Delete(ctx context.Context, chunkIDs []string) error {
	for _, id := range chunkIDs {
		if err := s.deleteChunk(ctx, id); err != nil {
			return fmt.Errorf("failed to delete chunk %s: %w", id, err)
		}
	}
	return nil
}

func (s *CorpusIndex) deleteChunk(ctx context.Context, id string) error {
	deleteURL := fmt.Sprintf("%s/document/v1/finsight/filing/docid/%s", s.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 is OK - document already deleted
	if resp.StatusCode >= 400 && resp.StatusCode != 404 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vespa delete failed: %s - %s", resp.Status, string(respBody))
	}

	return nil
}

// DeleteByFiling removes all chunks for a filing
func (s *CorpusIndex) DeleteByFiling(ctx context.Context, filingID string) error {
	selection := fmt.Sprintf("filing.filing_id==\"%s\"", filingID)
	return s.deleteBySelection(ctx, selection)
}

// DeleteByCompany removes all chunks for a company
func (s *CorpusIndex) DeleteByCompany(ctx context.Context, ticker string) error {
	selection := fmt.Sprintf("filing.ticker==\"%s\"", ticker)
	return s.deleteBySelection(ctx, selection)
}

func (s *CorpusIndex) deleteBySelection(ctx context.Context, selection string) error {
	// Vespa delete by selection using document/v1 API with selection parameter
	deleteURL := fmt.Sprintf("%s/document/v1/finsight/filing/docid/?selection=%s&cluster=finsight",
		s.baseURL, url.QueryEscape(selection))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vespa delete by selection failed: %s - %s", resp.Status, string(respBody))
	}

	return nil
}

// HealthCheck verifies the index is available
func (s *CorpusIndex) HealthCheck(ctx context.Context) error {
	healthURL := fmt.Sprintf("%s/state/v1/health", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vespa health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vespa unhealthy: %s", resp.Status)
	}

	return nil
}

// Count returns the total number of indexed chunks in Vespa
func (s *CorpusIndex) Count(ctx context.Context) (int64, error) {
	// hits=0 returns only the totalCount
	searchReq := map[string]interface{}{
		"yql":  "select * from filing where true",
		"hits": 0,
	}

	body, err := json.Marshal(searchReq)
	if err != nil {
		return 0, err
	}

	searchURL := fmt.Sprintf("%s/search/", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("vespa count query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("vespa count query failed: %s - %s", resp.Status, string(respBody))
	}

	var searchResp vespaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return 0, err
	}

	return searchResp.Root.Fields.TotalCount, nil
}
