package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultEmbeddingModel = "text-embedding-3-small"
	openAIBaseURL         = "https://api.openai.com/v1"

	// The API caps inputs per request well above this, but filing
	// section chunks are large, so smaller batches keep request
	// bodies manageable.
	maxEmbedBatch = 128

	embedMaxAttempts = 3
)

// openAIModelDimensions maps known embedding models to their native
// vector width. Unknown models fall back to 1536.
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedding generates filing chunk and query embeddings via the
// OpenAI embeddings API (or any API-compatible endpoint).
type OpenAIEmbedding struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
	retryDelay time.Duration
}

func NewOpenAIEmbedding(apiKey, model, baseURL string) (driven.EmbeddingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	dim, ok := openAIModelDimensions[model]
	if !ok {
		dim = 1536
	}

	return &OpenAIEmbedding{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dim,
		client:     &http.Client{Timeout: 60 * time.Second},
		retryDelay: 2 * time.Second,
	}, nil
}

// Embed generates embeddings for the given texts, batching requests so
// arbitrarily long chunk lists stay within API limits. Output order
// matches input order.
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.call(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.call(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedding) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedding) Model() string { return e.model }

// HealthCheck embeds a trivial query to verify credentials and
// connectivity in one round trip.
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

func (e *OpenAIEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

type embedRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// call embeds one batch, retrying on throttling and transient server
// errors, and returns vectors in input order.
func (e *OpenAIEmbedding) call(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{
		Input:          inputs,
		Model:          e.model,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= embedMaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * e.retryDelay):
			}
		}

		status, resp, err := e.post(ctx, body)
		if err != nil {
			lastErr = err
			continue
		}

		if status == http.StatusTooManyRequests || status >= 500 {
			lastErr = fmt.Errorf("OpenAI API returned status %d", status)
			continue
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
				resp.Error.Message, resp.Error.Type, resp.Error.Code)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("OpenAI API returned status %d", status)
		}

		vectors := make([][]float32, len(inputs))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(vectors) {
				return nil, fmt.Errorf("embedding index %d out of range for batch of %d", d.Index, len(inputs))
			}
			vectors[d.Index] = d.Embedding
		}
		for i, v := range vectors {
			if v == nil {
				return nil, fmt.Errorf("no embedding returned for input %d", i)
			}
		}
		return vectors, nil
	}
	return nil, lastErr
}

func (e *OpenAIEmbedding) post(ctx context.Context, body []byte) (int, *embedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	httpResp, err := e.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return httpResp.StatusCode, &resp, nil
}
