// Package edgar implements the filing source port against the SEC's
// EDGAR system: the submissions JSON API for filing listings and the
// archives host for document content.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

// Ensure Client implements FilingSource
var _ driven.FilingSource = (*Client)(nil)

const (
	defaultDataURL    = "https://data.sec.gov"
	defaultArchiveURL = "https://www.sec.gov"

	// SEC fair-access guideline is 10 requests per second
	defaultRequestsPerSec = 10

	defaultTimeout = 30 * time.Second

	// CIK used by Ping to verify the API answers (Apple Inc.)
	pingCIK = 320193
)

// Config holds EDGAR client settings
type Config struct {
	// UserAgent is required by the SEC's access policy and must
	// identify the caller, e.g. "finsight-core admin@example.com"
	UserAgent string

	// DataURL overrides the submissions API host (tests)
	DataURL string

	// ArchiveURL overrides the document archive host (tests)
	ArchiveURL string

	RequestsPerSec float64
	Timeout        time.Duration
}

// Client fetches filing listings and documents from EDGAR.
// All requests pass through a shared rate limiter.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	dataURL    string
	archiveURL string
}

// NewClient creates an EDGAR client. The user agent is mandatory;
// the SEC rejects anonymous traffic.
func NewClient(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("edgar: user agent is required")
	}
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.ArchiveURL == "" {
		cfg.ArchiveURL = defaultArchiveURL
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = defaultRequestsPerSec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), int(cfg.RequestsPerSec)),
		userAgent:  cfg.UserAgent,
		dataURL:    strings.TrimSuffix(cfg.DataURL, "/"),
		archiveURL: strings.TrimSuffix(cfg.ArchiveURL, "/"),
	}, nil
}

// submissionsResponse mirrors the relevant slice of the submissions
// JSON document. The recent block is column-oriented: index i across
// the arrays describes one filing.
type submissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// ListFilings returns the most recent filings of one type for a
// company, newest first, up to limit. The submissions feed is already
// ordered newest first.
func (c *Client) ListFilings(ctx context.Context, company domain.Company, filingType domain.FilingType, limit int) ([]domain.FilingRef, error) {
	if company.CIK <= 0 {
		return nil, fmt.Errorf("edgar: company %s has no CIK", company.Ticker)
	}

	url := fmt.Sprintf("%s/submissions/CIK%010d.json", c.dataURL, company.CIK)
	body, _, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching submissions for %s: %w", company.Ticker, err)
	}

	var subs submissionsResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("parsing submissions for %s: %w", company.Ticker, err)
	}

	recent := subs.Filings.Recent
	var refs []domain.FilingRef
	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.FilingDate) || i >= len(recent.PrimaryDocument) {
			break
		}
		if recent.Form[i] != string(filingType) {
			continue
		}

		filed, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}

		accession := recent.AccessionNumber[i]
		refs = append(refs, domain.FilingRef{
			Ticker:      company.Ticker,
			CIK:         company.CIK,
			Type:        filingType,
			AccessionNo: accession,
			FilingDate:  filed,
			DocumentURL: c.documentURL(company.CIK, accession, recent.PrimaryDocument[i]),
		})
		if limit > 0 && len(refs) >= limit {
			break
		}
	}
	return refs, nil
}

// FetchDocument downloads the primary document for a filing.
func (c *Client) FetchDocument(ctx context.Context, ref domain.FilingRef) (string, string, error) {
	if ref.DocumentURL == "" {
		return "", "", fmt.Errorf("edgar: filing %s has no document URL", ref.AccessionNo)
	}

	body, contentType, err := c.get(ctx, ref.DocumentURL)
	if err != nil {
		return "", "", fmt.Errorf("fetching document %s: %w", ref.AccessionNo, err)
	}
	return string(body), mimeType(contentType, ref.DocumentURL), nil
}

// Ping verifies the submissions API answers for a known CIK
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/submissions/CIK%010d.json", c.dataURL, pingCIK)
	_, _, err := c.get(ctx, url)
	return err
}

// get performs a rate-limited GET and returns the body and the
// Content-Type header.
func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("edgar returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// documentURL builds the archives path for a primary document.
// Accession numbers are dashless in the path segment.
func (c *Client) documentURL(cik int, accessionNo, primaryDoc string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%d/%s/%s",
		c.archiveURL, cik, strings.ReplaceAll(accessionNo, "-", ""), primaryDoc)
}

// mimeType resolves the document MIME type from the response header,
// falling back to the file extension.
func mimeType(contentType, url string) string {
	if contentType != "" {
		if i := strings.Index(contentType, ";"); i >= 0 {
			contentType = contentType[:i]
		}
		return strings.TrimSpace(contentType)
	}
	switch {
	case strings.HasSuffix(url, ".htm"), strings.HasSuffix(url, ".html"):
		return "text/html"
	case strings.HasSuffix(url, ".txt"):
		return "text/plain"
	case strings.HasSuffix(url, ".xml"):
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
