package edgar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

const submissionsJSON = `{
	"cik": "320193",
	"name": "Apple Inc.",
	"filings": {
		"recent": {
			"accessionNumber": ["0000320193-23-000106", "0000320193-23-000077", "0000320193-22-000108"],
			"form": ["10-K", "10-Q", "10-K"],
			"filingDate": ["2023-11-03", "2023-08-04", "2022-10-28"],
			"primaryDocument": ["aapl-20230930.htm", "aapl-20230701.htm", "aapl-20220924.htm"]
		}
	}
}`

func testCompany() domain.Company {
	return domain.Company{Ticker: "AAPL", CIK: 320193, Name: "Apple Inc."}
}

func newTestClient(t *testing.T, dataURL, archiveURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		UserAgent:  "finsight-core test@example.com",
		DataURL:    dataURL,
		ArchiveURL: archiveURL,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClient_RequiresUserAgent(t *testing.T) {
	_, err := NewClient(Config{})
	if err == nil {
		t.Fatal("expected error for missing user agent")
	}
}

func TestListFilings(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/submissions/CIK0000320193.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(submissionsJSON))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "https://archive.example.com")

	refs, err := client.ListFilings(context.Background(), testCompany(), domain.FilingType10K, 10)
	if err != nil {
		t.Fatalf("ListFilings failed: %v", err)
	}
	if gotUserAgent != "finsight-core test@example.com" {
		t.Errorf("user agent not sent, got %q", gotUserAgent)
	}

	if len(refs) != 2 {
		t.Fatalf("expected 2 10-K filings, got %d", len(refs))
	}
	if refs[0].AccessionNo != "0000320193-23-000106" {
		t.Errorf("expected newest filing first, got %s", refs[0].AccessionNo)
	}
	if refs[0].FilingDate.Year() != 2023 || refs[1].FilingDate.Year() != 2022 {
		t.Errorf("unexpected filing dates: %v, %v", refs[0].FilingDate, refs[1].FilingDate)
	}
	wantURL := "https://archive.example.com/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm"
	if refs[0].DocumentURL != wantURL {
		t.Errorf("document URL = %s, want %s", refs[0].DocumentURL, wantURL)
	}
}

func TestListFilings_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(submissionsJSON))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)

	refs, err := client.ListFilings(context.Background(), testCompany(), domain.FilingType10K, 1)
	if err != nil {
		t.Fatalf("ListFilings failed: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("expected limit to cap results at 1, got %d", len(refs))
	}
}

func TestListFilings_NoCIK(t *testing.T) {
	client := newTestClient(t, "http://unused.example.com", "http://unused.example.com")

	_, err := client.ListFilings(context.Background(), domain.Company{Ticker: "ZZZ"}, domain.FilingType10K, 5)
	if err == nil {
		t.Fatal("expected error for company without CIK")
	}
}

func TestFetchDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>Annual Report</body></html>"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)

	content, mime, err := client.FetchDocument(context.Background(), domain.FilingRef{
		AccessionNo: "0000320193-23-000106",
		DocumentURL: server.URL + "/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm",
	})
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if content != "<html><body>Annual Report</body></html>" {
		t.Errorf("unexpected content: %s", content)
	}
	if mime != "text/html" {
		t.Errorf("expected text/html mime type, got %s", mime)
	}
}

func TestFetchDocument_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)

	_, _, err := client.FetchDocument(context.Background(), domain.FilingRef{
		AccessionNo: "missing",
		DocumentURL: server.URL + "/Archives/edgar/data/1/1/doc.htm",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(submissionsJSON))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestMimeType_Fallback(t *testing.T) {
	cases := []struct {
		contentType string
		url         string
		want        string
	}{
		{"text/html; charset=utf-8", "doc.htm", "text/html"},
		{"", "doc.htm", "text/html"},
		{"", "doc.html", "text/html"},
		{"", "doc.txt", "text/plain"},
		{"", "doc.xml", "application/xml"},
		{"", "doc.bin", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := mimeType(tc.contentType, tc.url); got != tc.want {
			t.Errorf("mimeType(%q, %q) = %q, want %q", tc.contentType, tc.url, got, tc.want)
		}
	}
}
