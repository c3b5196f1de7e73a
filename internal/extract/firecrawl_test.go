package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func scrapeSuccessResponse(markdown, html, title string) string {
	payload := map[string]any{
		"success": true,
		"data": map[string]any{
			"markdown": markdown,
			"html":     html,
			"metadata": map[string]string{
				"title":     title,
				"language":  "en",
				"sourceURL": "https://example.com/article",
			},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestFireCrawlExtractParsesScrapeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrape" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer fc-test" {
			t.Errorf("expected bearer token, got %q", got)
		}

		var payload struct {
			URL             string            `json:"url"`
			Formats         []string          `json:"formats"`
			OnlyMainContent bool              `json:"onlyMainContent"`
			ExcludeTags     []string          `json:"excludeTags"`
			Headers         map[string]string `json:"headers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode scrape payload: %v", err)
		}
		if payload.URL != "https://example.com/article" {
			t.Errorf("expected target url, got %q", payload.URL)
		}
		if len(payload.Formats) != 2 || payload.Formats[0] != "markdown" || payload.Formats[1] != "html" {
			t.Errorf("expected markdown+html formats, got %v", payload.Formats)
		}
		if !payload.OnlyMainContent {
			t.Errorf("expected onlyMainContent")
		}
		if len(payload.ExcludeTags) == 0 {
			t.Errorf("expected exclude tags")
		}
		if !strings.Contains(payload.Headers["User-Agent"], "Mozilla") {
			t.Errorf("expected browser user agent, got %q", payload.Headers["User-Agent"])
		}

		_, _ = w.Write([]byte(scrapeSuccessResponse("# Heading\n\nBody.", "<h1>Heading</h1>", "Example Article")))
	}))
	defer server.Close()

	extractor := NewFireCrawlExtractor(FireCrawlConfig{APIKey: "fc-test", BaseURL: server.URL})
	result, err := extractor.Extract(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.HasPrefix(result.Markdown, "# Heading") {
		t.Fatalf("expected markdown content, got %q", result.Markdown)
	}
	if result.Metadata.Title != "Example Article" {
		t.Fatalf("expected metadata title, got %q", result.Metadata.Title)
	}
	if result.Metadata.SourceURL != "https://example.com/article" {
		t.Fatalf("expected source url, got %q", result.Metadata.SourceURL)
	}
}

func TestFireCrawlScrapeForwardsOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Formats     []string `json:"formats"`
			IncludeTags []string `json:"includeTags"`
			ExcludeTags []string `json:"excludeTags"`
			WaitFor     int      `json:"waitFor"`
			Mobile      bool     `json:"mobile"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode scrape payload: %v", err)
		}
		if len(payload.Formats) != 1 || payload.Formats[0] != "markdown" {
			t.Errorf("expected custom formats, got %v", payload.Formats)
		}
		if len(payload.IncludeTags) != 1 || payload.IncludeTags[0] != "article" {
			t.Errorf("expected include tags, got %v", payload.IncludeTags)
		}
		if len(payload.ExcludeTags) != 1 || payload.ExcludeTags[0] != "form" {
			t.Errorf("expected caller exclude tags, got %v", payload.ExcludeTags)
		}
		if payload.WaitFor != 1500 {
			t.Errorf("expected waitFor 1500, got %d", payload.WaitFor)
		}
		if !payload.Mobile {
			t.Errorf("expected mobile flag")
		}
		_, _ = w.Write([]byte(scrapeSuccessResponse("content", "", "Title")))
	}))
	defer server.Close()

	extractor := NewFireCrawlExtractor(FireCrawlConfig{APIKey: "fc-test", BaseURL: server.URL})
	_, err := extractor.Scrape(context.Background(), "https://example.com/article", ScrapeOptions{
		Formats:     []string{"markdown"},
		IncludeTags: []string{"article"},
		ExcludeTags: []string{"form"},
		WaitFor:     1500,
		Mobile:      true,
	})
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
}

func TestFireCrawlExtractWithoutAPIKey(t *testing.T) {
	extractor := NewFireCrawlExtractor(FireCrawlConfig{})

	if extractor.Available() {
		t.Fatalf("expected extractor without key to be unavailable")
	}
	_, err := extractor.Extract(context.Background(), "https://example.com")
	if !errors.Is(err, ErrFireCrawlUnavailable) {
		t.Fatalf("expected ErrFireCrawlUnavailable, got %v", err)
	}
}

func TestFireCrawlExtractRetriesOnServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "flaky upstream", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(scrapeSuccessResponse("recovered", "", "Title")))
	}))
	defer server.Close()

	extractor := NewFireCrawlExtractor(FireCrawlConfig{APIKey: "fc-test", BaseURL: server.URL})
	result, err := extractor.Extract(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Markdown != "recovered" {
		t.Fatalf("expected recovered content, got %q", result.Markdown)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestFireCrawlExtractDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "invalid request", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	extractor := NewFireCrawlExtractor(FireCrawlConfig{APIKey: "fc-test", BaseURL: server.URL})
	if _, err := extractor.Extract(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("expected error for 4xx response")
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestFireCrawlExtractFailsOnUnsuccessfulScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"page blocked"}`))
	}))
	defer server.Close()

	extractor := NewFireCrawlExtractor(FireCrawlConfig{APIKey: "fc-test", BaseURL: server.URL})
	_, err := extractor.Extract(context.Background(), "https://example.com")
	if err == nil || !strings.Contains(err.Error(), "page blocked") {
		t.Fatalf("expected scrape failure message, got %v", err)
	}
}

func TestFireCrawlExtractFailsOnEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(scrapeSuccessResponse("", "", "Title")))
	}))
	defer server.Close()

	extractor := NewFireCrawlExtractor(FireCrawlConfig{APIKey: "fc-test", BaseURL: server.URL})
	if _, err := extractor.Extract(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("expected error for response without content")
	}
}

func TestFireCrawlCookieForHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Headers map[string]string `json:"headers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode scrape payload: %v", err)
		}
		if payload.Headers["Cookie"] != "session=abc" {
			t.Errorf("expected site cookie forwarded, got %q", payload.Headers["Cookie"])
		}
		_, _ = w.Write([]byte(scrapeSuccessResponse("content", "", "Title")))
	}))
	defer server.Close()

	extractor := NewFireCrawlExtractor(FireCrawlConfig{
		APIKey:  "fc-test",
		BaseURL: server.URL,
		Cookies: map[string]string{"example.com": "session=abc"},
	})
	if _, err := extractor.Extract(context.Background(), "https://www.example.com/article"); err != nil {
		t.Fatalf("extract: %v", err)
	}
}

func TestLocalExtractDistillsMainContent(t *testing.T) {
	page := `<!DOCTYPE html>
<html lang="en">
<head>
<title>Local Article</title>
<meta name="description" content="A page served for extraction tests.">
</head>
<body>
<nav>site navigation</nav>
<article>
<h1>Local Article</h1>
<p>This is the main body of the article. It has enough text for the
readability pass to treat it as the primary content of the document.
It keeps going for a few sentences so scoring works out.</p>
<p>Another paragraph with more meaningful article text to score.</p>
</article>
<footer>footer junk</footer>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	extractor := NewLocalExtractor(LocalConfig{})
	if !extractor.Available() {
		t.Fatalf("expected local extractor to always be available")
	}

	result, err := extractor.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(result.Markdown, "main body of the article") {
		t.Fatalf("expected article text in content, got %q", result.Markdown)
	}
	if result.Metadata.Title != "Local Article" {
		t.Fatalf("expected title from document, got %q", result.Metadata.Title)
	}
	if result.Metadata.Description != "A page served for extraction tests." {
		t.Fatalf("expected description metadata, got %q", result.Metadata.Description)
	}
	if result.Metadata.Language != "en" {
		t.Fatalf("expected language metadata, got %q", result.Metadata.Language)
	}
}

func TestLocalExtractRejectsEmptyURL(t *testing.T) {
	extractor := NewLocalExtractor(LocalConfig{})
	if _, err := extractor.Extract(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
