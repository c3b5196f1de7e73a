package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrFireCrawlUnavailable = errors.New("firecrawl api key not configured")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var defaultExcludeTags = []string{"nav", "footer", "aside", "script", "style"}

type FireCrawlConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	// Cookies maps a hostname to a Cookie header value sent along with the
	// scrape request for that site.
	Cookies map[string]string
}

// FireCrawlExtractor scrapes pages through the FireCrawl API, requesting
// markdown and html of the main content only.
type FireCrawlExtractor struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	cookies    map[string]string
}

func NewFireCrawlExtractor(config FireCrawlConfig) *FireCrawlExtractor {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.firecrawl.dev/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &FireCrawlExtractor{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		httpClient: config.HTTPClient,
		cookies:    config.Cookies,
	}
}

func (e *FireCrawlExtractor) Available() bool {
	return e.apiKey != ""
}

func (e *FireCrawlExtractor) Extract(ctx context.Context, pageURL string) (*Result, error) {
	return e.Scrape(ctx, pageURL, ScrapeOptions{})
}

// Scrape performs one scrape call with explicit options, backing both
// Extract and the raw scrape endpoint.
func (e *FireCrawlExtractor) Scrape(ctx context.Context, pageURL string, opts ScrapeOptions) (*Result, error) {
	if !e.Available() {
		return nil, ErrFireCrawlUnavailable
	}
	if strings.TrimSpace(pageURL) == "" {
		return nil, errors.New("url is required")
	}

	targetHeaders := map[string]string{"User-Agent": defaultUserAgent}
	if cookie := e.cookieFor(pageURL); cookie != "" {
		targetHeaders["Cookie"] = cookie
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = []string{"markdown", "html"}
	}
	excludeTags := opts.ExcludeTags
	if len(excludeTags) == 0 {
		excludeTags = defaultExcludeTags
	}

	payload := map[string]any{
		"url":                pageURL,
		"formats":            formats,
		"onlyMainContent":    true,
		"removeBase64Images": true,
		"excludeTags":        excludeTags,
		"headers":            targetHeaders,
	}
	if len(opts.IncludeTags) > 0 {
		payload["includeTags"] = opts.IncludeTags
	}
	if opts.WaitFor > 0 {
		payload["waitFor"] = opts.WaitFor
	}
	if opts.Mobile {
		payload["mobile"] = true
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal scrape payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		result, callErr := e.callScrapeAPI(ctx, encoded)
		if callErr == nil {
			return result, nil
		}
		lastErr = callErr

		if !isRetryableScrapeError(callErr) || attempt == e.maxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown firecrawl error")
	}
	return nil, lastErr
}

func (e *FireCrawlExtractor) callScrapeAPI(ctx context.Context, payload []byte) (*Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(
		timeoutCtx,
		http.MethodPost,
		e.baseURL+"/scrape",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("create scrape request: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+e.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := e.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("firecrawl timeout: %w", err)
		}
		return nil, fmt.Errorf("firecrawl transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("read firecrawl body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 700 {
			message = message[:700]
		}
		return nil, &scrapeHTTPError{StatusCode: httpResponse.StatusCode, Message: message}
	}

	var raw fireCrawlScrapeResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode firecrawl response: %w", err)
	}
	if !raw.Success {
		message := strings.TrimSpace(raw.Error)
		if message == "" {
			message = "scrape did not succeed"
		}
		return nil, fmt.Errorf("firecrawl scrape failed: %s", message)
	}
	if strings.TrimSpace(raw.Data.Markdown) == "" && strings.TrimSpace(raw.Data.HTML) == "" {
		return nil, errors.New("firecrawl response without content")
	}

	return &Result{
		Markdown: raw.Data.Markdown,
		HTML:     raw.Data.HTML,
		Metadata: Metadata{
			Title:       raw.Data.Metadata.Title,
			Description: raw.Data.Metadata.Description,
			Language:    raw.Data.Metadata.Language,
			SourceURL:   raw.Data.Metadata.SourceURL,
		},
	}, nil
}

func (e *FireCrawlExtractor) cookieFor(pageURL string) string {
	if len(e.cookies) == 0 {
		return ""
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	if cookie, ok := e.cookies[host]; ok {
		return cookie
	}
	return e.cookies[strings.TrimPrefix(host, "www.")]
}

type fireCrawlScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Language    string `json:"language"`
			SourceURL   string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
}

type scrapeHTTPError struct {
	StatusCode int
	Message    string
}

func (e *scrapeHTTPError) Error() string {
	return fmt.Sprintf("firecrawl status %d: %s", e.StatusCode, e.Message)
}

func isRetryableScrapeError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *scrapeHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "timeout") || strings.Contains(message, "connection")
}
