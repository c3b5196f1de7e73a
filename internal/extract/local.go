package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

type LocalConfig struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

// LocalExtractor fetches the page itself and distills the main content
// with go-readability. It is the fallback used when no FireCrawl API key
// is configured.
type LocalExtractor struct {
	timeout    time.Duration
	httpClient *http.Client
}

func NewLocalExtractor(config LocalConfig) *LocalExtractor {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &LocalExtractor{
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
	}
}

func (e *LocalExtractor) Available() bool {
	return true
}

func (e *LocalExtractor) Extract(ctx context.Context, pageURL string) (*Result, error) {
	trimmed := strings.TrimSpace(pageURL)
	if trimmed == "" {
		return nil, errors.New("url is required")
	}
	parsedURL, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	rawHTML, err := e.fetch(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("distill page content: %w", err)
	}

	metadata := Metadata{
		Title:     article.Title,
		SourceURL: trimmed,
	}
	enrichMetadata(&metadata, rawHTML)

	return &Result{
		Markdown: strings.TrimSpace(article.TextContent),
		HTML:     article.Content,
		Metadata: metadata,
	}, nil
}

func (e *LocalExtractor) fetch(ctx context.Context, pageURL string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create fetch request: %w", err)
	}
	request.Header.Set("User-Agent", defaultUserAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml")

	response, err := e.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("fetch page: status %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}
	return string(body), nil
}

// enrichMetadata fills fields readability does not report from the raw
// document head.
func enrichMetadata(metadata *Metadata, rawHTML string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return
	}

	if metadata.Title == "" {
		if ogTitle, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			metadata.Title = strings.TrimSpace(ogTitle)
		}
	}
	if metadata.Title == "" {
		metadata.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if description, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		metadata.Description = strings.TrimSpace(description)
	} else if ogDescription, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		metadata.Description = strings.TrimSpace(ogDescription)
	}

	if language, ok := doc.Find("html").Attr("lang"); ok {
		metadata.Language = strings.TrimSpace(language)
	}
}
