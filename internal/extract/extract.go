package extract

import "context"

// Metadata carries page-level fields reported by an extractor.
type Metadata struct {
	Title       string
	Description string
	Language    string
	SourceURL   string
}

// Result is the cleaned content of one page.
type Result struct {
	Markdown string
	HTML     string
	Metadata Metadata
}

// Extractor turns a URL into cleaned page content.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Result, error)
	// Available reports whether the extractor is ready to serve requests,
	// e.g. whether a remote API key is configured.
	Available() bool
}

// ScrapeOptions are the tunables of a raw scrape call. Zero values fall
// back to the extractor's defaults.
type ScrapeOptions struct {
	Formats     []string
	IncludeTags []string
	ExcludeTags []string
	// WaitFor delays the scrape by the given milliseconds so
	// script-rendered pages settle first.
	WaitFor int
	Mobile  bool
}

// Scraper exposes the raw scrape call with per-request options, beyond
// the fixed defaults Extract uses.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts ScrapeOptions) (*Result, error)
}
