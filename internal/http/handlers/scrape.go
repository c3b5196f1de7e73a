package handlers

import (
	"net/http"
	"strings"

	"github.com/pageproc/page-processor-back/internal/extract"
)

type scrapeRequest struct {
	URL         string   `json:"url"`
	Formats     []string `json:"formats,omitempty"`
	IncludeTags []string `json:"include_tags,omitempty"`
	ExcludeTags []string `json:"exclude_tags,omitempty"`
	WaitFor     int      `json:"wait_for,omitempty"`
	Mobile      bool     `json:"mobile,omitempty"`
}

// Scrape is the raw passthrough to the remote scraping API, for callers
// that want the cleaned page without summarization.
func (api *API) Scrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if api.scraper == nil {
		writeError(w, r, http.StatusServiceUnavailable, "extractor_unavailable", "remote extraction is not configured")
		return
	}

	var request scrapeRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed scrape body")
		return
	}
	if strings.TrimSpace(request.URL) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	result, err := api.scraper.Scrape(r.Context(), request.URL, extract.ScrapeOptions{
		Formats:     request.Formats,
		IncludeTags: request.IncludeTags,
		ExcludeTags: request.ExcludeTags,
		WaitFor:     request.WaitFor,
		Mobile:      request.Mobile,
	})
	if err != nil {
		if api.logger != nil {
			api.logger.Printf("raw scrape failed url=%s err=%v", request.URL, err)
		}
		writeError(w, r, http.StatusInternalServerError, "scrape_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"markdown": result.Markdown,
		"html":     result.HTML,
		"metadata": map[string]string{
			"title":       result.Metadata.Title,
			"description": result.Metadata.Description,
			"language":    result.Metadata.Language,
			"source_url":  result.Metadata.SourceURL,
		},
	})
}
