package handlers

import (
	"net/http"
	"strings"

	"github.com/pageproc/page-processor-back/internal/ai"
	"github.com/pageproc/page-processor-back/internal/domain"
)

type summarizeRequest struct {
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
}

// Summarize is the direct one-shot path: it processes a URL or summarizes
// provided content without going through the queue.
func (api *API) Summarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request summarizeRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed summarize body")
		return
	}

	url := strings.TrimSpace(request.URL)
	content := strings.TrimSpace(request.Content)
	if url == "" && content == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "either content or url must be provided")
		return
	}

	if url != "" {
		result, err := api.processor.Process(r.Context(), url, domain.ModeSummarize)
		if err != nil {
			if api.logger != nil {
				api.logger.Printf("direct summarize failed url=%s err=%v", url, err)
			}
			writeError(w, r, http.StatusInternalServerError, "processing_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"url":          url,
			"title":        result.Title,
			"summary":      result.Summary,
			"key_points":   result.KeyPoints,
			"word_count":   result.WordCount,
			"reading_time": result.ReadingTime,
		})
		return
	}

	summarized, err := api.summarizer.Summarize(r.Context(), ai.SummarizeRequest{
		Content:   content,
		Title:     request.Title,
		MaxLength: request.MaxLength,
	})
	if err != nil {
		if api.logger != nil {
			api.logger.Printf("direct summarize failed title=%q err=%v", request.Title, err)
		}
		writeError(w, r, http.StatusInternalServerError, "processing_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"title":      request.Title,
		"summary":    summarized.Summary,
		"key_points": summarized.KeyPoints,
	})
}
