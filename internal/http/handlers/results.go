package handlers

import (
	"net/http"
	"strings"

	"github.com/pageproc/page-processor-back/internal/store"
)

// Results lists the stored history, or returns the most recent result for
// ?url=.
func (api *API) Results(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	if url := strings.TrimSpace(r.URL.Query().Get("url")); url != "" {
		result, err := api.results.GetByURL(r.Context(), url)
		if err != nil {
			if err == store.ErrNotFound {
				writeError(w, r, http.StatusNotFound, "not_found", "no result for url")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load result")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": result})
		return
	}

	results, err := api.results.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// ResultByID serves /api/results/{id}.
func (api *API) ResultByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/results/"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "result id is required")
		return
	}

	result, err := api.results.GetByID(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, r, http.StatusNotFound, "not_found", "result not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load result")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
