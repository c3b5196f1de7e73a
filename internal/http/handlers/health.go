package handlers

import "net/http"

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ping answers the extension's liveness check.
func (api *API) Ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if api.logger != nil {
		api.logger.Printf("ping received")
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// ExtractorStatus reports whether remote extraction is configured.
func (api *API) ExtractorStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	available := api.processor.ExtractorAvailable()
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": available,
		"available":  available,
	})
}
