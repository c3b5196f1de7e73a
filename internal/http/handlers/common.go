package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/pageproc/page-processor-back/internal/extract"
	"github.com/pageproc/page-processor-back/internal/http/middleware"
	"github.com/pageproc/page-processor-back/internal/processor"
	"github.com/pageproc/page-processor-back/internal/router"
	"github.com/pageproc/page-processor-back/internal/store"
)

var errInvalidPayload = errors.New("invalid payload")

// API holds the handler dependencies for every endpoint.
type API struct {
	router     *router.Router
	results    store.ResultsRepository
	processor  *processor.PageProcessor
	summarizer processor.Summarizer
	// scraper is nil when remote extraction is not configured; the raw
	// scrape endpoint then answers 503.
	scraper extract.Scraper
	logger  *log.Logger
}

type Dependencies struct {
	Router     *router.Router
	Results    store.ResultsRepository
	Processor  *processor.PageProcessor
	Summarizer processor.Summarizer
	Scraper    extract.Scraper
	Logger     *log.Logger
}

func NewAPI(deps Dependencies) *API {
	return &API{
		router:     deps.Router,
		results:    deps.Results,
		processor:  deps.Processor,
		summarizer: deps.Summarizer,
		scraper:    deps.Scraper,
		logger:     deps.Logger,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}
