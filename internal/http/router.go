package httpserver

import (
	"log"
	"net/http"

	"github.com/pageproc/page-processor-back/internal/http/handlers"
	"github.com/pageproc/page-processor-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	WSHandler      http.HandlerFunc
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/api/ping", deps.API.Ping)
	mux.HandleFunc("/api/message", deps.API.Message)
	mux.HandleFunc("/api/summarize", deps.API.Summarize)
	mux.HandleFunc("/api/results", deps.API.Results)
	mux.HandleFunc("/api/results/", deps.API.ResultByID)
	mux.HandleFunc("/api/extractor/status", deps.API.ExtractorStatus)
	mux.HandleFunc("/api/extractor/scrape", deps.API.Scrape)
	if deps.WSHandler != nil {
		mux.HandleFunc("/ws", deps.WSHandler)
	}

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
