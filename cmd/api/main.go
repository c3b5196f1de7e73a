package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pageproc/page-processor-back/internal/ai"
	"github.com/pageproc/page-processor-back/internal/cache"
	"github.com/pageproc/page-processor-back/internal/config"
	"github.com/pageproc/page-processor-back/internal/extract"
	httpserver "github.com/pageproc/page-processor-back/internal/http"
	"github.com/pageproc/page-processor-back/internal/http/handlers"
	"github.com/pageproc/page-processor-back/internal/processor"
	"github.com/pageproc/page-processor-back/internal/queue"
	"github.com/pageproc/page-processor-back/internal/router"
	"github.com/pageproc/page-processor-back/internal/state"
	"github.com/pageproc/page-processor-back/internal/statesync"
	"github.com/pageproc/page-processor-back/internal/store"
	"github.com/pageproc/page-processor-back/internal/tabs"
)

func main() {
	logger := log.New(os.Stdout, "[pageproc] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, kvCloser := setupKV(ctx, cfg, logger)
	defer kvCloser()

	results, resultsCloser := setupResults(ctx, cfg, logger)
	defer resultsCloser()

	extractor, scraper := setupExtractor(cfg, logger)
	summarizer := ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:          cfg.GeminiAPIKey,
		BaseURL:         cfg.GeminiBaseURL,
		Model:           cfg.GeminiModel,
		Timeout:         time.Duration(cfg.GeminiTimeoutMS) * time.Millisecond,
		MaxRetries:      cfg.GeminiMaxRetries,
		MaxOutputTokens: cfg.GeminiMaxOutputTokens,
	})
	if !summarizer.Available() {
		logger.Printf("GEMINI_API_KEY not configured, summarization will fail until it is set")
	}

	summaryCache := cache.NewSummaryCache(cache.Config{
		TTL:        time.Duration(cfg.SummaryCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.SummaryCacheMaxEntries,
	})
	pageProcessor := processor.NewPageProcessor(processor.Dependencies{
		Extractor:  extractor,
		Summarizer: summarizer,
		Cache:      summaryCache,
		Logger:     logger,
	})

	stateStore := state.NewStore(logger)
	wsHost := tabs.NewWSHost(logger)
	defer wsHost.Close()
	registry := tabs.NewRegistry(wsHost, logger)

	syncer := statesync.New(kv, registry, logger)
	syncer.Attach(stateStore)
	if persisted, err := syncer.Load(ctx); err != nil {
		logger.Printf("failed loading persisted processing state: %v", err)
	} else if persisted != nil {
		logger.Printf("found stale persisted state url=%s stage=%s, clearing", persisted.URL, persisted.Stage)
		stateStore.Clear()
	}

	processingQueue := queue.New(queue.Dependencies{
		State:       stateStore,
		Results:     results,
		Processor:   pageProcessor,
		Logger:      logger,
		BaseContext: ctx,
		SettleDelay: time.Duration(cfg.QueueSettleDelayMS) * time.Millisecond,
	})

	messageRouter := router.New(router.Dependencies{
		State:    stateStore,
		Queue:    processingQueue,
		Registry: registry,
		Logger:   logger,
	})

	api := handlers.NewAPI(handlers.Dependencies{
		Router:     messageRouter,
		Results:    results,
		Processor:  pageProcessor,
		Summarizer: summarizer,
		Scraper:    scraper,
		Logger:     logger,
	})

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		WSHandler:      wsHost.Handler(),
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		logger.Printf("firecrawl configured=%t gemini configured=%t", extractor.Available(), summarizer.Available())
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupKV(ctx context.Context, cfg config.Config, logger *log.Logger) (store.KV, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using in-memory state store")
		return store.NewMemoryKV(), func() {}
	}

	redisKV, err := store.NewRedisKV(ctx, store.RedisConfig{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		KeyPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		logger.Printf("failed to initialize redis state store, fallback to memory: %v", err)
		return store.NewMemoryKV(), func() {}
	}
	logger.Printf("redis state store initialized")
	return redisKV, func() {
		_ = redisKV.Close()
	}
}

func setupResults(ctx context.Context, cfg config.Config, logger *log.Logger) (store.ResultsRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory results repository")
		return store.NewMemoryResultsRepository(), func() {}
	}

	pgRepo, err := store.NewPostgresResultsRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres results repository, fallback to memory: %v", err)
		return store.NewMemoryResultsRepository(), func() {}
	}
	logger.Printf("postgres results repository initialized")
	return pgRepo, func() {
		pgRepo.Close()
	}
}

func setupExtractor(cfg config.Config, logger *log.Logger) (extract.Extractor, extract.Scraper) {
	if cfg.FireCrawlAPIKey == "" {
		logger.Printf("FIRECRAWL_API_KEY not configured, using local readability extractor")
		return extract.NewLocalExtractor(extract.LocalConfig{}), nil
	}
	logger.Printf("firecrawl extractor initialized")
	fireCrawl := extract.NewFireCrawlExtractor(extract.FireCrawlConfig{
		APIKey:     cfg.FireCrawlAPIKey,
		BaseURL:    cfg.FireCrawlBaseURL,
		Timeout:    time.Duration(cfg.FireCrawlTimeoutMS) * time.Millisecond,
		MaxRetries: cfg.FireCrawlMaxRetries,
		Cookies:    cfg.FireCrawlCookies,
	})
	return fireCrawl, fireCrawl
}
