package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API, the processing queue
// and the extraction/summarization clients.
type Config struct {
	Port string

	AuthToken          string
	CORSAllowedOrigins []string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	FireCrawlAPIKey     string
	FireCrawlBaseURL    string
	FireCrawlTimeoutMS  int
	FireCrawlMaxRetries int
	// FireCrawlCookies maps a hostname to the Cookie header sent when
	// scraping that site, e.g. {"example.com":"session=abc"}.
	FireCrawlCookies map[string]string

	GeminiAPIKey          string
	GeminiBaseURL         string
	GeminiModel           string
	GeminiTimeoutMS       int
	GeminiMaxRetries      int
	GeminiMaxOutputTokens int

	SummaryCacheTTLSeconds int
	SummaryCacheMaxEntries int

	QueueSettleDelayMS int

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "5001"),

		AuthToken:          getEnv("API_AUTH_TOKEN", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "*"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "pageproc:"),

		FireCrawlAPIKey:     getEnv("FIRECRAWL_API_KEY", ""),
		FireCrawlBaseURL:    getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev/v1"),
		FireCrawlTimeoutMS:  getEnvInt("FIRECRAWL_TIMEOUT_MS", 90000),
		FireCrawlMaxRetries: getEnvInt("FIRECRAWL_MAX_RETRIES", 2),
		FireCrawlCookies:    getEnvStringMap("FIRECRAWL_COOKIES"),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeoutMS:       getEnvInt("GEMINI_TIMEOUT_MS", 60000),
		GeminiMaxRetries:      getEnvInt("GEMINI_MAX_RETRIES", 2),
		GeminiMaxOutputTokens: getEnvInt("GEMINI_MAX_OUTPUT_TOKENS", 1000),

		SummaryCacheTTLSeconds: getEnvInt("SUMMARY_CACHE_TTL_SECONDS", 900),
		SummaryCacheMaxEntries: getEnvInt("SUMMARY_CACHE_MAX_ENTRIES", 500),

		QueueSettleDelayMS: getEnvInt("QUEUE_SETTLE_DELAY_MS", 50),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvStringMap parses a JSON object of string pairs. A missing or
// malformed value yields an empty map rather than failing startup.
func getEnvStringMap(key string) map[string]string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed := make(map[string]string)
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		return nil
	}
	return parsed
}

func getEnvList(key, fallback string) []string {
	value := os.Getenv(key)
	if value == "" {
		value = fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
