package config

import "testing"

func TestLoadFireCrawlCookies(t *testing.T) {
	t.Setenv("FIRECRAWL_COOKIES", `{"example.com":"session=abc","news.site":"consent=1; theme=dark"}`)

	cfg := Load()
	if got := cfg.FireCrawlCookies["example.com"]; got != "session=abc" {
		t.Fatalf("expected cookie for example.com, got %q", got)
	}
	if got := cfg.FireCrawlCookies["news.site"]; got != "consent=1; theme=dark" {
		t.Fatalf("expected cookie for news.site, got %q", got)
	}
}

func TestLoadFireCrawlCookiesMissing(t *testing.T) {
	t.Setenv("FIRECRAWL_COOKIES", "")

	if cookies := Load().FireCrawlCookies; cookies != nil {
		t.Fatalf("expected nil cookies when unset, got %+v", cookies)
	}
}

func TestLoadFireCrawlCookiesMalformed(t *testing.T) {
	t.Setenv("FIRECRAWL_COOKIES", "not-json")

	if cookies := Load().FireCrawlCookies; cookies != nil {
		t.Fatalf("expected malformed cookies to be ignored, got %+v", cookies)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FIRECRAWL_BASE_URL", "")
	t.Setenv("RATE_LIMIT_RPS", "")

	cfg := Load()
	if cfg.Port != "5001" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.FireCrawlBaseURL != "https://api.firecrawl.dev/v1" {
		t.Fatalf("unexpected default base url %q", cfg.FireCrawlBaseURL)
	}
	if cfg.RateLimitRPS != 20 {
		t.Fatalf("expected default rate limit, got %v", cfg.RateLimitRPS)
	}
}
