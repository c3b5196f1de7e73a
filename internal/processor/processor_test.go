package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pageproc/page-processor-back/internal/ai"
	"github.com/pageproc/page-processor-back/internal/cache"
	"github.com/pageproc/page-processor-back/internal/domain"
	"github.com/pageproc/page-processor-back/internal/extract"
)

type stubExtractor struct {
	result    *extract.Result
	err       error
	available bool
}

func (e *stubExtractor) Extract(context.Context, string) (*extract.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func (e *stubExtractor) Available() bool { return e.available }

type stubSummarizer struct {
	calls     int
	result    ai.SummarizeResult
	err       error
	available bool
}

func (s *stubSummarizer) Summarize(context.Context, ai.SummarizeRequest) (ai.SummarizeResult, error) {
	s.calls++
	if s.err != nil {
		return ai.SummarizeResult{}, s.err
	}
	return s.result, nil
}

func (s *stubSummarizer) Available() bool { return s.available }

func TestProcessProducesResult(t *testing.T) {
	markdown := strings.Repeat("word ", 400)
	processor := NewPageProcessor(Dependencies{
		Extractor: &stubExtractor{
			available: true,
			result: &extract.Result{
				Markdown: markdown,
				HTML:     "<p>word</p>",
				Metadata: extract.Metadata{Title: "Example Article"},
			},
		},
		Summarizer: &stubSummarizer{
			available: true,
			result: ai.SummarizeResult{
				Summary:   "A good summary.",
				KeyPoints: []string{"first", "second"},
			},
		},
	})

	result, err := processor.Process(context.Background(), "https://example.com", domain.ModeSummarize)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Title != "Example Article" {
		t.Fatalf("expected extracted title, got %q", result.Title)
	}
	if result.Summary != "A good summary." || len(result.KeyPoints) != 2 {
		t.Fatalf("expected summarizer output, got %+v", result)
	}
	if result.WordCount != 400 {
		t.Fatalf("expected word count 400, got %d", result.WordCount)
	}
	if result.ReadingTime != 2 {
		t.Fatalf("expected reading time 2 minutes, got %d", result.ReadingTime)
	}
}

func TestProcessRejectsUnsupportedMode(t *testing.T) {
	processor := NewPageProcessor(Dependencies{
		Extractor:  &stubExtractor{available: true},
		Summarizer: &stubSummarizer{available: true},
	})

	if _, err := processor.Process(context.Background(), "https://example.com", "translate"); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
}

func TestProcessFallsBackToHTMLContent(t *testing.T) {
	summarizer := &stubSummarizer{
		available: true,
		result:    ai.SummarizeResult{Summary: "html summary"},
	}
	processor := NewPageProcessor(Dependencies{
		Extractor: &stubExtractor{
			available: true,
			result: &extract.Result{
				HTML: "<p>only html available</p>",
			},
		},
		Summarizer: summarizer,
	})

	result, err := processor.Process(context.Background(), "https://example.com", domain.ModeSummarize)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Summary != "html summary" {
		t.Fatalf("expected summary from html content, got %q", result.Summary)
	}
	// Word count comes from markdown, which is absent here.
	if result.WordCount != 0 || result.ReadingTime != 1 {
		t.Fatalf("expected minimum reading time, got words=%d minutes=%d", result.WordCount, result.ReadingTime)
	}
}

func TestProcessFailsWhenPageHasNoContent(t *testing.T) {
	processor := NewPageProcessor(Dependencies{
		Extractor:  &stubExtractor{available: true, result: &extract.Result{}},
		Summarizer: &stubSummarizer{available: true},
	})

	if _, err := processor.Process(context.Background(), "https://example.com", domain.ModeSummarize); err == nil {
		t.Fatalf("expected error for empty page")
	}
}

func TestProcessWrapsExtractionError(t *testing.T) {
	sentinel := errors.New("scrape exploded")
	processor := NewPageProcessor(Dependencies{
		Extractor:  &stubExtractor{available: true, err: sentinel},
		Summarizer: &stubSummarizer{available: true},
	})

	_, err := processor.Process(context.Background(), "https://example.com", domain.ModeSummarize)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped extraction error, got %v", err)
	}
}

func TestProcessUsesSummaryCache(t *testing.T) {
	summarizer := &stubSummarizer{
		available: true,
		result:    ai.SummarizeResult{Summary: "cached summary", KeyPoints: []string{"point"}},
	}
	processor := NewPageProcessor(Dependencies{
		Extractor: &stubExtractor{
			available: true,
			result: &extract.Result{
				Markdown: "stable content",
				Metadata: extract.Metadata{Title: "Stable"},
			},
		},
		Summarizer: summarizer,
		Cache:      cache.NewSummaryCache(cache.Config{}),
	})

	for i := 0; i < 2; i++ {
		result, err := processor.Process(context.Background(), "https://example.com", domain.ModeSummarize)
		if err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
		if result.Summary != "cached summary" {
			t.Fatalf("expected cached summary, got %q", result.Summary)
		}
	}
	if summarizer.calls != 1 {
		t.Fatalf("expected a single model call for identical content, got %d", summarizer.calls)
	}
}

func TestPingReflectsDependencyAvailability(t *testing.T) {
	processor := NewPageProcessor(Dependencies{
		Extractor:  &stubExtractor{available: true},
		Summarizer: &stubSummarizer{available: true},
	})
	if err := processor.Ping(context.Background()); err != nil {
		t.Fatalf("expected healthy ping, got %v", err)
	}

	processor = NewPageProcessor(Dependencies{
		Extractor:  &stubExtractor{available: true},
		Summarizer: &stubSummarizer{available: false},
	})
	if err := processor.Ping(context.Background()); !errors.Is(err, ai.ErrGeminiUnavailable) {
		t.Fatalf("expected gemini unavailable, got %v", err)
	}

	processor = NewPageProcessor(Dependencies{
		Extractor:  &stubExtractor{available: false},
		Summarizer: &stubSummarizer{available: true},
	})
	if err := processor.Ping(context.Background()); !errors.Is(err, extract.ErrFireCrawlUnavailable) {
		t.Fatalf("expected extractor unavailable, got %v", err)
	}
}

func TestReadingTimeMinutes(t *testing.T) {
	cases := []struct {
		words   int
		minutes int
	}{
		{0, 1},
		{1, 1},
		{200, 1},
		{201, 2},
		{1000, 5},
	}
	for _, testCase := range cases {
		if got := readingTimeMinutes(testCase.words); got != testCase.minutes {
			t.Fatalf("expected %d minutes for %d words, got %d", testCase.minutes, testCase.words, got)
		}
	}
}
