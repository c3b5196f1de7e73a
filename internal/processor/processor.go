package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/pageproc/page-processor-back/internal/ai"
	"github.com/pageproc/page-processor-back/internal/cache"
	"github.com/pageproc/page-processor-back/internal/domain"
	"github.com/pageproc/page-processor-back/internal/extract"
)

// Summarizer generates a summary with key points for extracted content.
type Summarizer interface {
	Summarize(ctx context.Context, request ai.SummarizeRequest) (ai.SummarizeResult, error)
	Available() bool
}

// wordsPerMinute is the reading speed used for the reading-time estimate.
const wordsPerMinute = 200

type Dependencies struct {
	Extractor  extract.Extractor
	Summarizer Summarizer
	Cache      *cache.SummaryCache
	Logger     *log.Logger
}

// PageProcessor chains content extraction and summarization into the
// remote processing call the queue executes per job.
type PageProcessor struct {
	extractor  extract.Extractor
	summarizer Summarizer
	cache      *cache.SummaryCache
	logger     *log.Logger
}

func NewPageProcessor(deps Dependencies) *PageProcessor {
	return &PageProcessor{
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		cache:      deps.Cache,
		logger:     deps.Logger,
	}
}

// Process extracts the page at url and summarizes it. The mode is carried
// for forward compatibility; summarize is the only supported mode.
func (p *PageProcessor) Process(ctx context.Context, url string, mode domain.Mode) (*domain.ProcessResult, error) {
	if mode != "" && mode != domain.ModeSummarize {
		return nil, fmt.Errorf("unsupported processing mode: %s", mode)
	}

	extracted, err := p.extractor.Extract(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}

	content := extracted.Markdown
	if strings.TrimSpace(content) == "" {
		content = extracted.HTML
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("extracted page has no content")
	}

	summarized, err := p.summarize(ctx, content, extracted.Metadata.Title)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", url, err)
	}

	wordCount := len(strings.Fields(extracted.Markdown))
	if p.logger != nil {
		p.logger.Printf("page processed url=%s words=%d key_points=%d", url, wordCount, len(summarized.KeyPoints))
	}

	return &domain.ProcessResult{
		Title:       extracted.Metadata.Title,
		Summary:     summarized.Summary,
		KeyPoints:   summarized.KeyPoints,
		Markdown:    extracted.Markdown,
		HTML:        extracted.HTML,
		WordCount:   wordCount,
		ReadingTime: readingTimeMinutes(wordCount),
	}, nil
}

func (p *PageProcessor) summarize(ctx context.Context, content, title string) (ai.SummarizeResult, error) {
	var signature string
	if p.cache != nil {
		signature = p.cache.BuildSignature(content, title)
		if entry, ok := p.cache.Get(signature); ok {
			return ai.SummarizeResult{Summary: entry.Summary, KeyPoints: entry.KeyPoints}, nil
		}
	}

	summarized, err := p.summarizer.Summarize(ctx, ai.SummarizeRequest{
		Content: content,
		Title:   title,
	})
	if err != nil {
		return ai.SummarizeResult{}, err
	}

	if p.cache != nil {
		p.cache.Set(signature, cache.Entry{
			Summary:   summarized.Summary,
			KeyPoints: summarized.KeyPoints,
		})
	}
	return summarized, nil
}

// Ping reports whether the processing pipeline can serve requests.
func (p *PageProcessor) Ping(_ context.Context) error {
	if !p.summarizer.Available() {
		return ai.ErrGeminiUnavailable
	}
	if !p.extractor.Available() {
		return extract.ErrFireCrawlUnavailable
	}
	return nil
}

// ExtractorAvailable reports whether the configured extractor is ready,
// for the extractor status endpoint.
func (p *PageProcessor) ExtractorAvailable() bool {
	return p.extractor.Available()
}

func readingTimeMinutes(wordCount int) int {
	minutes := (wordCount + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
