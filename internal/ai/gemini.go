package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrGeminiUnavailable = errors.New("gemini api key not configured")

// maxInputChars bounds the content sent to the model in one request.
const maxInputChars = 30000

const defaultMaxOutputTokens = 1000

type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxRetries      int
	MaxOutputTokens int
	HTTPClient      *http.Client
}

// GeminiClient generates page summaries through the Gemini generateContent
// API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	timeout         time.Duration
	maxRetries      int
	maxOutputTokens int
	httpClient      *http.Client
}

func NewGeminiClient(config GeminiConfig) *GeminiClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if strings.TrimSpace(config.Model) == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = defaultMaxOutputTokens
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &GeminiClient{
		apiKey:          strings.TrimSpace(config.APIKey),
		baseURL:         strings.TrimSuffix(config.BaseURL, "/"),
		model:           config.Model,
		timeout:         config.Timeout,
		maxRetries:      config.MaxRetries,
		maxOutputTokens: config.MaxOutputTokens,
		httpClient:      config.HTTPClient,
	}
}

func (c *GeminiClient) Available() bool {
	return c.apiKey != ""
}

type SummarizeRequest struct {
	Content   string
	Title     string
	MaxLength int
}

type SummarizeResult struct {
	Summary   string
	KeyPoints []string
}

func (c *GeminiClient) Summarize(ctx context.Context, request SummarizeRequest) (SummarizeResult, error) {
	if !c.Available() {
		return SummarizeResult{}, ErrGeminiUnavailable
	}
	if strings.TrimSpace(request.Content) == "" {
		return SummarizeResult{}, errors.New("content is required")
	}

	content := truncateContent(request.Content, maxInputChars)

	maxOutputTokens := c.maxOutputTokens
	if request.MaxLength > 0 {
		maxOutputTokens = request.MaxLength
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]string{
					{"text": buildSummaryPrompt(content, request.Title)},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     0.2,
			"topP":            0.95,
			"topK":            40,
			"maxOutputTokens": maxOutputTokens,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("marshal gemini payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		summary, callErr := c.callGenerateContentAPI(ctx, encoded)
		if callErr == nil {
			return SummarizeResult{
				Summary:   summary,
				KeyPoints: ExtractKeyPoints(summary),
			}, nil
		}
		lastErr = callErr

		if !isRetryableGeminiError(callErr) || attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(350*(attempt+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return SummarizeResult{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown gemini error")
	}
	return SummarizeResult{}, lastErr
}

func (c *GeminiClient) callGenerateContentAPI(ctx context.Context, payload []byte) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpRequest, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("X-Goog-Api-Key", c.apiKey)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini timeout: %w", err)
		}
		return "", fmt.Errorf("gemini transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 700 {
			message = message[:700]
		}
		return "", &geminiHTTPError{StatusCode: httpResponse.StatusCode, Message: message}
	}

	var raw geminiGenerateContentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	summary := extractGeminiText(raw)
	if strings.TrimSpace(summary) == "" {
		return "", errors.New("gemini response without text output")
	}
	return summary, nil
}

// truncateContent cuts content to at most limit bytes without splitting
// a UTF-8 sequence.
func truncateContent(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

func buildSummaryPrompt(content, title string) string {
	titleClause := ""
	if strings.TrimSpace(title) != "" {
		titleClause = fmt.Sprintf(" titled %q", title)
	}
	return fmt.Sprintf(`You are an AI assistant that creates high-quality, comprehensive summaries of web pages.

Here is the content from a webpage%s:

%s

Please provide:

1. A detailed summary of this content, highlighting the main points, key information, and conclusions.
Format the summary with proper Markdown formatting, including headings, bullet points, and emphasis where appropriate.
The summary should be informative, well-structured, and capture the essence of the original content.

2. A section labeled "**Key Points:**" with 3-5 bullet points of the most important takeaways from the content.
Each bullet point should be concise and start with "*" or "-".
`, titleClause, content)
}

var keyPointsSectionPattern = regexp.MustCompile(`(?s)\*\*Key Points:\*\*(.*?)(\*\*|$)`)

// ExtractKeyPoints pulls the bullet list out of the model's "**Key
// Points:**" section. An absent section yields an empty list.
func ExtractKeyPoints(summary string) []string {
	match := keyPointsSectionPattern.FindStringSubmatch(summary)
	if match == nil {
		return nil
	}

	points := make([]string, 0, 5)
	for _, line := range strings.Split(match[1], "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "*") && !strings.HasPrefix(trimmed, "-") {
			continue
		}
		point := strings.TrimSpace(strings.TrimLeft(trimmed, "*- "))
		if point != "" {
			points = append(points, point)
		}
	}
	return points
}

type geminiGenerateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func extractGeminiText(response geminiGenerateContentResponse) string {
	if len(response.Candidates) == 0 {
		return ""
	}
	fragments := make([]string, 0, len(response.Candidates[0].Content.Parts))
	for _, part := range response.Candidates[0].Content.Parts {
		if strings.TrimSpace(part.Text) == "" {
			continue
		}
		fragments = append(fragments, part.Text)
	}
	return strings.TrimSpace(strings.Join(fragments, "\n"))
}

type geminiHTTPError struct {
	StatusCode int
	Message    string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

func isRetryableGeminiError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *geminiHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
