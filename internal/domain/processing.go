package domain

import "time"

type Mode string

const (
	ModeSummarize Mode = "summarize"
)

type Stage string

const (
	StageStarting   Stage = "starting"
	StageExtracting Stage = "extracting"
	StageCompleted  Stage = "completed"
	StageError      Stage = "error"
)

// JobRequest is one submitted URL waiting in the processing queue.
// Requests are keyed by URL; EnqueueTime decides execution order.
type JobRequest struct {
	URL         string
	Title       string
	SourceTabID int
	ResultTabID int
	Mode        Mode
	EnqueueTime time.Time
}

// ProcessingState is the single mutable current-job record. It exists for
// the job currently being processed, or carries the last job's terminal
// stage until explicitly cleared.
type ProcessingState struct {
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Stage       Stage     `json:"stage"`
	Progress    float64   `json:"progress"`
	StatusText  string    `json:"status_text,omitempty"`
	TabID       int       `json:"tab_id,omitempty"`
	ResultTabID int       `json:"result_tab_id,omitempty"`
	QueueSize   int       `json:"queue_size"`
	Timestamp   time.Time `json:"timestamp"`
	Error       string    `json:"error,omitempty"`
}

// ProcessResult is the structured output of one remote extract+summarize
// call, before it is persisted as a StoredResult.
type ProcessResult struct {
	Title       string
	Summary     string
	Text        string
	KeyPoints   []string
	Markdown    string
	HTML        string
	WordCount   int
	ReadingTime int
}

// StoredResult is the immutable persisted output of a completed job.
type StoredResult struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"key_points"`
	Markdown    string    `json:"markdown,omitempty"`
	HTML        string    `json:"html,omitempty"`
	WordCount   int       `json:"word_count"`
	ReadingTime int       `json:"reading_time"`
	Timestamp   time.Time `json:"timestamp"`
}
