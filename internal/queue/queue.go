package queue

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pageproc/page-processor-back/internal/domain"
	"github.com/pageproc/page-processor-back/internal/state"
	"github.com/pageproc/page-processor-back/internal/store"
)

// Processor performs the remote extract+summarize call for one URL.
type Processor interface {
	Process(ctx context.Context, url string, mode domain.Mode) (*domain.ProcessResult, error)
}

// Status is a diagnostic snapshot of the queue.
type Status struct {
	Size             int      `json:"size"`
	ActiveProcessing bool     `json:"active_processing"`
	URLs             []string `json:"urls"`
}

const defaultSettleDelay = 50 * time.Millisecond

type Dependencies struct {
	State     *state.Store
	Results   store.ResultsRepository
	Processor Processor
	Logger    *log.Logger
	// BaseContext bounds the lifetime of the runner goroutine and every
	// job's remote call. Jobs must outlive the request that enqueued
	// them, so this is the process context, not a request context.
	BaseContext context.Context
	// SettleDelay is the pause between jobs that lets asynchronous state
	// observers (persistence, broadcast) settle before the next job's
	// state overwrites the current one.
	SettleDelay time.Duration
}

// Queue serializes submitted URLs into one job at a time, in submission
// order, and drives the processing state through each job's lifecycle.
//
// Pending requests are keyed by URL: submitting a URL that is already
// queued is a no-op, while a URL whose job is already executing (and so
// no longer pending) is accepted as a new, independent job.
type Queue struct {
	stateStore  *state.Store
	results     store.ResultsRepository
	processor   Processor
	logger      *log.Logger
	baseCtx     context.Context
	settleDelay time.Duration

	mu      sync.Mutex
	pending map[string]domain.JobRequest
	running bool
}

func New(deps Dependencies) *Queue {
	settleDelay := deps.SettleDelay
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	baseCtx := deps.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Queue{
		stateStore:  deps.State,
		results:     deps.Results,
		processor:   deps.Processor,
		logger:      deps.Logger,
		baseCtx:     baseCtx,
		settleDelay: settleDelay,
		pending:     make(map[string]domain.JobRequest),
	}
}

// Enqueue records the request and kicks off the runner goroutine when the
// queue is idle. It returns once the entry is recorded; it never waits
// for the job to execute. The job runs under the queue's base context,
// not the caller's, so it survives the request that submitted it.
func (q *Queue) Enqueue(request domain.JobRequest) {
	url := strings.TrimSpace(request.URL)
	if url == "" {
		if q.logger != nil {
			q.logger.Printf("enqueue ignored: empty url")
		}
		return
	}

	q.mu.Lock()
	if _, exists := q.pending[url]; exists {
		q.mu.Unlock()
		if q.logger != nil {
			q.logger.Printf("enqueue ignored: url already queued url=%s", url)
		}
		return
	}
	request.URL = url
	request.EnqueueTime = time.Now()
	q.pending[url] = request
	shouldStart := !q.running
	if shouldStart {
		q.running = true
	}
	size := len(q.pending)
	q.mu.Unlock()

	if q.logger != nil {
		q.logger.Printf("job enqueued url=%s queue_size=%d", url, size)
	}
	if shouldStart {
		go q.run(q.baseCtx)
	}
}

// Clear drops all pending entries. A job already executing keeps running;
// the runner exits once it finds the pending set empty.
func (q *Queue) Clear() {
	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = make(map[string]domain.JobRequest)
	q.mu.Unlock()

	if q.logger != nil && dropped > 0 {
		q.logger.Printf("queue cleared dropped=%d", dropped)
	}
}

// GetStatus reports the queue's pending set for diagnostics.
func (q *Queue) GetStatus() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	urls := make([]string, 0, len(q.pending))
	for url := range q.pending {
		urls = append(urls, url)
	}
	return Status{
		Size:             len(q.pending),
		ActiveProcessing: q.running,
		URLs:             urls,
	}
}

// run executes pending jobs one at a time in enqueue order. It is spawned
// fire-and-forget from Enqueue, so it must never let a panic escape
// unobserved.
func (q *Queue) run(ctx context.Context) {
	defer func() {
		if recovered := recover(); recovered != nil {
			q.mu.Lock()
			q.running = false
			q.mu.Unlock()
			if q.logger != nil {
				q.logger.Printf("queue runner panicked: %v", recovered)
			}
		}
	}()

	for {
		q.mu.Lock()
		request, ok := q.nextLocked()
		if !ok {
			q.running = false
			q.mu.Unlock()
			return
		}
		// Dequeue before the remote call starts: a duplicate submission of
		// this URL while it is in flight counts as a new job.
		delete(q.pending, request.URL)
		remaining := len(q.pending)
		q.mu.Unlock()

		q.runJob(ctx, request, remaining)

		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.running = false
			q.mu.Unlock()
			return
		case <-time.After(q.settleDelay):
		}
	}
}

// nextLocked picks the pending request with the smallest enqueue time.
func (q *Queue) nextLocked() (domain.JobRequest, bool) {
	var (
		oldest domain.JobRequest
		found  bool
	)
	for _, request := range q.pending {
		if !found || request.EnqueueTime.Before(oldest.EnqueueTime) {
			oldest = request
			found = true
		}
	}
	return oldest, found
}

func (q *Queue) runJob(ctx context.Context, request domain.JobRequest, remaining int) {
	// Drop whatever terminal state the previous job left behind.
	q.stateStore.Clear()
	q.stateStore.Set(&domain.ProcessingState{
		URL:         request.URL,
		Title:       request.Title,
		Stage:       domain.StageExtracting,
		Progress:    0.2,
		StatusText:  "Extracting page content",
		TabID:       request.SourceTabID,
		ResultTabID: request.ResultTabID,
		QueueSize:   remaining,
		Timestamp:   time.Now().UTC(),
	})

	result, err := q.processor.Process(ctx, request.URL, request.Mode)
	if err != nil {
		message := strings.TrimSpace(err.Error())
		if message == "" {
			message = "processing failed"
		}
		if q.logger != nil {
			q.logger.Printf("job failed url=%s err=%v", request.URL, err)
		}
		q.stateStore.Set(&domain.ProcessingState{
			URL:         request.URL,
			Title:       request.Title,
			Stage:       domain.StageError,
			Progress:    0,
			StatusText:  message,
			Error:       message,
			TabID:       request.SourceTabID,
			ResultTabID: request.ResultTabID,
			QueueSize:   remaining,
			Timestamp:   time.Now().UTC(),
		})
		return
	}

	stored := buildStoredResult(request, result)
	if err := q.results.Append(ctx, stored); err != nil {
		// Best effort: the viewer can still receive the completed state
		// even when the history write fails.
		if q.logger != nil {
			q.logger.Printf("persist result failed url=%s err=%v", request.URL, err)
		}
	}

	q.stateStore.Set(&domain.ProcessingState{
		URL:         request.URL,
		Title:       stored.Title,
		Stage:       domain.StageCompleted,
		Progress:    1,
		StatusText:  "Summary ready",
		TabID:       request.SourceTabID,
		ResultTabID: request.ResultTabID,
		QueueSize:   remaining,
		Timestamp:   time.Now().UTC(),
	})
	if q.logger != nil {
		q.logger.Printf("job completed url=%s result_id=%s", request.URL, stored.ID)
	}
}

func buildStoredResult(request domain.JobRequest, result *domain.ProcessResult) domain.StoredResult {
	summary := result.Summary
	if strings.TrimSpace(summary) == "" {
		summary = result.Text
	}
	title := result.Title
	if strings.TrimSpace(title) == "" {
		title = request.Title
	}
	return domain.StoredResult{
		ID:          uuid.NewString(),
		URL:         request.URL,
		Title:       title,
		Summary:     summary,
		KeyPoints:   append([]string(nil), result.KeyPoints...),
		Markdown:    result.Markdown,
		HTML:        result.HTML,
		WordCount:   result.WordCount,
		ReadingTime: result.ReadingTime,
		Timestamp:   time.Now().UTC(),
	}
}
