package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pageproc/page-processor-back/internal/domain"
	"github.com/pageproc/page-processor-back/internal/queue"
	"github.com/pageproc/page-processor-back/internal/state"
	"github.com/pageproc/page-processor-back/internal/tabs"
)

// ErrUnknownMessageType marks a request whose type the router does not
// recognize, so surfaces can render "unsupported action" instead of a
// generic failure.
var ErrUnknownMessageType = errors.New("unknown message type")

var ErrInvalidMessage = errors.New("invalid message")

type MessageType string

const (
	MessagePing             MessageType = "ping"
	MessageGetState         MessageType = "get_state"
	MessageStartProcessing  MessageType = "start_processing"
	MessageUpdateProcessing MessageType = "update_processing"
	MessageEndProcessing    MessageType = "end_processing"
	MessageViewerReady      MessageType = "viewer_ready"
	MessageUpdateResultTab  MessageType = "update_result_tab"
)

// Message is a typed request from any extension surface.
type Message struct {
	Type        MessageType  `json:"type"`
	URL         string       `json:"url,omitempty"`
	Title       string       `json:"title,omitempty"`
	TabID       int          `json:"tab_id,omitempty"`
	ResultTabID int          `json:"result_tab_id,omitempty"`
	Mode        domain.Mode  `json:"mode,omitempty"`
	Stage       domain.Stage `json:"stage,omitempty"`
	Progress    *float64     `json:"progress,omitempty"`
	StatusText  string       `json:"status_text,omitempty"`
	// Timestamp is the client's submission clock in Unix milliseconds.
	// Accepted on the wire; server-side state keeps its own clock.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Sender carries what the transport knows about the requesting surface.
type Sender struct {
	TabID int
}

type Dependencies struct {
	State    *state.Store
	Queue    *queue.Queue
	Registry *tabs.Registry
	Logger   *log.Logger
}

// Router validates inbound requests and dispatches them to the queue,
// state and tab registry. It never panics across the boundary: callers
// get either a response payload or an error.
type Router struct {
	stateStore *state.Store
	queue      *queue.Queue
	registry   *tabs.Registry
	logger     *log.Logger
}

func New(deps Dependencies) *Router {
	return &Router{
		stateStore: deps.State,
		queue:      deps.Queue,
		registry:   deps.Registry,
		logger:     deps.Logger,
	}
}

// Dispatch routes one message. The message type switch is exhaustive;
// anything else is ErrUnknownMessageType.
func (r *Router) Dispatch(ctx context.Context, message Message, sender Sender) (map[string]any, error) {
	switch message.Type {
	case MessagePing:
		return map[string]any{"ready": true}, nil
	case MessageGetState:
		return r.handleGetState(), nil
	case MessageStartProcessing:
		return r.handleStartProcessing(message)
	case MessageUpdateProcessing:
		return r.handleUpdateProcessing(message), nil
	case MessageEndProcessing:
		return r.handleEndProcessing(), nil
	case MessageViewerReady:
		return r.handleViewerReady(message, sender), nil
	case MessageUpdateResultTab:
		return r.handleUpdateResultTab(message)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, string(message.Type))
	}
}

func (r *Router) handleGetState() map[string]any {
	current := r.stateStore.Get()
	status := "idle"
	if current != nil {
		status = "processing"
	}
	return map[string]any{
		"status": status,
		"state":  current,
	}
}

func (r *Router) handleStartProcessing(message Message) (map[string]any, error) {
	url := strings.TrimSpace(message.URL)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidMessage)
	}
	mode := message.Mode
	if mode == "" {
		mode = domain.ModeSummarize
	}

	initial := &domain.ProcessingState{
		URL:         url,
		Title:       message.Title,
		Stage:       domain.StageStarting,
		Progress:    0,
		StatusText:  "Starting",
		TabID:       message.TabID,
		ResultTabID: message.ResultTabID,
		Timestamp:   time.Now().UTC(),
	}
	r.stateStore.Set(initial)

	r.queue.Enqueue(domain.JobRequest{
		URL:         url,
		Title:       message.Title,
		SourceTabID: message.TabID,
		ResultTabID: message.ResultTabID,
		Mode:        mode,
	})

	return map[string]any{
		"status": "processing_started",
		"state":  r.stateStore.Get(),
	}, nil
}

func (r *Router) handleUpdateProcessing(message Message) map[string]any {
	patch := state.Update{}
	if message.Stage != "" {
		stage := message.Stage
		patch.Stage = &stage
	}
	if message.Progress != nil {
		patch.Progress = message.Progress
	}
	if message.StatusText != "" {
		statusText := message.StatusText
		patch.StatusText = &statusText
	}
	r.stateStore.Apply(patch)

	return map[string]any{
		"status": "processing_updated",
		"state":  r.stateStore.Get(),
	}
}

func (r *Router) handleEndProcessing() map[string]any {
	r.stateStore.Clear()
	r.queue.Clear()
	return map[string]any{"status": "processing_ended"}
}

func (r *Router) handleViewerReady(message Message, sender Sender) map[string]any {
	tabID := sender.TabID
	if tabID == 0 {
		tabID = message.TabID
	}
	if tabID == 0 {
		// A surface without a tab identity cannot receive broadcasts;
		// acknowledge and move on.
		return map[string]any{"acknowledged": true}
	}

	url := strings.TrimSpace(message.URL)
	if url == "" {
		if current := r.stateStore.Get(); current != nil {
			url = current.URL
		}
	}
	r.registry.Register(tabID, url)
	if r.logger != nil {
		r.logger.Printf("viewer ready tab_id=%d url=%s", tabID, url)
	}
	return map[string]any{"acknowledged": true}
}

func (r *Router) handleUpdateResultTab(message Message) (map[string]any, error) {
	url := strings.TrimSpace(message.URL)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidMessage)
	}

	current := r.stateStore.Get()
	if current == nil || current.URL != url {
		return map[string]any{"status": "no_matching_state"}, nil
	}

	resultTabID := message.ResultTabID
	r.stateStore.Apply(state.Update{ResultTabID: &resultTabID})
	return map[string]any{"status": "updated"}, nil
}
