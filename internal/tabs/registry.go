package tabs

import (
	"context"
	"log"
	"sync"

	"github.com/pageproc/page-processor-back/internal/domain"
)

// Host abstracts the environment that owns result-viewer tabs.
type Host interface {
	TabExists(ctx context.Context, tabID int) bool
	SendToTab(ctx context.Context, tabID int, payload any) error
	// OnTabRemoved registers a callback fired when a tab goes away.
	OnTabRemoved(fn func(tabID int))
}

// StateBroadcast is the payload delivered to every registered viewer tab
// on a processing-state change. Each tab filters by URL on its own side.
type StateBroadcast struct {
	Type  string                  `json:"type"`
	State *domain.ProcessingState `json:"state"`
}

const broadcastType = "processing_state_changed"

// Registry tracks which tabs display results and which URL each one is
// responsible for, and fans out state changes to them. Tabs that turn out
// to be gone during a broadcast are dropped from the registry.
type Registry struct {
	mu     sync.Mutex
	tabs   map[int]string
	host   Host
	logger *log.Logger
}

func NewRegistry(host Host, logger *log.Logger) *Registry {
	registry := &Registry{
		tabs:   make(map[int]string),
		host:   host,
		logger: logger,
	}
	host.OnTabRemoved(registry.Unregister)
	return registry
}

// Register associates the tab with the URL it displays, refreshing any
// previous association.
func (r *Registry) Register(tabID int, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs[tabID] = url
}

func (r *Registry) Unregister(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, tabID)
}

// URLFor returns the URL assigned to the tab, if it is registered.
func (r *Registry) URLFor(tabID int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	url, ok := r.tabs[tabID]
	return url, ok
}

func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Broadcast delivers the state change to every tab registered when the
// broadcast starts. Tabs that no longer exist are skipped and removed
// afterwards; a failed send is logged and the tab stays registered.
func (r *Registry) Broadcast(ctx context.Context, current *domain.ProcessingState) {
	r.mu.Lock()
	targets := make([]int, 0, len(r.tabs))
	for tabID := range r.tabs {
		targets = append(targets, tabID)
	}
	r.mu.Unlock()

	payload := StateBroadcast{Type: broadcastType, State: current}

	missing := make([]int, 0)
	for _, tabID := range targets {
		if !r.host.TabExists(ctx, tabID) {
			missing = append(missing, tabID)
			continue
		}
		if err := r.host.SendToTab(ctx, tabID, payload); err != nil && r.logger != nil {
			r.logger.Printf("broadcast delivery failed tab_id=%d err=%v", tabID, err)
		}
	}

	if len(missing) == 0 {
		return
	}
	r.mu.Lock()
	for _, tabID := range missing {
		delete(r.tabs, tabID)
	}
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.Printf("broadcast pruned missing tabs count=%d", len(missing))
	}
}
