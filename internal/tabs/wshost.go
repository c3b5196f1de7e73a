package tabs

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 4 * 1024
)

// WSHost implements Host over WebSocket connections. Each result-viewer
// tab connects to /ws?tab_id=N and holds the connection open for its
// lifetime; a closed connection is how the host learns the tab is gone.
type WSHost struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.RWMutex
	conns   map[int]*wsTab
	removed []func(tabID int)
}

type wsTab struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewWSHost(logger *log.Logger) *WSHost {
	return &WSHost{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Extension pages carry chrome-extension:// origins; the HTTP
			// middleware chain already enforces CORS and auth.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[int]*wsTab),
	}
}

// Handler upgrades viewer-tab connections. tab_id is required; a second
// connection for the same tab replaces the first.
func (h *WSHost) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID, err := strconv.Atoi(r.URL.Query().Get("tab_id"))
		if err != nil || tabID <= 0 {
			http.Error(w, "tab_id query parameter is required", http.StatusBadRequest)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			if h.logger != nil {
				h.logger.Printf("websocket upgrade failed tab_id=%d err=%v", tabID, err)
			}
			return
		}
		conn.SetReadLimit(wsReadLimit)

		tab := &wsTab{conn: conn}
		h.mu.Lock()
		if previous, ok := h.conns[tabID]; ok {
			previous.conn.Close()
		}
		h.conns[tabID] = tab
		h.mu.Unlock()

		if h.logger != nil {
			h.logger.Printf("viewer tab connected tab_id=%d", tabID)
		}
		go h.readLoop(tabID, tab)
	}
}

// readLoop drains inbound frames until the connection dies, then tears
// the tab down. Viewer tabs only listen; anything they send is discarded.
func (h *WSHost) readLoop(tabID int, tab *wsTab) {
	for {
		if _, _, err := tab.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	current, ok := h.conns[tabID]
	if ok && current == tab {
		delete(h.conns, tabID)
	}
	callbacks := make([]func(int), len(h.removed))
	copy(callbacks, h.removed)
	h.mu.Unlock()

	tab.conn.Close()
	if !ok || current != tab {
		return
	}
	if h.logger != nil {
		h.logger.Printf("viewer tab disconnected tab_id=%d", tabID)
	}
	for _, fn := range callbacks {
		fn(tabID)
	}
}

func (h *WSHost) TabExists(_ context.Context, tabID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[tabID]
	return ok
}

func (h *WSHost) SendToTab(_ context.Context, tabID int, payload any) error {
	h.mu.RLock()
	tab, ok := h.conns[tabID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tab %d is not connected", tabID)
	}

	tab.writeMu.Lock()
	defer tab.writeMu.Unlock()
	_ = tab.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := tab.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("write to tab %d: %w", tabID, err)
	}
	return nil
}

func (h *WSHost) OnTabRemoved(fn func(tabID int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed = append(h.removed, fn)
}

// Close drops every connection, e.g. on shutdown.
func (h *WSHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for tabID, tab := range h.conns {
		tab.conn.Close()
		delete(h.conns, tabID)
	}
}
