// Package notify pushes session events to browser clients over WebSocket.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randomtoy/raffle-go/internal/ports"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      ports.EventType `json:"type"`
	SessionID string          `json:"sessionId"`
	Mode      string          `json:"mode,omitempty"`
	Remaining int             `json:"remaining"`
	Drawn     int             `json:"drawn"`
	Winner    any             `json:"winner,omitempty"`
	Frame     string          `json:"frame,omitempty"`
}

func toMessage(ev ports.Event) Message {
	m := Message{
		Type:      ev.Type,
		SessionID: ev.SessionID,
		Mode:      string(ev.Mode),
		Remaining: ev.Remaining,
		Drawn:     ev.Drawn,
		Frame:     ev.Frame,
	}
	if ev.Winner != nil {
		m.Winner = ev.Winner.Value()
	}
	return m
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// Hub fans events out to the clients subscribed to each session. Notify
// never blocks: a client whose buffer is full is disconnected.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]map[*client]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// The service binds to the local machine; the UI may be
			// served from a file:// origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subs: make(map[string]map[*client]struct{}),
	}
}

// Notify implements ports.Notifier.
func (h *Hub) Notify(ctx context.Context, ev ports.Event) {
	data, err := json.Marshal(toMessage(ev))
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[ev.SessionID] {
		select {
		case c.send <- data:
		default:
			h.logger.WarnContext(ctx, "dropping slow websocket client", "session_id", ev.SessionID)
			h.removeLocked(ev.SessionID, c)
		}
	}
}

// Subscribers returns the number of clients listening to sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

func (h *Hub) add(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*client]struct{})
	}
	h.subs[sessionID][c] = struct{}{}
}

func (h *Hub) remove(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sessionID, c)
}

func (h *Hub) removeLocked(sessionID string, c *client) {
	set := h.subs[sessionID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, sessionID)
	}
	c.close()
}

// Serve upgrades the request and streams sessionID's events until the
// client disconnects or ctx ends.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(sessionID, c)
	h.logger.InfoContext(ctx, "websocket subscribed", "session_id", sessionID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, c)
	}()

	h.readLoop(c)
	h.remove(sessionID, c)
	<-done
	_ = conn.Close()
	h.logger.InfoContext(ctx, "websocket unsubscribed", "session_id", sessionID)
	return nil
}

// readLoop discards client frames; it exists to process control frames
// and to notice the client going away.
func (h *Hub) readLoop(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ctx.Done():
			_ = c.conn.Close()
			return
		}
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, ports.Event) {}
