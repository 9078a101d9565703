package simbackend

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// wsEvent mirrors the wire shape the client channel decodes.
type wsEvent struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub holds connected client sessions and broadcasts named events to all of
// them. Delivery is best-effort: a failed write drops the connection.
type Hub struct {
	log   *slog.Logger
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log, conns: make(map[*websocket.Conn]bool)}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	// reap the connection once the peer goes away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.remove(conn)
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) Broadcast(event string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			h.log.Warn("broadcast payload marshal failed", "event", event, "error", err)
			return
		}
		raw = b
	}
	evt := wsEvent{Name: event, Payload: raw}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(evt); err != nil {
			h.log.Warn("ws send error", "error", err)
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}
