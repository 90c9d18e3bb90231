package web

import (
	"log/slog"
	"sync"
)

// Conn is the subset of a WebSocket connection the hub needs. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Hub maintains the set of live subscriber connections and fans out board
// change events. Delivery is best effort: no retry, no ordering guarantee
// across connections, and a failed send drops only the failing subscriber.
type Hub struct {
	mu     sync.RWMutex
	conns  map[Conn]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[Conn]struct{}),
		logger: logger,
	}
}

// Register adds a connection to the active set.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("websocket connected", "active", n)
}

// Unregister removes a connection from the active set. Removing an absent
// connection is a no-op.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	_, present := h.conns[c]
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	if present {
		h.logger.Info("websocket disconnected", "active", n)
	}
}

// Count returns the number of active connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends msg to every active connection. A send failure marks that
// connection dead; dead connections are pruned after the fan-out pass
// completes, so one bad subscriber never aborts delivery to the others.
func (h *Hub) Broadcast(msg any) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var dead []Conn
	for _, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Warn("websocket send failed", "error", err)
			dead = append(dead, c)
		}
	}

	if len(dead) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range dead {
		delete(h.conns, c)
		c.Close()
	}
	h.mu.Unlock()
}

// Event names pushed to subscribers.
const (
	EventCardCreated    = "card_created"
	EventCardUpdated    = "card_updated"
	EventCardMoved      = "card_moved"
	EventCardArchived   = "card_archived"
	EventCardUnarchived = "card_unarchived"
	EventCardDeleted    = "card_deleted"
	EventColumnArchived = "column_archived"
	EventPlanCreated    = "plan_created"
	EventPlanUpdated    = "plan_updated"
	EventPlanDeleted    = "plan_deleted"
)
