package realtime

import (
	"log"
	"sync"
)

// invalidationEvent is what subscribed clients receive after a mutation.
type invalidationEvent struct {
	Type  string   `json:"type"`
	Paths []string `json:"paths"`
}

// writer is the slice of Conn the hub needs; tests substitute their own.
type writer interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub fans view-invalidation hints out to every connected client. It
// satisfies services.ViewInvalidator. Broadcasts are fire-and-forget: a dead
// connection is dropped, never surfaced to the mutation that triggered the
// hint.
type Hub struct {
	mu    sync.Mutex
	conns map[writer]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[writer]struct{})}
}

func (h *Hub) Register(conn *Conn) {
	h.add(conn)
}

func (h *Hub) add(conn writer) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(conn writer) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Unregister drops a connection, e.g. when its read side reports EOF.
func (h *Hub) Unregister(conn *Conn) {
	h.remove(conn)
}

// Invalidate broadcasts the changed paths without blocking the caller.
func (h *Hub) Invalidate(paths ...string) {
	if len(paths) == 0 {
		return
	}
	event := invalidationEvent{Type: "invalidate", Paths: paths}

	h.mu.Lock()
	targets := make([]writer, 0, len(h.conns))
	for conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	go func() {
		for _, conn := range targets {
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("realtime: dropping client: %v", err)
				h.remove(conn)
			}
		}
	}()
}
