package ws

import (
	"sync"

	"github.com/interactify/qna-service/internal/domain"
)

type Conn interface {
	Send(msg Message) error
	Close() error
}

// Binding is a connection's room membership: at most one room+peer at a time.
type Binding struct {
	RoomID string
	Peer   domain.Attendee
}

// Hub is the per-process connection registry. It only tracks which live
// connection belongs to which room; it never touches the session store.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]*Binding // nil binding = registered but not in a room
}

func NewHub() *Hub {
	return &Hub{conns: make(map[Conn]*Binding)}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = nil
}

// Bind associates the connection with one room+peer, replacing any prior
// binding.
func (h *Hub) Bind(c Conn, roomID string, peer domain.Attendee) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	h.conns[c] = &Binding{RoomID: roomID, Peer: peer}
}

func (h *Hub) Unbind(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		h.conns[c] = nil
	}
}

// Unregister removes the connection and returns its last binding so the
// caller can emit a synthetic leave.
func (h *Hub) Unregister(c Conn) (Binding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.conns[c]
	delete(h.conns, c)
	if !ok || b == nil {
		return Binding{}, false
	}
	return *b, true
}

// ConnectionsInRoom returns a snapshot; iterating it is safe against
// concurrent bind/unbind.
func (h *Hub) ConnectionsInRoom(roomID string) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Conn
	for c, b := range h.conns {
		if b != nil && b.RoomID == roomID {
			out = append(out, c)
		}
	}
	return out
}

// ClearRoom drops every binding for the room, e.g. after a close. The
// connections themselves stay registered.
func (h *Hub) ClearRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c, b := range h.conns {
		if b != nil && b.RoomID == roomID {
			h.conns[c] = nil
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
