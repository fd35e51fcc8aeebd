package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/interactify/qna-service/internal/fabric"
)

// Broadcaster is the single fan-out chokepoint: every room event goes through
// Deliver, which serves local connections and hands the event to the fabric
// for connections on sibling processes.
type Broadcaster struct {
	hub    *Hub
	fabric fabric.Fabric

	publishTimeout time.Duration
}

func NewBroadcaster(hub *Hub, f fabric.Fabric) *Broadcaster {
	return &Broadcaster{
		hub:            hub,
		fabric:         f,
		publishTimeout: 5 * time.Second,
	}
}

// Run wires fabric events back into local delivery. Events arriving from the
// fabric are delivered with fromFabric=true so they are never re-published.
func (b *Broadcaster) Run(ctx context.Context) error {
	return b.fabric.SubscribeAll(ctx, func(roomID string, payload []byte) {
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Warn("broadcaster: bad fabric payload", "room", roomID, "err", err)
			return
		}
		b.Deliver(roomID, msg, nil, true)
	})
}

// Deliver sends msg to every local connection bound to the room except
// exclude. Sends to dead connections are swallowed: broadcast is best-effort
// notification on top of a durable state change.
func (b *Broadcaster) Deliver(roomID string, msg Message, exclude Conn, fromFabric bool) {
	for _, c := range b.hub.ConnectionsInRoom(roomID) {
		if c == exclude {
			continue
		}
		if err := c.Send(msg); err != nil {
			slog.Debug("broadcast send failed", "room", roomID, "type", msg.Type, "err", err)
		}
	}

	if fromFabric {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("broadcast encode failed", "room", roomID, "type", msg.Type, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.publishTimeout)
	defer cancel()
	if err := b.fabric.Publish(ctx, roomID, payload); err != nil {
		slog.Warn("fabric publish failed", "room", roomID, "type", msg.Type, "err", err)
	}
}

// SendDirect delivers to exactly one connection, no fabric involvement.
func (b *Broadcaster) SendDirect(c Conn, msg Message) {
	if err := c.Send(msg); err != nil {
		slog.Debug("direct send failed", "type", msg.Type, "err", err)
	}
}
