// Package fabric is the cross-process notification channel: any server
// process can publish a room event and every other process relays it to its
// own local connections.
package fabric

import "context"

// Handler receives one published event. payload is the raw event frame as it
// should reach peer connections.
type Handler func(roomID string, payload []byte)

type Fabric interface {
	// Publish notifies all subscribed processes of a room event.
	Publish(ctx context.Context, roomID string, payload []byte) error
	// SubscribeAll registers the handler for events from every room on every
	// sibling process. A process never receives its own publishes back.
	SubscribeAll(ctx context.Context, h Handler) error
	Close() error
}
