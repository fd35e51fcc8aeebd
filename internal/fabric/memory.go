package fabric

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Fabric for tests and single-node runs. Each
// participating process-equivalent takes a Node; publishes fan out to every
// other node's handlers, mirroring the redis fabric's own-echo suppression.
type MemoryBus struct {
	mu    sync.RWMutex
	nodes []*MemoryNode
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Node() *MemoryNode {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := &MemoryNode{bus: b}
	b.nodes = append(b.nodes, n)
	return n
}

type MemoryNode struct {
	bus *MemoryBus

	mu       sync.RWMutex
	handlers []Handler
}

func (n *MemoryNode) Publish(_ context.Context, roomID string, payload []byte) error {
	n.bus.mu.RLock()
	nodes := make([]*MemoryNode, len(n.bus.nodes))
	copy(nodes, n.bus.nodes)
	n.bus.mu.RUnlock()

	for _, other := range nodes {
		if other == n {
			continue
		}
		other.deliver(roomID, payload)
	}
	return nil
}

func (n *MemoryNode) SubscribeAll(_ context.Context, h Handler) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.handlers = append(n.handlers, h)
	return nil
}

func (n *MemoryNode) Close() error { return nil }

func (n *MemoryNode) deliver(roomID string, payload []byte) {
	n.mu.RLock()
	handlers := make([]Handler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	for _, h := range handlers {
		h(roomID, payload)
	}
}
