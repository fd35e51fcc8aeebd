package ws

import (
	"sync"
	"testing"

	"github.com/interactify/qna-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records delivered messages.
type fakeConn struct {
	mu     sync.Mutex
	sent   []Message
	closed bool
}

func (c *fakeConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}

func (c *fakeConn) messagesOfType(t string) []Message {
	var out []Message
	for _, m := range c.messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func TestHubBindAndLookup(t *testing.T) {
	hub := NewHub()
	c1, c2, c3 := &fakeConn{}, &fakeConn{}, &fakeConn{}

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	assert.Equal(t, 3, hub.Len())

	hub.Bind(c1, "ROOM01", domain.Attendee{ID: "u1", Name: "Bob"})
	hub.Bind(c2, "ROOM01", domain.Attendee{ID: "u2", Name: "Eve"})
	hub.Bind(c3, "ROOM02", domain.Attendee{ID: "u3", Name: "Kim"})

	assert.Len(t, hub.ConnectionsInRoom("ROOM01"), 2)
	assert.Len(t, hub.ConnectionsInRoom("ROOM02"), 1)
	assert.Empty(t, hub.ConnectionsInRoom("ROOM03"))
}

func TestHubBindReplacesPriorBinding(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.Register(c)

	hub.Bind(c, "ROOM01", domain.Attendee{ID: "u1", Name: "Bob"})
	hub.Bind(c, "ROOM02", domain.Attendee{ID: "u1", Name: "Bob"})

	assert.Empty(t, hub.ConnectionsInRoom("ROOM01"))
	assert.Len(t, hub.ConnectionsInRoom("ROOM02"), 1)
}

func TestHubBindUnregisteredConnIsIgnored(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}

	hub.Bind(c, "ROOM01", domain.Attendee{ID: "u1", Name: "Bob"})
	assert.Empty(t, hub.ConnectionsInRoom("ROOM01"))
	assert.Zero(t, hub.Len())
}

func TestHubUnregisterReturnsBinding(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.Register(c)
	hub.Bind(c, "ROOM01", domain.Attendee{ID: "u1", Name: "Bob"})

	b, ok := hub.Unregister(c)
	require.True(t, ok)
	assert.Equal(t, "ROOM01", b.RoomID)
	assert.Equal(t, "u1", b.Peer.ID)

	// unregistering again yields nothing
	_, ok = hub.Unregister(c)
	assert.False(t, ok)
}

func TestHubUnregisterUnboundConn(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.Register(c)

	_, ok := hub.Unregister(c)
	assert.False(t, ok)
	assert.Zero(t, hub.Len())
}

func TestHubUnbind(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.Register(c)
	hub.Bind(c, "ROOM01", domain.Attendee{ID: "u1", Name: "Bob"})

	hub.Unbind(c)
	assert.Empty(t, hub.ConnectionsInRoom("ROOM01"))
	assert.Equal(t, 1, hub.Len())
}

func TestHubClearRoom(t *testing.T) {
	hub := NewHub()
	c1, c2 := &fakeConn{}, &fakeConn{}
	hub.Register(c1)
	hub.Register(c2)
	hub.Bind(c1, "ROOM01", domain.Attendee{ID: "u1"})
	hub.Bind(c2, "ROOM02", domain.Attendee{ID: "u2"})

	hub.ClearRoom("ROOM01")

	assert.Empty(t, hub.ConnectionsInRoom("ROOM01"))
	assert.Len(t, hub.ConnectionsInRoom("ROOM02"), 1)
	assert.Equal(t, 2, hub.Len())
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			hub.Register(c)
			hub.Bind(c, "ROOM01", domain.Attendee{ID: "u"})
			_ = hub.ConnectionsInRoom("ROOM01")
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	assert.Zero(t, hub.Len())
}
