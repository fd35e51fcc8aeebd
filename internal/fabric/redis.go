package fabric

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "room:"

// envelope wraps a published event. ServerID lets a subscriber drop its own
// echoes: local delivery already happened synchronously on the publishing
// process.
type envelope struct {
	Payload     json.RawMessage `json:"payload"`
	PublishedAt int64           `json:"publishedAt"`
	ServerID    string          `json:"serverId"`
}

// RedisFabric implements Fabric over redis pub/sub, one channel per room and
// a single pattern subscription covering them all.
type RedisFabric struct {
	client   *redis.Client
	serverID string
	pubsub   *redis.PubSub
}

func NewRedis(client *redis.Client) *RedisFabric {
	return &RedisFabric{
		client:   client,
		serverID: uuid.NewString(),
	}
}

func (f *RedisFabric) Publish(ctx context.Context, roomID string, payload []byte) error {
	env := envelope{
		Payload:     payload,
		PublishedAt: time.Now().UnixMilli(),
		ServerID:    f.serverID,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("fabric publish encode: %w", err)
	}
	if err := f.client.Publish(ctx, channelPrefix+roomID, data).Err(); err != nil {
		return fmt.Errorf("fabric publish: %w", err)
	}
	return nil
}

func (f *RedisFabric) SubscribeAll(ctx context.Context, h Handler) error {
	f.pubsub = f.client.PSubscribe(ctx, channelPrefix+"*")
	// Receive forces the SUBSCRIBE round trip so a failed connection
	// surfaces here instead of silently dropping events.
	if _, err := f.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("fabric subscribe: %w", err)
	}

	go func() {
		for msg := range f.pubsub.Channel() {
			roomID := strings.TrimPrefix(msg.Channel, channelPrefix)
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("fabric: bad envelope", "channel", msg.Channel, "err", err)
				continue
			}
			if env.ServerID == f.serverID {
				continue
			}
			h(roomID, env.Payload)
		}
	}()
	return nil
}

func (f *RedisFabric) Close() error {
	if f.pubsub != nil {
		return f.pubsub.Close()
	}
	return nil
}
