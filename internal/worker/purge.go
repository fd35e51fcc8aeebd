// Package worker runs deferred maintenance off the request path. Today that
// is one task: purging closed sessions after the broadcast grace window.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSessionPurge = "session:purge"

const queueSessions = "sessions"

type PurgePayload struct {
	RoomID string `json:"roomId"`
}

func NewPurgeTask(roomID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PurgePayload{RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("purge payload: %w", err)
	}
	return asynq.NewTask(TaskSessionPurge, payload), nil
}

// Scheduler enqueues purge tasks; it satisfies the engine's PurgeScheduler.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

func (s *Scheduler) SchedulePurge(ctx context.Context, roomID string, in time.Duration) error {
	task, err := NewPurgeTask(roomID)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(in),
		asynq.Queue(queueSessions),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskSessionPurge, err)
	}
	return nil
}

// SessionDeleter is the slice of the store the purge handler needs.
type SessionDeleter interface {
	Delete(ctx context.Context, roomID string) error
}

func HandlePurge(store SessionDeleter) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p PurgePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", TaskSessionPurge, err)
		}
		if err := store.Delete(ctx, p.RoomID); err != nil {
			return fmt.Errorf("purge session %s: %w", p.RoomID, err)
		}
		slog.Info("session purged", "room", p.RoomID)
		return nil
	}
}

// Server wraps the asynq consumer side.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(redisOpt asynq.RedisClientOpt, store SessionDeleter) *Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{queueSessions: 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSessionPurge, HandlePurge(store))
	return &Server{srv: srv, mux: mux}
}

func (s *Server) Start() error {
	return s.srv.Start(s.mux)
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
