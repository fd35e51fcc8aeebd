package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/interactify/qna-service/config"
	"github.com/interactify/qna-service/internal/fabric"
	"github.com/interactify/qna-service/internal/mongo"
	"github.com/interactify/qna-service/internal/service"
	httpx "github.com/interactify/qna-service/internal/transport/http"
	"github.com/interactify/qna-service/internal/transport/ws"
	"github.com/interactify/qna-service/internal/worker"
	"github.com/interactify/qna-service/pkg/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting qna-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- mongo ---
	ctx := context.Background()
	db, err := mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer func() { _ = db.Close(context.Background()) }()

	sessionRepo := mongo.NewSessionRepository(db)
	if err := sessionRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}

	// --- redis: broadcast fabric + purge queue ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer func() { _ = redisClient.Close() }()

	bus := fabric.NewRedis(redisClient)
	defer func() { _ = bus.Close() }()

	asynqOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(asynqOpt)
	defer func() { _ = asynqClient.Close() }()

	// --- session engine ---
	sessionSvc := service.NewSessionService(sessionRepo, worker.NewScheduler(asynqClient))
	sessionSvc.SetStoreTimeout(cfg.StoreTimeout())
	sessionSvc.SetGraceDelay(cfg.GraceDelay())

	// --- ws hub, broadcaster, server ---
	hub := ws.NewHub()
	broadcaster := ws.NewBroadcaster(hub, bus)
	if err := broadcaster.Run(ctx); err != nil {
		log.Fatalf("fabric subscribe: %v", err)
	}
	dispatcher := ws.NewDispatcher(sessionSvc, hub, broadcaster)
	wsServer := ws.NewServer(hub, dispatcher)

	// --- http ---
	router := httpx.NewRouter(wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- purge worker ---
	purgeSrv := worker.NewServer(asynqOpt, sessionRepo)

	// --- run ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		if err := purgeSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	purgeSrv.Shutdown()
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
