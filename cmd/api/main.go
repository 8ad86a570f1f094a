package main

import (
	"context"
	"log"

	"github.com/UthayakumarDevon/livechatapp/config"
	"github.com/UthayakumarDevon/livechatapp/internal/handler"
	"github.com/UthayakumarDevon/livechatapp/internal/keylock"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"
	chatredis "github.com/UthayakumarDevon/livechatapp/internal/redis"
	"github.com/UthayakumarDevon/livechatapp/internal/server"
	"github.com/UthayakumarDevon/livechatapp/internal/services"
	"github.com/UthayakumarDevon/livechatapp/internal/session"
	"github.com/UthayakumarDevon/livechatapp/internal/storage"
	"github.com/UthayakumarDevon/livechatapp/internal/websocket"
	"github.com/UthayakumarDevon/livechatapp/pkg/database"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()

	store, err := database.OpenStore(ctx, cfg, l.Logger)
	if err != nil {
		l.Logger.Fatal("Failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()
	l.Infof("Store ready (driver=%s)", cfg.Store.Driver)

	blobs, err := storage.New(ctx, cfg.Blob)
	if err != nil {
		l.Logger.Fatal("Failed to build blob store", zap.String("driver", cfg.Blob.Driver), zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	limiter := buildLimiter(ctx, cfg, l)

	wsLog := websocket.NewWebSocketLogger(l.Logger)
	hub := websocket.NewHub(wsLog, m)
	sessions := session.NewRegistry()
	locks := keylock.New()

	publisher := services.NewEventPublisher(hub, l.Logger, m)
	dispatcher := websocket.NewDispatcher(websocket.DispatcherDeps{
		Join:      services.NewJoinService(store, sessions, hub, publisher, l.Logger, m),
		Receipts:  services.NewReceiptService(store, sessions, publisher, locks, l.Logger, m),
		Reactions: services.NewReactionService(store, sessions, publisher, locks, l.Logger, m),
		Custom:    services.NewCustomizationService(store, sessions, publisher, m),
		Publisher: publisher,
		Sessions:  sessions,
		Limiter:   limiter,
		Log:       wsLog,
		Metrics:   m,
	})

	handlers := &server.Handlers{
		WebSocket:     websocket.NewHandler(hub, sessions, dispatcher, limiter, wsLog, cfg.WebSocket.SendBuffer, cfg.Server.CORSOrigins),
		Upload:        handler.NewUploadHandler(blobs, cfg.Blob.MaxBytes, l.Logger),
		Health:        handler.NewHealthHandler(store, hub),
		UploadLimiter: limiter,
		Gatherer:      reg,
	}
	if local, ok := blobs.(*storage.LocalStore); ok {
		handlers.UploadDir = local.Dir()
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers)
	srv.OnShutdown(hub.CloseAll)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited: %v", err)
	}
}

// buildLimiter prefers the shared Redis limiter when REDIS_ADDR is set and
// reachable, and falls back to in-process token buckets otherwise.
func buildLimiter(ctx context.Context, cfg *config.Config, l *logger.Logger) websocket.EventLimiter {
	local := websocket.NewLocalLimiter(cfg.WebSocket.EventRPS, cfg.WebSocket.EventBurst)
	if cfg.Redis.Addr == "" {
		return local
	}

	client, err := chatredis.Connect(ctx, cfg.Redis)
	if err != nil {
		l.Warnf("Redis unavailable, using local rate limits: %v", err)
		return local
	}
	l.Infof("Redis rate limiting enabled (%s)", cfg.Redis.Addr)
	rl := chatredis.NewRateLimiter(client, chatredis.RateLimitConfigFor(cfg.WebSocket.EventRPS, cfg.WebSocket.EventBurst))
	return websocket.NewRedisLimiter(rl, l.Logger)
}
