package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UthayakumarDevon/livechatapp/config"
	"github.com/UthayakumarDevon/livechatapp/internal/handler"
	"github.com/UthayakumarDevon/livechatapp/internal/middleware"
	"github.com/UthayakumarDevon/livechatapp/internal/websocket"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	onShutdown []func()
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	WebSocket *websocket.Handler
	Upload    *handler.UploadHandler
	Health    *handler.HealthHandler

	// UploadDir is served under /uploads when set.
	UploadDir string
	// UploadLimiter throttles POST /upload per client IP; nil disables it.
	UploadLimiter middleware.Allower
	// Gatherer backs GET /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.Server.GinMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.GinMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// OnShutdown registers fn to run after the HTTP server stops accepting
// requests. Hooks run in registration order.
func (s *Server) OnShutdown(fn func()) {
	s.onShutdown = append(s.onShutdown, fn)
}

func (s *Server) SetupRoutes(handlers *Handlers) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.Server.CORSOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", handlers.Health.Ping)
	s.engine.GET("/health", handlers.Health.Health)

	if handlers.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(handlers.Gatherer, promhttp.HandlerOpts{})))
	}

	s.engine.GET("/ws", handlers.WebSocket.Connect)

	s.engine.POST("/upload", middleware.RateLimitMiddleware(handlers.UploadLimiter, "upload"), handlers.Upload.Upload)
	if handlers.UploadDir != "" {
		s.engine.Static("/uploads", handlers.UploadDir)
	}
}

func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.Server.Port)
	}

	select {
	case <-quit:
	case err := <-errCh:
		s.runShutdownHooks()
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	err := s.httpServer.Shutdown(ctx)
	s.runShutdownHooks()
	if err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}

func (s *Server) runShutdownHooks() {
	for _, fn := range s.onShutdown {
		fn()
	}
}
