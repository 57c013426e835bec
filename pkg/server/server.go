// Package server exposes the navigation builder over HTTP so that pages
// which cannot run the card in-process can still resolve taps and graph
// actions. It also serves the websocket endpoint host frames connect to and
// the Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gitlab.com/tinyland/lab/minigraph/pkg/datasource"
	"gitlab.com/tinyland/lab/minigraph/pkg/dispatch"
	"gitlab.com/tinyland/lab/minigraph/pkg/host"
	"gitlab.com/tinyland/lab/minigraph/pkg/metrics"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Options wires the server to its collaborators. Only Settings is required;
// the graph, navigate, websocket and metrics routes are registered when
// their collaborator is present.
type Options struct {
	Settings navigate.Settings
	Source   *datasource.Source
	Hub      *host.Hub
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Debug    bool
}

// Server is the HTTP API.
type Server struct {
	engine     *gin.Engine
	source     *datasource.Source
	hub        *host.Hub
	metrics    *metrics.Metrics
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	mu      sync.RWMutex
	builder *navigate.Builder
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		source:  opts.Source,
		hub:     opts.Hub,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		builder: navigate.NewBuilder(opts.Settings),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.hub != nil {
		s.dispatcher = &dispatch.Dispatcher{Host: s.hub, Embedded: true, Logger: s.logger}
		if s.metrics != nil {
			s.dispatcher.Observer = s.metrics
		}
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger(s.logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.handleHealth)

	if s.hub != nil {
		r.GET("/ws", gin.WrapH(s.hub))
	}
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/settings", s.handleGetSettings)
		v1.PUT("/settings", s.handlePutSettings)
		v1.POST("/resolve", s.handleResolve)
		v1.POST("/full-graph", s.handleFullGraph)
		v1.POST("/node-graph", s.handleNodeGraph)

		if s.source != nil {
			v1.GET("/graph", s.handleGetGraph)
			v1.POST("/graph/refresh", s.handleRefreshGraph)
		}
		if s.dispatcher != nil {
			v1.POST("/navigate", s.handleNavigate)
		}
	}
}

// Handler returns the router for use with httptest or a custom listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Settings returns the settings snapshot targets are built with.
func (s *Server) Settings() navigate.Settings {
	return s.currentBuilder().Settings()
}

// SetSettings swaps the settings snapshot. It is safe to call while
// requests are being served.
func (s *Server) SetSettings(settings navigate.Settings) {
	s.mu.Lock()
	s.builder = navigate.NewBuilder(settings)
	s.mu.Unlock()
}

func (s *Server) currentBuilder() *navigate.Builder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builder
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request at debug level, warn for 5xx.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"took", time.Since(start),
		)
	}
}
