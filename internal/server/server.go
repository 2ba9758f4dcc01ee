// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/analysis"
	"github.com/spigell/question-analyzer/internal/cache"
)

const (
	defaultListen          = ":8080"
	defaultShutdownTimeout = 15 * time.Second
	defaultMaxSessions     = 1024
	maxBodyBytes           = 1 << 20
)

// Config contains the HTTP server settings.
type Config struct {
	Listen          string        `mapstructure:"listen"`
	WatchLexicon    bool          `mapstructure:"watch-lexicon"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	MaxSessions     int           `mapstructure:"max-sessions"`
}

// Server serves analysis requests.
type Server struct {
	cfg      Config
	analyzer atomic.Pointer[analysis.Analyzer]
	sessions *lru.Cache[string, sessionEntry]
	metrics  *Metrics
	pinger   cache.Pinger
	logger   *zap.Logger
	engine   *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics exposes m at /metrics and records requests in it.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithCachePinger reports the cache connection in /healthz.
func WithCachePinger(p cache.Pinger) Option {
	return func(s *Server) {
		s.pinger = p
	}
}

// New creates a Server around analyzer.
func New(cfg Config, analyzer *analysis.Analyzer, logger *zap.Logger, opts ...Option) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}

	sessions, err := lru.New[string, sessionEntry](cfg.MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}
	s.analyzer.Store(analyzer)

	for _, opt := range opts {
		opt(s)
	}

	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()

	router.Use(RequestID())
	router.Use(Logger(s.logger))
	router.Use(Recovery(s.logger))
	if s.metrics != nil {
		router.Use(Instrument(s.metrics))
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	router.GET("/healthz", s.health)

	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", s.analyze)
		v1.GET("/pipeline", s.pipeline)
	}

	return router
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetAnalyzer replaces the analyzer used for new requests, for example after
// the lexicon was reloaded. Sessions are reset because their context was
// built with the previous tables.
func (s *Server) SetAnalyzer(a *analysis.Analyzer) {
	if a == nil {
		return
	}
	s.analyzer.Store(a)
	s.sessions.Purge()
	s.logger.Info("analyzer replaced, sessions reset")
}

// Run serves on the configured address until ctx is cancelled and then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but uses an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh

	s.logger.Info("server exited")
	return nil
}
