// Package api exposes the finalization pipeline over a thin HTTP surface.
// The pipeline itself stays synchronous and transport-free; this layer is
// glue only.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"signal-engine/internal/signal"
	"signal-engine/internal/snapshot"
)

// SnapshotStore is the optional write side of the snapshot provider,
// implemented by the Redis-backed provider.
type SnapshotStore interface {
	Store(ctx context.Context, snap *signal.IndicatorSnapshot) error
}

// Finalizer is the pipeline surface the API needs.
type Finalizer interface {
	Finalize(payload interface{}, assetID string, snap *signal.IndicatorSnapshot, account signal.AccountState) (signal.ProposedSignal, error)
}

// RateLimiter is a sliding-window request limiter keyed by client.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a RateLimiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow reports whether another request from key fits in the window.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	kept := r.requests[key][:0]
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.limit {
		r.requests[key] = kept
		return false
	}
	r.requests[key] = append(kept, time.Now())
	return true
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	AllowedOrigins  string
	ShutdownTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	pipeline   Finalizer
	snapshots  snapshot.Provider
	store      SnapshotStore
	limiter    *RateLimiter
	logger     zerolog.Logger
	config     ServerConfig
}

// NewServer creates the API server. store may be nil when no writable
// snapshot backend is configured.
func NewServer(
	config ServerConfig,
	pipeline Finalizer,
	snapshots snapshot.Provider,
	store SnapshotStore,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:    gin.New(),
		pipeline:  pipeline,
		snapshots: snapshots,
		store:     store,
		limiter:   NewRateLimiter(120, time.Minute),
		logger:    logger.With().Str("component", "APIServer").Logger(),
		config:    config,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	s.router.Use(cors.New(corsConfig))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.POST("/signals/finalize", s.rateLimited, s.handleFinalize)
		v1.POST("/snapshots", s.rateLimited, s.handleStoreSnapshot)
		v1.GET("/snapshots/:coin", s.handleGetSnapshot)
	}

	return s
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) rateLimited(c *gin.Context) {
	if !s.limiter.Allow(c.ClientIP()) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout := s.config.ShutdownTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
