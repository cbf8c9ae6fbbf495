package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// SnapshotSource supplies the monitor graph served by /v1/snapshot.
// *telemetry.State implements it.
type SnapshotSource interface {
	Snapshot(now time.Time) telemetry.Snapshot
}

// Server serves probes, Prometheus metrics and read-only snapshots of the
// telemetry state.
type Server struct {
	config      *Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	snapshots   SnapshotSource
	now         func() time.Time

	mu        sync.RWMutex
	ready     bool
	lastCycle *CycleInfo
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshotSource enables the /v1/snapshot route.
func WithSnapshotSource(src SnapshotSource) Option {
	return func(s *Server) {
		s.snapshots = src
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new server instance
func NewServer(config *Config, opts ...Option) *Server {
	if config == nil {
		config = NewConfig()
	}

	s := &Server{
		config:      config,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(config.Address, fmt.Sprint(config.Port)),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// SetReady marks the server as ready to serve traffic
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
	observeReady(ready)
}

// RecordCycle stores the outcome of an engine cycle and marks the server
// ready after the first one.
func (s *Server) RecordCycle(id string, finishedAt time.Time, discovery bool, err error) {
	info := &CycleInfo{ID: id, FinishedAt: finishedAt, Discovery: discovery}
	if err != nil {
		info.Error = err.Error()
	}
	observeCycle(info)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycle = info
	s.ready = true
	observeReady(true)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("server listening", "address", ln.Addr().String(), "name", s.config.Name, "version", s.config.Version)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down server")
	return s.httpServer.Shutdown(shutdownCtx)
}
