package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"transitdb/internal/config"
	"transitdb/internal/handler"
	"transitdb/internal/metrics"
)

// Server is the HTTP server for the schedule API.
type Server struct {
	mux     *http.ServeMux
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	ready   chan struct{} // closed when feed data is available
}

// New creates a Server with all routes registered. Until SetReady is called the
// API answers 503; pass ready=true when the store already holds a feed.
func New(cfg *config.Config, h *handler.Handler, m *metrics.Collector, logger *slog.Logger, ready bool) *Server {
	mux := http.NewServeMux()
	s := &Server{mux: mux, cfg: cfg, logger: logger, metrics: m, ready: make(chan struct{})}
	if ready {
		close(s.ready)
	}

	h.Register(mux)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("/", handler.NotFound)
	return s
}

// SetReady signals that feed data is available.
func (s *Server) SetReady() {
	select {
	case <-s.ready:
		// already closed
	default:
		close(s.ready)
	}
}

// Handler returns the mux wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	return withMiddleware(s.mux, s.logger, s.metrics, s.ready)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
