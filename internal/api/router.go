package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
)

// NewRouter builds the dashboard's chi.Router: status, stats, version
// history, search, and restore endpoints, behind request-ID logging,
// CORS, rate limiting, and security headers.
func NewRouter(cat *catalog.Catalog, pipeline *backup.Pipeline, queue *backup.Queue, deviceID string, mwConfig MiddlewareConfig) http.Handler {
	handler := NewHandler(cat, pipeline, queue, deviceID)
	mw := NewMiddleware(mwConfig)

	r := chi.NewRouter()
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(PrometheusInstrumentation)
	r.Use(handler.performance.Track)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(Compression)

		r.Get("/status", handler.Status)
		r.Get("/stats", handler.Stats)
		r.Get("/versions", handler.Versions)
		r.Get("/search", handler.Search)
		r.Get("/performance", handler.Performance)

		r.Route("/restore", func(r chi.Router) {
			r.Post("/", handler.StartRestore)
			r.Get("/{jobID}", handler.RestoreStatus)
			r.Get("/{jobID}/stream", handler.RestoreStream)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Server wraps an http.Server as a supervised suture.Service: it starts
// ListenAndServe in a goroutine and, on context cancellation, gives active
// connections shutdownTimeout to drain before returning.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func NewServer(addr string, handler http.Handler, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Server{
		httpServer:      &http.Server{Addr: addr, Handler: handler},
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *Server) String() string { return "dashboard-api" }

// Serve implements suture.Service: it runs ListenAndServe until ctx is
// canceled, then gives in-flight requests shutdownTimeout to finish
// before returning.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("dashboard http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}
