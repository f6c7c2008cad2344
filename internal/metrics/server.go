package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a Recorder over HTTP
type Server struct {
	recorder *Recorder
	router   chi.Router
	started  time.Time
	log      *slog.Logger
}

// NewServer builds the router: /metrics, /healthz and /v1/summary
func NewServer(recorder *Recorder, log *slog.Logger) *Server {
	s := &Server{recorder: recorder, started: time.Now().UTC(), log: logger.OrDefault(log)}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{}))
	r.Get("/healthz", s.handleHealthz)
	r.Get("/v1/summary", s.handleSummary)
	s.router = r
	return s
}

// Handler is the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"started":   s.started.Format(time.RFC3339),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.Samples().Summary())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// Serve listens on addr until ctx is cancelled
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on an existing listener until ctx is cancelled
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("metrics server listening", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("metrics server shutdown error", "error", err)
		return err
	}
	return nil
}
