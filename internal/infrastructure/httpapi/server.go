package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"TrendSnapshot/internal/domain"
)

// SnapshotReader is the read surface the API serves. Only published
// snapshots are reachable through it.
type SnapshotReader interface {
	Latest(ctx context.Context) (*domain.Snapshot, error)
	ByID(ctx context.Context, id string) (*domain.Snapshot, error)
}

// Server exposes the published snapshots over HTTP for the UI, report, and
// PDF consumers. It is strictly read-only.
type Server struct {
	reader SnapshotReader
	logger *slog.Logger
}

// NewServer wires the snapshot reader into an HTTP surface.
func NewServer(reader SnapshotReader, logger *slog.Logger) *Server {
	return &Server{reader: reader, logger: logger}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/snapshots", func(r chi.Router) {
		r.Get("/latest", s.handleLatest)
		r.Get("/{id}", s.handleByID)
	})

	return r
}

// Serve blocks until ctx is cancelled, then shuts the listener down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log("snapshot API listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reader.Latest(r.Context())
	s.writeSnapshot(w, snap, err)
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.reader.ByID(r.Context(), id)
	s.writeSnapshot(w, snap, err)
}

func (s *Server) writeSnapshot(w http.ResponseWriter, snap *domain.Snapshot, err error) {
	if err != nil {
		s.log("snapshot lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "snapshot store unavailable",
		})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "snapshot not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
