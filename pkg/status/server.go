// Package status serves the read-only HTTP surface: health, the scheduler
// snapshot, the run history and a live SSE firing feed.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rs/cors"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
	"github.com/manthysbr/llmsender/internal/core/services"
)

// TaskSnapshotter exposes the scheduler's current view of every task.
type TaskSnapshotter interface {
	Snapshot() []services.TaskStatus
}

type Server struct {
	logger *slog.Logger
	tasks  TaskSnapshotter
	runs   ports.RunRepository // optional
	bus    *services.EventBus  // optional
}

func NewServer(logger *slog.Logger, tasks TaskSnapshotter, runs ports.RunRepository, bus *services.EventBus) *Server {
	return &Server{logger: logger, tasks: tasks, runs: runs, bus: bus}
}

// Handler builds the routed handler with permissive CORS, so local
// dashboards can poll the API directly from the browser.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/tasks", s.handleTasks)
	mux.HandleFunc("GET /v1/runs", s.handleRuns)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	return cors.AllowAll().Handler(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.tasks.Snapshot())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		http.Error(w, "run history is not enabled", http.StatusNotFound)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(r.Context(), r.URL.Query().Get("task"), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []domain.ExecutionResult{}
	}
	s.writeJSON(w, runs)
}

// handleEvents streams firing lifecycle events as SSE. An optional ?task=
// query narrows the feed to one task; the default is the broadcast feed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "event feed is not enabled", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	key := r.URL.Query().Get("task")
	if key == "" {
		key = services.BroadcastKey
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsub := s.bus.Subscribe(key)
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status API: %w", err)
	case <-ctx.Done():
		shutdownCtx := context.WithoutCancel(ctx)
		return srv.Shutdown(shutdownCtx)
	}
}
