// Package api provides the HTTP API for observing runs.
// Every endpoint is read-only: live progress comes from the run's monitor,
// finished runs from the database.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/persistence"
)

// Server serves run state over HTTP.
type Server struct {
	Monitor *engine.Monitor
	DB      *persistence.DB // nil when nothing is stored
	Port    int

	streamLimiter *RateLimiter
	srv           *http.Server
}

// Handler builds the router. Start uses it; tests mount it directly.
func (s *Server) Handler() http.Handler {
	if s.streamLimiter == nil {
		s.streamLimiter = NewRateLimiter(30, time.Minute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/replicas", s.handleReplicas)
	mux.HandleFunc("GET /api/v1/stream", RateLimitMiddleware(s.streamLimiter, s.handleStream))

	// Stored runs.
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/run/{id}/agents", s.handleRunAgents)
	mux.HandleFunc("GET /api/v1/run/{id}/progress", s.handleRunProgress)
	mux.HandleFunc("GET /api/v1/run/{id}/words", s.handleRunWords)
	mux.HandleFunc("GET /api/v1/run/{id}/agent/{replica}/{name}", s.handleAgent)
	mux.HandleFunc("GET /api/v1/run/{id}/agent/{replica}/{name}/memories", s.handleAgentMemories)

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "db", s.DB != nil)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.Monitor == nil {
		writeJSON(w, map[string]any{"running": false, "stored": s.DB != nil})
		return
	}

	replicas := s.Monitor.Snapshot()
	var success, words float64
	cycle := 0
	for _, p := range replicas {
		success += p.Success
		words += p.SuccessfulWords
		cycle = max(cycle, p.Cycle)
	}
	if n := float64(len(replicas)); n > 0 {
		success /= n
		words /= n
	}

	writeJSON(w, map[string]any{
		"running":          !s.Monitor.Done(),
		"stored":           s.DB != nil,
		"run_id":           s.Monitor.RunID(),
		"replicas":         len(replicas),
		"cycle":            cycle,
		"success":          success,
		"successful_words": words,
	})
}

func (s *Server) handleReplicas(w http.ResponseWriter, r *http.Request) {
	if s.Monitor == nil {
		writeJSON(w, []engine.Progress{})
		return
	}
	writeJSON(w, s.Monitor.Snapshot())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}
	runs, err := s.DB.RecentRuns(limit)
	if err != nil {
		s.internalError(w, "recent runs", err)
		return
	}
	writeJSON(w, nonNil(runs))
}

func (s *Server) handleRunAgents(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	rows, err := s.DB.RunAgents(r.PathValue("id"))
	if err != nil {
		s.internalError(w, "run agents", err)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleRunProgress(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	step := 1
	if v := r.URL.Query().Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid step", http.StatusBadRequest)
			return
		}
		step = n
	}
	rows, err := s.DB.Progress(r.PathValue("id"), step)
	if err != nil {
		s.internalError(w, "progress", err)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleRunWords(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	replica, err := strconv.Atoi(r.URL.Query().Get("replica"))
	if err != nil {
		replica = 0
	}
	words, err := s.DB.WordsInWorld(r.PathValue("id"), replica)
	if err != nil {
		s.internalError(w, "words in world", err)
		return
	}
	writeJSON(w, map[string]any{"replica": replica, "words": nonNil(words)})
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	replica, err := strconv.Atoi(r.PathValue("replica"))
	if err != nil {
		http.Error(w, "invalid replica", http.StatusBadRequest)
		return
	}
	snap, err := s.DB.LoadAgent(r.PathValue("id"), replica, r.PathValue("name"))
	if err != nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleAgentMemories(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	replica, err := strconv.Atoi(r.PathValue("replica"))
	if err != nil {
		http.Error(w, "invalid replica", http.StatusBadRequest)
		return
	}
	mems, err := s.DB.AgentMemories(r.PathValue("id"), replica, r.PathValue("name"))
	if err != nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	limit := agents.MaxMemories
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	switch r.URL.Query().Get("sort") {
	case "important":
		mems = agents.ImportantMemories(mems, limit)
	default:
		mems = agents.RecentMemories(mems, limit)
	}
	writeJSON(w, nonNil(mems))
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	slog.Error("api query failed", "query", what, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
