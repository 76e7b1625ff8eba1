// Package api serves live statistics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resonance-tools/combatmeter/internal/engine"
	"github.com/resonance-tools/combatmeter/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// StatsSource reports decoder counters.
type StatsSource interface {
	Stats() engine.Stats
}

// Dependencies holds what the server reads from. Snapshots is required;
// Engine is optional.
type Dependencies struct {
	Snapshots storage.Snapshotter
	Engine    StatsSource
	Logger    *slog.Logger
}

// Server exposes the statistics store over HTTP.
type Server struct {
	deps     Dependencies
	router   *chi.Mux
	registry *prometheus.Registry
}

// NewServer builds the router and registers the Prometheus collectors.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Snapshots == nil {
		return nil, errors.New("api: snapshot source is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		deps:     deps,
		router:   chi.NewRouter(),
		registry: prometheus.NewRegistry(),
	}

	if err := s.registry.Register(newUserCollector(deps.Snapshots)); err != nil {
		return nil, fmt.Errorf("registering user collector: %w", err)
	}
	if deps.Engine != nil {
		if err := s.registry.Register(newEngineCollector(deps.Engine)); err != nil {
			return nil, fmt.Errorf("registering engine collector: %w", err)
		}
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/users", s.handleUsers)
		r.Get("/users/{uid}", s.handleUser)
		r.Post("/reset", s.handleReset)
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("Live API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Snapshots.Snapshot())
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseUint(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		http.Error(w, "invalid uid", http.StatusBadRequest)
		return
	}

	for _, u := range s.deps.Snapshots.Snapshot() {
		if u.UID == uid {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	http.Error(w, "user not found", http.StatusNotFound)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.deps.Snapshots.Reset()
	s.deps.Logger.Info("Statistics reset")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
