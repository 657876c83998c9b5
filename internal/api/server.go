// Package api provides a read-only HTTP view of a running exploration.
// Handlers only read the simulation's published snapshot, never the live
// explorer state, so they are safe to serve while the engine ticks.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/talgya/rescue-explorer/internal/engine"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim  *engine.Simulation
	Port int

	// RunID identifies the stored run, reported by /status.
	RunID string
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	// The grid dump is the heaviest response.
	gridLimiter := NewRateLimiter(30, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/explorers", s.handleExplorers)
	mux.HandleFunc("/api/v1/victims", s.handleVictims)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/grid", RateLimitMiddleware(gridLimiter, s.handleGrid))
	return getOnly(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// getOnly rejects every method but GET and HEAD.
func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	home := 0
	for _, e := range snap.Explorers {
		if e.State == "done" {
			home++
		}
	}
	writeJSON(w, map[string]any{
		"run":          s.RunID,
		"tick":         snap.Tick,
		"done":         snap.Done,
		"explorers":    len(snap.Explorers),
		"home":         home,
		"reports":      snap.Reports,
		"mapped_cells": snap.MappedCells,
		"victims":      len(snap.Victims),
		"grid":         s.Sim.Grid.String(),
	})
}

func (s *Server) handleExplorers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Explorers)
}

func (s *Server) handleVictims(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Victims)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.Snapshot().Events

	// Optional explorer filter.
	if agent := r.URL.Query().Get("explorer"); agent != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Agent == agent {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}

	writeJSON(w, events[start:])
}

// handleGrid returns the simulated grid as drawn by Grid.Render, which
// truncates difficulties to whole digits. The grid is
// never mutated after generation.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.Sim.Grid.Render())
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
