// Package server exposes the aggregated dashboard state over a read-only
// JSON HTTP API, so the numbers on screen can also be scraped or inspected
// remotely while a session runs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/netscope/netscope/log"
	"github.com/netscope/netscope/monitor"
)

const shutdownTimeout = 5 * time.Second

// Server serves monitor snapshots over HTTP.
type Server struct {
	mon  *monitor.Monitor
	http *http.Server
}

// NewServer returns a Server reading from mon.
func NewServer(mon *monitor.Monitor) *Server {
	return &Server{mon: mon}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.StateHandler)
	mux.HandleFunc("/hops", s.HopsHandler)
	mux.HandleFunc("/connections", s.ConnectionsHandler)
	mux.HandleFunc("/counters", s.CountersHandler)
	return mux
}

// StateHandler handles GET /state requests with the full snapshot.
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, s.mon.Snapshot())
}

// HopsHandler handles GET /hops requests.
func (s *Server) HopsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, s.mon.Snapshot().Hops)
}

// ConnectionsHandler handles GET /connections requests.
func (s *Server) ConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, s.mon.Snapshot().Connections)
}

// CountersHandler handles GET /counters requests.
func (s *Server) CountersHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, s.mon.Snapshot().Counters)
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, monitor.ErrorResponse{
			Code:    monitor.ErrCodeInvalidRequest,
			Message: "method not allowed",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, resp monitor.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("failed to encode error response: %s", err)
	}
}

// Start serves on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.Handler()}
	log.Debugf("starting HTTP server on %s", addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting briefly for in-flight requests.
func (s *Server) Shutdown() error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
