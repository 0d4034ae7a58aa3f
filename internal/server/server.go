// Package server provides the HTTP preview server for MonkeyCam.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/monkeycam/internal/display"
	"github.com/ayusman/monkeycam/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Pipeline  api.StatusProvider
	Surface   *display.Surface
}

// Server represents the HTTP server for the MonkeyCam application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	faces  *FacesHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Pipeline != nil {
		s.mux.Handle("/api/status", api.NewStatusHandler(s.config.Pipeline))
	}

	// Preview endpoints need the display surface
	if s.config.Surface != nil {
		s.mux.Handle("/api/viewport", api.NewViewportHandler(s.config.Surface))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Surface))

		s.faces = NewFacesHandler(s.config.Surface)
		s.mux.Handle("/api/faces", s.faces)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Close stops the face broadcaster and disconnects its clients.
func (s *Server) Close() {
	if s.faces != nil {
		s.faces.Close()
	}
}
