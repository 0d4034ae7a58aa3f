package api

import (
	"net/http"

	"github.com/ayusman/monkeycam/internal/pipeline"
)

// StatusProvider reports the pipeline status.
type StatusProvider interface {
	Status() pipeline.Status
}

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	pipeline StatusProvider
}

// NewStatusHandler creates a new StatusHandler for p.
func NewStatusHandler(p StatusProvider) *StatusHandler {
	return &StatusHandler{pipeline: p}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.pipeline.Status())
}
