package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/monkeycam/internal/display"
	"github.com/ayusman/monkeycam/internal/overlay"
)

// Resizer is a display surface whose viewport can be changed.
type Resizer interface {
	Viewport() overlay.Viewport
	Resize(vp overlay.Viewport) error
}

// ViewportHandler reads and changes the display viewport.
//
//	GET  /api/viewport  returns the current viewport
//	POST /api/viewport  {"width":480,"height":640} resizes the display
type ViewportHandler struct {
	surface Resizer
}

// NewViewportHandler creates a new ViewportHandler for s.
func NewViewportHandler(s Resizer) *ViewportHandler {
	return &ViewportHandler{surface: s}
}

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ViewportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.surface.Viewport())
	case http.MethodPost, http.MethodPut:
		h.resize(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// resize handles POST /api/viewport.
func (h *ViewportHandler) resize(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	vp := overlay.Viewport{Width: req.Width, Height: req.Height}
	if err := h.surface.Resize(vp); err != nil {
		if errors.Is(err, display.ErrInvalidViewport) {
			writeError(w, http.StatusBadRequest, "Width and height must be positive")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to resize viewport")
		return
	}

	writeJSON(w, http.StatusOK, h.surface.Viewport())
}
