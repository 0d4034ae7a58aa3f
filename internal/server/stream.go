package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/monkeycam/internal/display"
)

// StreamHandler serves the composited display as MJPEG.
type StreamHandler struct {
	surface *display.Surface
}

// NewStreamHandler creates a new StreamHandler for the given surface.
func NewStreamHandler(surface *display.Surface) *StreamHandler {
	return &StreamHandler{surface: surface}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, frames := h.surface.Subscribe()
	defer h.surface.Unsubscribe(id)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Start with the last picture so a new viewer is not blank
	if f, ok := h.surface.Latest(); ok {
		if err := writePart(w, f.JPEG); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := writePart(w, f.JPEG); err != nil {
				return
			}
		}
	}
}

// writePart writes one MJPEG part and flushes it.
func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
