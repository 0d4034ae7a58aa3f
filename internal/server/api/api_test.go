package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/monkeycam/internal/capture"
	"github.com/ayusman/monkeycam/internal/display"
	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/ayusman/monkeycam/internal/pipeline"
)

type staticStatus pipeline.Status

func (s staticStatus) Status() pipeline.Status { return pipeline.Status(s) }

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler(staticStatus{
		State:       pipeline.Running,
		Session:     "abc",
		CaptureSize: capture.Size{Width: 640, Height: 480},
		Viewport:    overlay.Viewport{Width: 1280, Height: 960},
		Stats:       pipeline.Stats{FramesProcessed: 7},
	})

	t.Run("returns pipeline status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp struct {
			State       string           `json:"state"`
			Session     string           `json:"session"`
			CaptureSize capture.Size     `json:"capture_size"`
			Viewport    overlay.Viewport `json:"viewport"`
			Stats       pipeline.Stats   `json:"stats"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if resp.State != "running" {
			t.Errorf("state = %q, want running", resp.State)
		}
		if resp.Session != "abc" {
			t.Errorf("session = %q, want abc", resp.Session)
		}
		if resp.CaptureSize != (capture.Size{Width: 640, Height: 480}) {
			t.Errorf("capture_size = %+v", resp.CaptureSize)
		}
		if resp.Stats.FramesProcessed != 7 {
			t.Errorf("frames_processed = %d, want 7", resp.Stats.FramesProcessed)
		}
	})

	t.Run("only allows GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestViewportHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantVP     overlay.Viewport
	}{
		{
			name:       "get current viewport",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantVP:     overlay.Viewport{Width: 640, Height: 480},
		},
		{
			name:       "rotate",
			method:     http.MethodPost,
			body:       `{"width": 480, "height": 640}`,
			wantStatus: http.StatusOK,
			wantVP:     overlay.Viewport{Width: 480, Height: 640},
		},
		{
			name:       "invalid JSON",
			method:     http.MethodPost,
			body:       `{"width":`,
			wantStatus: http.StatusBadRequest,
			wantVP:     overlay.Viewport{Width: 640, Height: 480},
		},
		{
			name:       "zero size",
			method:     http.MethodPost,
			body:       `{"width": 0, "height": 640}`,
			wantStatus: http.StatusBadRequest,
			wantVP:     overlay.Viewport{Width: 640, Height: 480},
		},
		{
			name:       "method not allowed",
			method:     http.MethodDelete,
			wantStatus: http.StatusMethodNotAllowed,
			wantVP:     overlay.Viewport{Width: 640, Height: 480},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := display.NewSurface(overlay.Viewport{Width: 640, Height: 480})
			h := NewViewportHandler(surface)

			req := httptest.NewRequest(tt.method, "/api/viewport", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if surface.Viewport() != tt.wantVP {
				t.Errorf("viewport = %+v, want %+v", surface.Viewport(), tt.wantVP)
			}

			if tt.wantStatus == http.StatusOK {
				var got overlay.Viewport
				if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if got != tt.wantVP {
					t.Errorf("response viewport = %+v, want %+v", got, tt.wantVP)
				}
			} else {
				var errResp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil || errResp.Error == "" {
					t.Errorf("expected JSON error body, got %q", rec.Body.String())
				}
			}
		})
	}
}
