package server

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/monkeycam/internal/display"
	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/gorilla/websocket"
)

// oneFace draws a grey canvas with a single placement.
type oneFace struct{}

func (oneFace) Draw(dst draw.Image) []overlay.Placement {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Gray{Y: 128}), image.Point{}, draw.Src)
	return []overlay.Placement{{Index: 0, Rect: overlay.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4}}}
}

func TestAPI_Stream(t *testing.T) {
	surface := display.NewSurface(overlay.Viewport{Width: 32, Height: 24})
	if _, err := surface.Present(oneFace{}); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	srv := New(Config{Surface: surface})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q, want multipart/x-mixed-replace", ct)
	}

	reader := bufio.NewReader(resp.Body)
	boundary, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read boundary: %v", err)
	}
	if strings.TrimSpace(boundary) != "--frame" {
		t.Errorf("first line = %q, want --frame", boundary)
	}
	header, _ := reader.ReadString('\n')
	if strings.TrimSpace(header) != "Content-Type: image/jpeg" {
		t.Errorf("part header = %q, want image/jpeg", header)
	}
}

func TestAPI_FacesWebSocket(t *testing.T) {
	surface := display.NewSurface(overlay.Viewport{Width: 32, Height: 24})
	srv := New(Config{Surface: surface})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/faces"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.faces.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := surface.Present(oneFace{}); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg struct {
		Seq        uint64              `json:"seq"`
		Viewport   overlay.Viewport    `json:"viewport"`
		Placements []overlay.Placement `json:"placements"`
		Timestamp  int64               `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid message %s: %v", data, err)
	}

	if msg.Seq != 1 {
		t.Errorf("seq = %d, want 1", msg.Seq)
	}
	if msg.Viewport != (overlay.Viewport{Width: 32, Height: 24}) {
		t.Errorf("viewport = %+v", msg.Viewport)
	}
	if len(msg.Placements) != 1 || msg.Placements[0].Rect.Bottom != 4 {
		t.Errorf("placements = %+v", msg.Placements)
	}
	if msg.Timestamp == 0 {
		t.Error("timestamp should be set")
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
