package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/monkeycam/internal/display"
	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// facesMessage is sent to clients for every presented frame.
type facesMessage struct {
	Seq        uint64              `json:"seq"`
	Viewport   overlay.Viewport    `json:"viewport"`
	Placements []overlay.Placement `json:"placements"`
	Timestamp  int64               `json:"timestamp"`
}

// FacesHandler broadcasts the overlay placements of every presented frame
// via WebSocket.
type FacesHandler struct {
	surface *display.Surface
	subID   string
	clients map[string]*websocket.Conn
	mu      sync.RWMutex
	done    chan struct{}
}

// NewFacesHandler creates a new FacesHandler and starts broadcasting.
func NewFacesHandler(surface *display.Surface) *FacesHandler {
	id, frames := surface.Subscribe()
	h := &FacesHandler{
		surface: surface,
		subID:   id,
		clients: make(map[string]*websocket.Conn),
		done:    make(chan struct{}),
	}
	go h.broadcast(frames)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FacesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()

	defer h.remove(id)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *FacesHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting and closes all client connections.
func (h *FacesHandler) Close() {
	h.surface.Unsubscribe(h.subID)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}

func (h *FacesHandler) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// broadcast sends placement data to all connected clients.
func (h *FacesHandler) broadcast(frames <-chan display.Frame) {
	defer close(h.done)

	for f := range frames {
		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		h.mu.RUnlock()

		placements := f.Placements
		if placements == nil {
			placements = []overlay.Placement{}
		}
		msg, err := json.Marshal(facesMessage{
			Seq:        f.Seq,
			Viewport:   f.Viewport,
			Placements: placements,
			Timestamp:  f.Timestamp.UnixMilli(),
		})
		if err != nil {
			log.Printf("encode faces message: %v", err)
			continue
		}

		var failed []string
		h.mu.RLock()
		for id, conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				failed = append(failed, id)
			}
		}
		h.mu.RUnlock()

		for _, id := range failed {
			h.remove(id)
		}
	}
}
