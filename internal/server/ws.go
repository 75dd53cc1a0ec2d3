package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
)

const (
	// liveInterval is how often the status is sampled for live clients.
	liveInterval = 66 * time.Millisecond
	writeTimeout = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusSource provides the status broadcast to live clients.
type StatusSource interface {
	Status() app.Status
}

// LiveHandler broadcasts the app status over WebSocket whenever it changes.
type LiveHandler struct {
	source StatusSource
	log    *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool // true once the client has a status

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLiveHandler creates a LiveHandler and starts broadcasting.
func NewLiveHandler(source StatusSource, log *zap.Logger) *LiveHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &LiveHandler{
		source:  source,
		log:     log,
		clients: make(map[*websocket.Conn]bool),
		stop:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = false
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Reading detects the close; clients never send anything useful.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops broadcasting. Open connections are closed by their handlers.
func (h *LiveHandler) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *LiveHandler) broadcast() {
	ticker := time.NewTicker(liveInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		msg, err := json.Marshal(h.source.Status())
		if err != nil {
			h.log.Error("encoding status", zap.Error(err))
			continue
		}
		changed := string(msg) != string(last)
		last = msg

		h.mu.Lock()
		for conn, primed := range h.clients {
			if primed && !changed {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("dropping live client", zap.Error(err))
				conn.Close()
				delete(h.clients, conn)
				continue
			}
			h.clients[conn] = true
		}
		h.mu.Unlock()
	}
}
