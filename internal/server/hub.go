package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"ocrworker/internal/store"
)

// Hub tracks WebSocket clients and broadcasts job updates to them.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.Mutex
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Start begins the hub loop.
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case <-h.done:
				h.mu.Lock()
				for client := range h.clients {
					_ = client.Close()
					delete(h.clients, client)
				}
				h.mu.Unlock()
				return
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				n := len(h.clients)
				h.mu.Unlock()
				h.logger.Debug("websocket client connected", "clients", n)
			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					_ = client.Close()
				}
				n := len(h.clients)
				h.mu.Unlock()
				h.logger.Debug("websocket client disconnected", "clients", n)
			case message := <-h.broadcast:
				h.mu.Lock()
				for client := range h.clients {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						h.logger.Warn("websocket send failed", "error", err)
						_ = client.Close()
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

// Stop shuts the hub loop down and disconnects all clients.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) Register(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BroadcastJobUpdate sends a finished job's record to all connected clients.
func (h *Hub) BroadcastJobUpdate(rec store.Record) {
	msg, err := json.Marshal(map[string]any{
		"type": "job_update",
		"job":  rec,
	})
	if err != nil {
		h.logger.Error("marshal job update", "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}
