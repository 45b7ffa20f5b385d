package websocket

import (
	"encoding/json"
	"sync"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/pkg/logger"
)

// Hub fans propagation/session events out to connected observers. Clients
// are anonymous; each may filter on a single session id at connect time.
// A single server instance owns all sessions, so there is no cross-node
// relay.
type Hub struct {
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Observer connected", map[string]interface{}{"session_filter": client.SessionFilter})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Hub", "Observer disconnected", map[string]interface{}{"session_filter": client.SessionFilter})
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast implements service.NotificationDelivery. A client whose send
// buffer is full is dropped rather than allowed to stall the hub.
func (h *Hub) Broadcast(message dto.EventMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal event", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	var stale []*Client
	for client := range h.clients {
		if !client.wants(message) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.logger.Warn("Hub", "Observer send buffer full, dropping connection", map[string]interface{}{"session_filter": client.SessionFilter})
		h.unregister <- client
	}
}

// ClientCount is used by the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
