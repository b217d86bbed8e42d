package websocket

import (
	"log/slog"
	"sync"

	"github.com/mosaicmedia/media-service/internal/types"
)

// Hub maintains the set of active clients and delivers upload lifecycle
// events to them. One connection per user; a reconnect replaces the old one.
type Hub struct {
	// Registered clients mapped by user ID
	clients map[string]*Client

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Channel of pending deliveries
	deliveries chan *delivery
}

type delivery struct {
	userID string
	event  *types.Event
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan *delivery, 64),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if existing, exists := h.clients[client.userID]; exists {
				close(existing.send)
				slog.Info("Replaced existing WebSocket connection", slog.String("user_id", client.userID))
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("WebSocket client connected", slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
				slog.Info("WebSocket client disconnected", slog.String("user_id", client.userID))
			}
			h.mu.Unlock()

		case d := <-h.deliveries:
			h.deliver(d.userID, d.event)
		}
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastToUser sends an event to a specific user. Delivery is
// best-effort: a full queue drops the event rather than blocking.
func (h *Hub) BroadcastToUser(userID string, event *types.Event) {
	select {
	case h.deliveries <- &delivery{userID: userID, event: event}:
	default:
		slog.Warn("Delivery channel is full, dropping event",
			slog.String("user_id", userID),
			slog.String("type", string(event.Type)))
	}
}

func (h *Hub) deliver(userID string, event *types.Event) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	if err := client.SendEvent(event); err != nil {
		slog.Error("Failed to send event to client",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
