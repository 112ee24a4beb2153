package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Event types pushed to clients.
const (
	EventToast       = "toast"
	EventOrderStatus = "order.status"
)

// Event represents a WebSocket message to be delivered
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent builds an Event with payload encoded as JSON.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// userEvent is an internal struct for routing events to one user's connections
type userEvent struct {
	UserID string
	Event  Event
}

// Hub maintains the set of active clients and delivers messages to them
type Hub struct {
	// Registered clients by user ID
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *userEvent

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, userID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.userID] == nil {
				h.rooms[client.userID] = make(map[*Client]bool)
			}
			h.rooms[client.userID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.userID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.userID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.UserID]

			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.UserID], client)
					if len(h.rooms[event.UserID]) == 0 {
						delete(h.rooms, event.UserID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToUser sends an event to every connection of one user.
// Events for a user with no open connection are dropped.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	h.broadcast <- &userEvent{
		UserID: userID,
		Event:  event,
	}
}

// Connected reports how many connections userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
