package service

import (
	"log"

	"github.com/mealsync/api/internal/ws"
)

// Notifier delivers user-facing notifications.
type Notifier interface {
	Toast(userID, kind, message string)
	OrderStatus(userID, orderID, status string)
}

// ToastPayload is the payload of a toast event.
type ToastPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OrderStatusPayload is the payload of an order.status event.
type OrderStatusPayload struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// HubNotifier pushes notifications to the user's websocket connections.
type HubNotifier struct {
	hub *ws.Hub
}

// NewHubNotifier creates a HubNotifier.
func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Toast(userID, kind, message string) {
	n.send(userID, ws.EventToast, ToastPayload{Type: kind, Message: message})
}

func (n *HubNotifier) OrderStatus(userID, orderID, status string) {
	n.send(userID, ws.EventOrderStatus, OrderStatusPayload{OrderID: orderID, Status: status})
}

func (n *HubNotifier) send(userID, eventType string, payload any) {
	event, err := ws.NewEvent(eventType, payload)
	if err != nil {
		log.Printf("ERROR: build %s event: %v", eventType, err)
		return
	}
	n.hub.BroadcastToUser(userID, event)
}
