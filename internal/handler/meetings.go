package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/service"
)

// Meetings defines the meeting cart and meeting order operations.
// Satisfied by *service.MeetingService; narrow interface for testability.
type Meetings interface {
	Meetings() []model.Meeting
	AddToCart(ctx context.Context, userID, itemID string, quantity int) ([]model.CartLine, error)
	RemoveFromCart(userID, itemID string) []model.CartLine
	PlaceOrder(userID string, req service.PlaceMeetingOrderRequest) (model.MeetingOrder, error)
	ConfirmReceipt(userID, orderID string) (model.MeetingOrder, error)
}

// MeetingHandler handles meeting refreshment orders.
type MeetingHandler struct {
	meetings Meetings
	toaster  Toaster
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(meetings Meetings, toaster Toaster) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, toaster: toaster}
}

// RegisterSessionRoutes registers meeting endpoints.
// Expected to be mounted on /session.
func (h *MeetingHandler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/meetings", h.List)
	r.Post("/meeting-cart", h.AddToCart)
	r.Delete("/meeting-cart/{itemId}", h.RemoveFromCart)
	r.Post("/meeting-orders", h.Place)
	r.Post("/meeting-orders/{id}/confirm", h.Confirm)
}

// --- Request / Response types ---

type addToCartRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type placeMeetingOrderRequest struct {
	MeetingID      string `json:"meeting_id"`
	DeliveryOption string `json:"delivery_option"`
	DeliveryTime   string `json:"delivery_time"`
}

// --- Handlers ---

// List returns the upcoming meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"meetings": h.meetings.Meetings()})
}

// AddToCart adds an item to the caller's meeting cart.
func (h *MeetingHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_id is required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	uid := userID(r)
	cart, err := h.meetings.AddToCart(r.Context(), uid, req.ItemID, req.Quantity)
	if err != nil {
		writeSessionError(w, h.toaster, uid, "add to meeting cart", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cart": cart})
}

// RemoveFromCart drops an item from the caller's meeting cart.
func (h *MeetingHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cart := h.meetings.RemoveFromCart(userID(r), chi.URLParam(r, "itemId"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"cart": cart})
}

// Place turns the caller's meeting cart into an order.
func (h *MeetingHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeMeetingOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MeetingID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "meeting_id is required"})
		return
	}

	uid := userID(r)
	order, err := h.meetings.PlaceOrder(uid, service.PlaceMeetingOrderRequest{
		MeetingID:      req.MeetingID,
		DeliveryOption: req.DeliveryOption,
		DeliveryTime:   req.DeliveryTime,
	})
	if err != nil {
		writeSessionError(w, h.toaster, uid, "place meeting order", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"order": order})
}

// Confirm marks a delivered meeting order as received.
func (h *MeetingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	order, err := h.meetings.ConfirmReceipt(uid, chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, h.toaster, uid, "confirm receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": order})
}
