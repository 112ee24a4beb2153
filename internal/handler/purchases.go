package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/service"
)

// Purchases defines the direct-buy operation.
// Satisfied by *service.PurchaseService; narrow interface for testability.
type Purchases interface {
	Purchase(ctx context.Context, userID, itemID string, quantity int) (service.PurchaseResult, error)
}

// PurchaseHandler handles direct buys of surplus items.
type PurchaseHandler struct {
	purchases Purchases
	toaster   Toaster
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(purchases Purchases, toaster Toaster) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, toaster: toaster}
}

// RegisterSessionRoutes registers the purchase endpoint.
// Expected to be mounted on /session.
func (h *PurchaseHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/purchases", h.Create)
}

// --- Request / Response types ---

type purchaseRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// --- Handlers ---

// Create buys a surplus item. The response is written once the purchase has
// been processed.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_id is required"})
		return
	}

	uid := userID(r)
	res, err := h.purchases.Purchase(r.Context(), uid, req.ItemID, req.Quantity)
	if err != nil {
		if r.Context().Err() != nil {
			// client went away; nothing to answer
			return
		}
		writeSessionError(w, h.toaster, uid, "purchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
