package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/booking"
	"github.com/mealsync/api/internal/model"
)

// PrebookStore defines the record-store methods needed by the raw prebook endpoints.
// Satisfied by *store.Store; narrow interface for testability.
type PrebookStore interface {
	ListPrebooks(ctx context.Context, userID, date string) ([]model.Prebook, error)
	CreatePrebook(ctx context.Context, p model.Prebook) (model.Prebook, error)
	DeletePrebook(ctx context.Context, id string) (bool, error)
}

// Prebooks defines the guarded booking operations.
// Satisfied by *service.PrebookService.
type Prebooks interface {
	Current(ctx context.Context, userID string) (*model.Prebook, error)
	Create(ctx context.Context, req booking.CreateRequest) (model.Prebook, error)
	Cancel(ctx context.Context, userID, id string) (model.Prebook, error)
}

// PrebookHandler handles next-day prebooks.
type PrebookHandler struct {
	store    PrebookStore
	prebooks Prebooks
	toaster  Toaster
}

// NewPrebookHandler creates a new PrebookHandler.
func NewPrebookHandler(store PrebookStore, prebooks Prebooks, toaster Toaster) *PrebookHandler {
	return &PrebookHandler{store: store, prebooks: prebooks, toaster: toaster}
}

// RegisterRoutes registers the raw prebook endpoints. These write the store
// directly without the cutoff and one-per-day guards.
func (h *PrebookHandler) RegisterRoutes(r chi.Router) {
	r.Get("/prebook", h.List)
	r.Post("/prebook", h.Create)
	r.Delete("/prebook", h.Delete)
}

// RegisterSessionRoutes registers the guarded prebook endpoints.
// Expected to be mounted on /session.
func (h *PrebookHandler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/prebook", h.Current)
	r.Post("/prebook", h.Book)
	r.Delete("/prebook", h.Cancel)
}

// --- Request / Response types ---

type createPrebookRequest struct {
	UserID       string  `json:"user_id"`
	Date         string  `json:"date"`
	ItemID       *string `json:"item_id"`
	ItemCategory string  `json:"item_category"`
	Quantity     int     `json:"quantity"`
}

type bookRequest struct {
	Category string `json:"category"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type prebookResponse struct {
	Prebook model.Prebook `json:"prebook"`
	Message string        `json:"message"`
}

// --- Raw handlers ---

// List returns prebooks narrowed by ?userId= and ?date=.
func (h *PrebookHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prebooks, err := h.store.ListPrebooks(r.Context(), q.Get("userId"), q.Get("date"))
	if err != nil {
		writeError(w, "list prebooks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prebooks": prebooks})
}

// Create stores a prebook as given.
func (h *PrebookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPrebookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and date are required"})
		return
	}
	if !validDate(req.Date) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	if req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be at least 1"})
		return
	}

	p, err := h.store.CreatePrebook(r.Context(), model.Prebook{
		UserID:       req.UserID,
		Date:         req.Date,
		ItemID:       req.ItemID,
		ItemCategory: req.ItemCategory,
		Quantity:     req.Quantity,
	})
	if err != nil {
		writeError(w, "create prebook", err)
		return
	}
	writeJSON(w, http.StatusCreated, prebookResponse{Prebook: p, Message: "Pre-booked for tomorrow"})
}

// Delete removes the prebook named by ?id=.
func (h *PrebookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Prebook ID required"})
		return
	}

	existed, err := h.store.DeletePrebook(r.Context(), id)
	if err != nil {
		writeError(w, "delete prebook", err)
		return
	}
	if !existed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Prebook not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Prebook cancelled"})
}

// --- Session handlers ---

// Current returns the caller's booking for tomorrow, or null.
func (h *PrebookHandler) Current(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	p, err := h.prebooks.Current(r.Context(), uid)
	if err != nil {
		writeSessionError(w, h.toaster, uid, "current prebook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prebook": p})
}

// Book prebooks tomorrow for the caller, by category or by item.
func (h *PrebookHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	uid := userID(r)
	p, err := h.prebooks.Create(r.Context(), booking.CreateRequest{
		UserID:   uid,
		Category: req.Category,
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeSessionError(w, h.toaster, uid, "create prebook", err)
		return
	}
	writeJSON(w, http.StatusCreated, prebookResponse{Prebook: p, Message: "Pre-booked for tomorrow"})
}

// Cancel cancels the caller's booking named by ?id=, or tomorrow's booking.
func (h *PrebookHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	p, err := h.prebooks.Cancel(r.Context(), uid, r.URL.Query().Get("id"))
	if err != nil {
		writeSessionError(w, h.toaster, uid, "cancel prebook", err)
		return
	}
	writeJSON(w, http.StatusOK, prebookResponse{Prebook: p, Message: "Prebook cancelled"})
}
