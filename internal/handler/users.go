package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/store"
)

// UserAccounts defines the account operations needed by user handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type UserAccounts interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	UpdateUser(ctx context.Context, userID string, patch store.Patch) (model.User, error)
	SetBookmark(ctx context.Context, userID, itemID, action string) (model.User, string, error)
	ToggleBookmark(ctx context.Context, userID, itemID string) (model.User, string, error)
	Nudge(userID, meeting string) (bool, string)
	DismissNudge(ctx context.Context, userID string) (model.User, error)
}

// UserHandler handles user records, bookmarks and the lunch nudge.
type UserHandler struct {
	accounts UserAccounts
	toaster  Toaster
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts UserAccounts, toaster Toaster) *UserHandler {
	return &UserHandler{accounts: accounts, toaster: toaster}
}

// RegisterRoutes registers the user record endpoints.
// Expected to be mounted on /user/{userId}.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Patch("/", h.Update)
	r.Post("/bookmark", h.Bookmark)
}

// RegisterSessionRoutes registers the session bookmark and nudge endpoints.
// Expected to be mounted on /session.
func (h *UserHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/bookmarks/{itemId}", h.ToggleBookmark)
	r.Get("/nudge", h.Nudge)
	r.Post("/nudge/dismiss", h.DismissNudge)
}

// --- Request / Response types ---

type bookmarkRequest struct {
	ItemID string `json:"itemId"`
	Action string `json:"action"`
}

type bookmarkResponse struct {
	User    model.User `json:"user"`
	Message string     `json:"message"`
}

type nudgeResponse struct {
	Show    bool   `json:"show"`
	Message string `json:"message,omitempty"`
}

// --- Handlers ---

// Get returns the user record.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Update merges the request body into the user record.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if !decodeBody(w, r, &fields) {
		return
	}

	user, err := h.accounts.UpdateUser(r.Context(), chi.URLParam(r, "userId"), store.Patch(fields))
	if err != nil {
		writeError(w, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Bookmark adds or removes a bookmark.
func (h *UserHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "itemId is required"})
		return
	}

	user, msg, err := h.accounts.SetBookmark(r.Context(), chi.URLParam(r, "userId"), req.ItemID, req.Action)
	if err != nil {
		writeError(w, "set bookmark", err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarkResponse{User: user, Message: msg})
}

// ToggleBookmark flips the caller's bookmark on an item.
func (h *UserHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	user, msg, err := h.accounts.ToggleBookmark(r.Context(), uid, chi.URLParam(r, "itemId"))
	if err != nil {
		writeSessionError(w, h.toaster, uid, "toggle bookmark", err)
		return
	}
	h.toaster.Toast(uid, enum.ToastSuccess, msg)
	writeJSON(w, http.StatusOK, bookmarkResponse{User: user, Message: msg})
}

// Nudge reports whether the lunch nudge is due for ?meeting=.
func (h *UserHandler) Nudge(w http.ResponseWriter, r *http.Request) {
	show, msg := h.accounts.Nudge(userID(r), r.URL.Query().Get("meeting"))
	writeJSON(w, http.StatusOK, nudgeResponse{Show: show, Message: msg})
}

// DismissNudge records that the nudge was shown.
func (h *UserHandler) DismissNudge(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	user, err := h.accounts.DismissNudge(r.Context(), uid)
	if err != nil {
		writeSessionError(w, h.toaster, uid, "dismiss nudge", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
