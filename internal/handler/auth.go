package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/auth"
	"github.com/mealsync/api/internal/model"
)

// Accounts defines the account operations needed by auth handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type Accounts interface {
	Login(ctx context.Context, email string) (model.User, error)
	Logout(userID string)
}

// AuthHandler handles sign-in and sign-out.
type AuthHandler struct {
	accounts  Accounts
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts Accounts, jwtSecret string) *AuthHandler {
	return &AuthHandler{accounts: accounts, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// RegisterSessionRoutes registers auth endpoints that need a session token.
// Expected to be mounted on /session.
func (h *AuthHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
}

// --- Request / Response types ---

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

// --- Handlers ---

// Login signs in by email. There are no passwords; the email must belong to a
// known user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Email)
	if err != nil {
		writeError(w, "login", err)
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Email)
	if err != nil {
		log.Printf("ERROR: generate token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{User: user, AccessToken: token})
}

// Logout ends the caller's session. The token stays valid for the user record
// routes until it expires; session routes refuse it until the next login.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.accounts.Logout(userID(r))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
