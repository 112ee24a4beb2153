package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/service"
)

// SessionHandler serves the caller's session state and the leaderboard.
type SessionHandler struct {
	sessions FilterSessions
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions FilterSessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes registers the public leaderboard endpoint.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/leaderboard", h.Leaderboard)
}

// RegisterSessionRoutes registers the snapshot endpoint.
// Expected to be mounted on /session.
func (h *SessionHandler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/", h.Snapshot)
}

// Snapshot returns the caller's full session state.
func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Open(userID(r)).State())
}

// Leaderboard returns the green credits leaderboard.
func (h *SessionHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": service.Leaderboard()})
}
