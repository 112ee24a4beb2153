package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/booking"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/middleware"
)

// Toaster pushes notifications to a user's live connections.
// Satisfied by *service.HubNotifier.
type Toaster interface {
	Toast(userID, kind, message string)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// statusFor maps an error kind to its HTTP status and user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrAlreadyBooked):
		return http.StatusConflict, apperr.Message(err, "conflict")
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, apperr.Message(err, "not found")
	case errors.Is(err, apperr.ErrRejected):
		return http.StatusUnprocessableEntity, apperr.Message(err, "request rejected")
	case errors.Is(err, apperr.ErrTransport):
		return http.StatusBadGateway, "record store unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError writes err with its mapped status. Unmapped errors are logged.
func writeError(w http.ResponseWriter, op string, err error) string {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s: %v", op, err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
	return msg
}

// writeSessionError is writeError for session routes: the failure is also
// pushed to the user as an error toast.
func writeSessionError(w http.ResponseWriter, t Toaster, userID, op string, err error) {
	msg := writeError(w, op, err)
	if t != nil {
		t.Toast(userID, enum.ToastError, msg)
	}
}

// userID returns the authenticated user, or "" when the request carries no claims.
func userID(r *http.Request) string {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}
