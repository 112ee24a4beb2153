package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mealsync/api/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := auth.BearerToken(r, false)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tok)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireSelf rejects requests whose path parameter param names another user.
// It must run after Authenticate.
func RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}
			userID := r.PathValue(param)
			if userID == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user ID"})
				return
			}
			if userID != claims.UserID {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied for this user"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SignedInChecker reports whether a user currently has a signed-in session.
// Satisfied by *session.Manager; narrow interface for testability.
type SignedInChecker interface {
	SignedIn(userID string) bool
}

// RequireSignedIn rejects a valid token whose user has since logged out.
// It must run after Authenticate.
func RequireSignedIn(sessions SignedInChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}
			if !sessions.SignedIn(claims.UserID) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims Authenticate stored, or nil.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
