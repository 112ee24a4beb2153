package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mealsync/api/internal/auth"
	"github.com/mealsync/api/internal/middleware"
)

const testSecret = "test-secret"

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, "user_asha", "asha@example.com")

	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.UserID != "user_asha" {
			t.Errorf("user ID: got %v, want user_asha", claims.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_WrongScheme(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, "user_asha", "asha@example.com")
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireSelf_MatchingUser(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, "user_asha", "asha@example.com")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Authenticate(testSecret)(middleware.RequireSelf("userId")(inner))

	req := httptest.NewRequest("PATCH", "/api/user/user_asha", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.SetPathValue("userId", "user_asha")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireSelf_OtherUser(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, "user_asha", "asha@example.com")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	handler := middleware.Authenticate(testSecret)(middleware.RequireSelf("userId")(inner))

	req := httptest.NewRequest("PATCH", "/api/user/user_rajesh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.SetPathValue("userId", "user_rajesh")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireSelf_WithoutClaims(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	handler := middleware.RequireSelf("userId")(inner)

	req := httptest.NewRequest("GET", "/api/user/user_asha", nil)
	req.SetPathValue("userId", "user_asha")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestWithClaims(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	ctx := middleware.WithClaims(req.Context(), &auth.Claims{UserID: "user_asha"})
	if got := middleware.ClaimsFromContext(ctx); got == nil || got.UserID != "user_asha" {
		t.Errorf("claims: got %+v", got)
	}
	if middleware.ClaimsFromContext(req.Context()) != nil {
		t.Error("expected no claims on a bare context")
	}
}

type signedInSet map[string]bool

func (s signedInSet) SignedIn(userID string) bool { return s[userID] }

func TestRequireSignedIn(t *testing.T) {
	sessions := signedInSet{"user_asha": true}
	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"signed in", &auth.Claims{UserID: "user_asha"}, http.StatusOK},
		{"logged out", &auth.Claims{UserID: "user_rajesh"}, http.StatusUnauthorized},
		{"no claims", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireSignedIn(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/session/menu", nil)
			if tt.claims != nil {
				req = req.WithContext(middleware.WithClaims(req.Context(), tt.claims))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
