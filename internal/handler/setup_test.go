package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/auth"
	"github.com/mealsync/api/internal/booking"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/lifecycle"
	"github.com/mealsync/api/internal/middleware"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/service"
	"github.com/mealsync/api/internal/session"
	"github.com/mealsync/api/internal/store"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret-for-mealsync"

// testNow is a Wednesday morning, before the prebook cutoff.
var testNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

// --- Recording notifier ---

type toast struct {
	UserID  string
	Kind    string
	Message string
}

type recordingNotifier struct {
	mu       sync.Mutex
	toasts   []toast
	statuses []service.OrderStatusPayload
}

func (n *recordingNotifier) Toast(userID, kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast{UserID: userID, Kind: kind, Message: message})
}

func (n *recordingNotifier) OrderStatus(_, orderID, status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, service.OrderStatusPayload{OrderID: orderID, Status: status})
}

func (n *recordingNotifier) last() toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return toast{}
	}
	return n.toasts[len(n.toasts)-1]
}

// --- Test environment ---

// testEnv is the real service stack over a file store in a temp dir.
type testEnv struct {
	store    *store.Store
	clock    *clock.Fake
	sessions *session.Manager
	sim      *lifecycle.Simulator
	notifier *recordingNotifier

	accounts  *service.AccountService
	menus     *service.MenuService
	purchases *service.PurchaseService
	meetings  *service.MeetingService
	prebooks  *service.PrebookService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	c := clock.NewFake(testNow)
	st := store.New(store.NewFileBackend(t.TempDir()), c)
	if _, err := st.Seed(context.Background(), testSeed(), false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sessions := session.NewManager(session.MemoryCaches())
	sim := lifecycle.NewSimulator(c, lifecycle.DefaultConfig)
	n := &recordingNotifier{}
	machine := booking.NewMachine(st, c, booking.Cutoff{Hour: 10, Minute: 30})

	return &testEnv{
		store:     st,
		clock:     c,
		sessions:  sessions,
		sim:       sim,
		notifier:  n,
		accounts:  service.NewAccountService(st, sessions, c),
		menus:     service.NewMenuService(st, sessions, c),
		purchases: service.NewPurchaseService(st, sessions, n, c, service.PurchaseConfig{CreditsPerUnit: 5}),
		meetings:  service.NewMeetingService(st, sessions, sim, n, c),
		prebooks:  service.NewPrebookService(machine, sessions, n),
	}
}

func strPtr(s string) *string { return &s }

func testSeed() store.SeedData {
	return store.SeedData{
		Items: []model.MenuItem{
			{ID: "i1", Name: "Kheer", Description: "Rice pudding", Category: "Veg", DietTags: []string{"Veg"}, Allergens: []string{"nuts"}, Price: decimal.NewFromInt(50), AvailableQty: 2, IsSurplusCandidate: true, IsActive: true},
			{ID: "i2", Name: "Dal Tadka", Description: "Yellow lentils", Category: "Veg", DietTags: []string{"Veg"}, Allergens: []string{}, Price: decimal.NewFromInt(60), AvailableQty: 10, IsActive: true},
			{ID: "i3", Name: "Chicken Curry", Description: "Spicy gravy", Category: "Non-Veg", DietTags: []string{"Non-Veg"}, Allergens: []string{}, ProteinTag: strPtr("High Protein"), Price: decimal.NewFromInt(150), AvailableQty: 5, IsActive: true},
		},
		Users: []model.User{
			{ID: "user_asha", DisplayName: "Asha", Email: "asha@example.com", Allergies: []string{"nuts"}, BookmarkedItems: []string{}, GreenCredits: 120},
			{ID: "user_rajesh", DisplayName: "Rajesh", Email: "rajesh@example.com", Allergies: []string{}, BookmarkedItems: []string{}, GreenCredits: 450},
		},
	}
}

// login starts a session the way POST /api/auth/login does.
func (e *testEnv) login(t *testing.T, email string) {
	t.Helper()
	if _, err := e.accounts.Login(context.Background(), email); err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
}

// sessionRouter mounts fn's routes on /api/session behind Authenticate.
func sessionRouter(fn func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/session", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		fn(r)
	})
	return r
}

// --- Request helpers ---

// doAuthRequest sends a request with a real JWT for userID. An empty userID
// sends no Authorization header.
func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if userID != "" {
		token, err := auth.GenerateToken(testJWTSecret, userID, userID+"@example.com")
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doRawRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}
