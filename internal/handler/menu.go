package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/service"
	"github.com/mealsync/api/internal/session"
)

// MenuStore defines the record-store methods needed by the raw menu endpoints.
// Satisfied by *store.Store; narrow interface for testability.
type MenuStore interface {
	ListMenuDays(ctx context.Context) ([]model.MenuDay, error)
	GetMenuDay(ctx context.Context, date string) (model.MenuDay, error)
	ListMenuItems(ctx context.Context, date string) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
}

// MenuViews defines the session menu operations.
// Satisfied by *service.MenuService.
type MenuViews interface {
	CurrentView(userID string) session.View
	View(ctx context.Context, userID string, view session.View) (service.MenuView, error)
}

// FilterSessions gives access to a user's session.
// Satisfied by *session.Manager.
type FilterSessions interface {
	Open(userID string) *session.Session
}

// MenuHandler serves the menu, both raw and through the user's view settings.
type MenuHandler struct {
	store    MenuStore
	views    MenuViews
	sessions FilterSessions
	toaster  Toaster
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, views MenuViews, sessions FilterSessions, toaster Toaster) *MenuHandler {
	return &MenuHandler{store: store, views: views, sessions: sessions, toaster: toaster}
}

// RegisterRoutes registers the raw menu endpoints.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
	r.Get("/items/{itemId}", h.Item)
}

// RegisterSessionRoutes registers the session menu endpoints.
// Expected to be mounted on /session.
func (h *MenuHandler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/menu", h.SessionMenu)
	r.Post("/filters/toggle", h.ToggleFilter)
}

// --- Request / Response types ---

type toggleFilterRequest struct {
	Filter string `json:"filter"`
}

// --- Handlers ---

// Menu returns the day and its items for ?date=, or every stored day without it.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		days, err := h.store.ListMenuDays(r.Context())
		if err != nil {
			writeError(w, "list menu days", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"days": days})
		return
	}

	if !validDate(date) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}

	day, err := h.store.GetMenuDay(r.Context(), date)
	if err != nil {
		writeError(w, "get menu day", err)
		return
	}
	items, err := h.store.ListMenuItems(r.Context(), date)
	if err != nil {
		writeError(w, "list menu items", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"menuDay": day, "items": items})
}

// Item returns a single menu item.
func (h *MenuHandler) Item(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.GetMenuItem(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, "get menu item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}

// SessionMenu applies the query parameters to the user's saved view settings
// and returns the filtered menu. Parameters left out keep their saved value.
func (h *MenuHandler) SessionMenu(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	view, ok := h.parseView(w, r, h.views.CurrentView(uid))
	if !ok {
		return
	}

	mv, err := h.views.View(r.Context(), uid, view)
	if err != nil {
		writeSessionError(w, h.toaster, uid, "menu view", err)
		return
	}
	writeJSON(w, http.StatusOK, mv)
}

// ToggleFilter taps one filter chip and returns the active filters.
func (h *MenuHandler) ToggleFilter(w http.ResponseWriter, r *http.Request) {
	var req toggleFilterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Filter == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filter is required"})
		return
	}

	st := h.sessions.Open(userID(r)).Dispatch(session.FilterToggled{Filter: req.Filter})
	writeJSON(w, http.StatusOK, map[string]interface{}{"filters": st.View.Filters})
}

func (h *MenuHandler) parseView(w http.ResponseWriter, r *http.Request, view session.View) (session.View, bool) {
	q := r.URL.Query()
	if q.Has("date") {
		if d := q.Get("date"); d != "" && !validDate(d) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return view, false
		}
		view.SelectedDate = q.Get("date")
	}
	if q.Has("q") {
		view.Search = q.Get("q")
	}
	if q.Has("filters") {
		view.Filters = nil
		for _, f := range strings.Split(q.Get("filters"), ",") {
			if f = strings.TrimSpace(f); f != "" {
				view.Filters = append(view.Filters, f)
			}
		}
	}
	for param, dst := range map[string]*bool{
		"show_allergens": &view.ShowAllergenItems,
		"surplus_only":   &view.SurplusOnly,
	} {
		if !q.Has(param) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(param))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + param})
			return view, false
		}
		*dst = v
	}
	return view, true
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
