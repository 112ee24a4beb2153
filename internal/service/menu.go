package service

import (
	"context"

	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/menu"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/session"
)

// MenuStore defines the record-store methods for reading the menu.
// Satisfied by *store.Store; narrow interface for testability.
type MenuStore interface {
	GetMenuDay(ctx context.Context, date string) (model.MenuDay, error)
	ListMenuItems(ctx context.Context, date string) ([]model.MenuItem, error)
}

// MenuView is the menu as one user sees it.
type MenuView struct {
	MenuDay       model.MenuDay    `json:"menuDay"`
	Items         []model.MenuItem `json:"items"`
	View          session.View     `json:"view"`
	SurplusBanner bool             `json:"surplusBanner"`
	FastingView   bool             `json:"fastingView"`
	FastingItems  []model.MenuItem `json:"fastingItems"`
	MeetingItems  []model.MenuItem `json:"meetingItems"`
}

// MenuService builds per-user menu views.
type MenuService struct {
	store    MenuStore
	sessions *session.Manager
	clock    clock.Clock
}

// NewMenuService creates a new MenuService.
func NewMenuService(store MenuStore, sessions *session.Manager, c clock.Clock) *MenuService {
	return &MenuService{store: store, sessions: sessions, clock: c}
}

// CurrentView returns the user's saved view settings.
func (s *MenuService) CurrentView(userID string) session.View {
	return s.sessions.Open(userID).State().View
}

// View stores view as the user's view settings and returns the filtered menu
// for the selected date. An empty date means today. The surplus-only setting
// is kept but only applied when the selected date is today.
func (s *MenuService) View(ctx context.Context, userID string, view session.View) (MenuView, error) {
	now := s.clock.Now()
	today := clock.DateString(now)
	tomorrow := clock.DateString(now.AddDate(0, 0, 1))
	if view.SelectedDate == "" {
		view.SelectedDate = today
	}

	day, err := s.store.GetMenuDay(ctx, view.SelectedDate)
	if err != nil {
		return MenuView{}, err
	}
	items, err := s.store.ListMenuItems(ctx, view.SelectedDate)
	if err != nil {
		return MenuView{}, err
	}

	st := s.sessions.Open(userID).Dispatch(session.ViewChanged{View: view})
	return build(day, items, st, today, tomorrow), nil
}

func build(day model.MenuDay, items []model.MenuItem, st session.State, today, tomorrow string) MenuView {
	v := st.View
	return MenuView{
		MenuDay: day,
		Items: menu.Apply(items, menu.Query{
			Search:            v.Search,
			Filters:           v.Filters,
			ShowAllergenItems: v.ShowAllergenItems,
			SurplusOnly:       menu.SurplusFilterApplies(v.SurplusOnly, v.SelectedDate, today),
			User:              st.User,
		}),
		View:          v,
		SurplusBanner: menu.SurplusBannerVisible(items, v.SelectedDate, today),
		FastingView:   menu.FastingViewAvailable(&day, v.SelectedDate, today, tomorrow),
		FastingItems:  menu.FastingItems(items),
		MeetingItems:  menu.MeetingItems(items),
	}
}
