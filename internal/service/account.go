package service

import (
	"context"
	"slices"

	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/session"
	"github.com/mealsync/api/internal/store"
)

// Errors returned by the account service.
var (
	ErrEmailRequired         = apperr.Rejected("email is required")
	ErrInvalidBookmarkAction = apperr.Rejected("action must be add or remove")
)

// UserStore defines the record-store methods for user accounts.
// Satisfied by *store.Store; narrow interface for testability.
type UserStore interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpdateUser(ctx context.Context, id string, patch store.Patch) (model.User, error)
}

// AccountService handles sign-in, bookmarks and the lunch nudge.
type AccountService struct {
	store    UserStore
	sessions *session.Manager
	clock    clock.Clock
}

// NewAccountService creates a new AccountService.
func NewAccountService(store UserStore, sessions *session.Manager, c clock.Clock) *AccountService {
	return &AccountService{store: store, sessions: sessions, clock: c}
}

// Login signs in the user with email and starts their session.
func (s *AccountService) Login(ctx context.Context, email string) (model.User, error) {
	if email == "" {
		return model.User{}, ErrEmailRequired
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return model.User{}, err
	}
	s.sessions.Open(user.ID).Dispatch(session.LoggedIn{User: user})
	return user, nil
}

// Logout ends the user's session. Order history stays in the session cache.
func (s *AccountService) Logout(userID string) {
	sess, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	sess.Dispatch(session.LoggedOut{})
	s.sessions.Close(userID)
}

// GetUser returns the stored user record.
func (s *AccountService) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateUser merges patch into the stored user and refreshes a live session.
func (s *AccountService) UpdateUser(ctx context.Context, userID string, patch store.Patch) (model.User, error) {
	updated, err := s.store.UpdateUser(ctx, userID, patch)
	if err != nil {
		return model.User{}, err
	}
	s.syncUser(updated)
	return updated, nil
}

// SetBookmark adds or removes itemID from the user's bookmarks and returns the
// updated user with a confirmation message.
func (s *AccountService) SetBookmark(ctx context.Context, userID, itemID, action string) (model.User, string, error) {
	if action != enum.BookmarkAdd && action != enum.BookmarkRemove {
		return model.User{}, "", ErrInvalidBookmarkAction
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, "", err
	}

	bookmarks := slices.Clone(user.BookmarkedItems)
	if action == enum.BookmarkAdd && !slices.Contains(bookmarks, itemID) {
		bookmarks = append(bookmarks, itemID)
	} else if action == enum.BookmarkRemove {
		bookmarks = slices.DeleteFunc(bookmarks, func(id string) bool { return id == itemID })
	}
	if bookmarks == nil {
		bookmarks = []string{}
	}

	patch, err := store.PatchOf(map[string]any{"bookmarked_items": bookmarks})
	if err != nil {
		return model.User{}, "", err
	}
	updated, err := s.store.UpdateUser(ctx, userID, patch)
	if err != nil {
		return model.User{}, "", err
	}
	s.syncUser(updated)

	msg := "Saved to favourites"
	if action == enum.BookmarkRemove {
		msg = "Removed from favourites"
	}
	return updated, msg, nil
}

// ToggleBookmark flips the bookmark on itemID.
func (s *AccountService) ToggleBookmark(ctx context.Context, userID, itemID string) (model.User, string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, "", err
	}
	action := enum.BookmarkAdd
	if user.HasBookmarked(itemID) {
		action = enum.BookmarkRemove
	}
	return s.SetBookmark(ctx, userID, itemID, action)
}

// Nudge reports whether the lunch nudge is due for the signed-in user given
// the meeting schedule, and its message.
func (s *AccountService) Nudge(userID, meeting string) (bool, string) {
	sess, ok := s.sessions.Get(userID)
	if !ok {
		return false, ""
	}
	st := sess.State()
	if !session.NudgeDue(st.User, meeting, s.clock.Now()) {
		return false, ""
	}
	return true, session.NudgeMessage(meeting)
}

// DismissNudge records that the nudge was shown now.
func (s *AccountService) DismissNudge(ctx context.Context, userID string) (model.User, error) {
	patch, err := store.PatchOf(map[string]any{"last_nudge_shown": s.clock.Now().UTC()})
	if err != nil {
		return model.User{}, err
	}
	updated, err := s.store.UpdateUser(ctx, userID, patch)
	if err != nil {
		return model.User{}, err
	}
	s.syncUser(updated)
	return updated, nil
}

// syncUser pushes a fresher user record into a live session.
func (s *AccountService) syncUser(user model.User) {
	if sess, ok := s.sessions.Get(user.ID); ok {
		sess.Dispatch(session.UserUpdated{User: user})
	}
}
