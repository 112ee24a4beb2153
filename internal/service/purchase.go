package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/session"
	"github.com/mealsync/api/internal/store"
	"github.com/shopspring/decimal"
)

// Errors returned by the purchase service.
var (
	ErrInvalidQuantity   = apperr.Rejected("quantity must be at least 1")
	ErrItemUnavailable   = apperr.Rejected("Item is not available")
	ErrNotSurplus        = apperr.Rejected("Only surplus items can be bought directly")
	ErrInsufficientStock = apperr.Rejected("Not enough left in stock")
)

// PurchaseStore defines the record-store methods needed for a direct buy.
// Satisfied by *store.Store; narrow interface for testability.
type PurchaseStore interface {
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, patch store.Patch) (model.MenuItem, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	UpdateUser(ctx context.Context, id string, patch store.Patch) (model.User, error)
}

// PurchaseConfig holds the direct-buy settings.
type PurchaseConfig struct {
	Delay          time.Duration
	CreditsPerUnit int
}

// PurchaseResult is a confirmed direct buy.
type PurchaseResult struct {
	Order         model.OrderEntry `json:"order"`
	User          model.User       `json:"user"`
	CreditsEarned int              `json:"creditsEarned"`
}

// PurchaseService buys surplus items directly and credits green credits.
type PurchaseService struct {
	store    PurchaseStore
	sessions *session.Manager
	notifier Notifier
	clock    clock.Clock
	cfg      PurchaseConfig

	// serializes the stock and credit read-modify-writes of concurrent purchases
	mu sync.Mutex
}

// NewPurchaseService creates a new PurchaseService.
func NewPurchaseService(store PurchaseStore, sessions *session.Manager, notifier Notifier, c clock.Clock, cfg PurchaseConfig) *PurchaseService {
	return &PurchaseService{store: store, sessions: sessions, notifier: notifier, clock: c, cfg: cfg}
}

// Purchase buys quantity of itemID for userID. It waits the configured
// processing delay before confirming, then decrements stock, credits
// quantity × CreditsPerUnit green credits and records the order in the session.
//
// If the user's session ended during the delay the store changes still apply
// but nothing is recorded in session history.
func (s *PurchaseService) Purchase(ctx context.Context, userID, itemID string, quantity int) (PurchaseResult, error) {
	if quantity < 1 {
		return PurchaseResult{}, ErrInvalidQuantity
	}
	item, err := s.checkItem(ctx, itemID, quantity)
	if err != nil {
		return PurchaseResult{}, err
	}

	s.notifier.Toast(userID, enum.ToastInfo, fmt.Sprintf("Processing purchase for %d x %s...", quantity, item.Name))
	if err := wait(ctx, s.cfg.Delay); err != nil {
		return PurchaseResult{}, err
	}

	credits := quantity * s.cfg.CreditsPerUnit
	item, user, err := s.settle(ctx, userID, itemID, quantity, credits)
	if err != nil {
		return PurchaseResult{}, err
	}

	order := model.OrderEntry{
		ID:       "order_" + uuid.NewString(),
		ItemName: item.Name,
		Quantity: quantity,
		Price:    item.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Date:     s.clock.Now().UTC(),
		Type:     enum.OrderTypeSurplus,
	}

	if sess, ok := s.sessions.Get(userID); ok {
		sess.Dispatch(session.UserUpdated{User: user})
		sess.Dispatch(session.OrderRecorded{Entry: order})
	} else {
		log.Printf("purchase %s for %s completed after session ended; not recorded in history", order.ID, userID)
	}

	s.notifier.Toast(userID, enum.ToastSuccess, fmt.Sprintf("Successfully purchased! +%d Green Credits earned.", credits))
	return PurchaseResult{Order: order, User: user, CreditsEarned: credits}, nil
}

func (s *PurchaseService) checkItem(ctx context.Context, itemID string, quantity int) (model.MenuItem, error) {
	item, err := s.store.GetMenuItem(ctx, itemID)
	if err != nil {
		return model.MenuItem{}, err
	}
	if !item.IsActive {
		return model.MenuItem{}, ErrItemUnavailable
	}
	if !item.IsSurplusCandidate {
		return model.MenuItem{}, ErrNotSurplus
	}
	if quantity > item.AvailableQty {
		return model.MenuItem{}, apperr.New(ErrInsufficientStock, fmt.Sprintf("Only %d left in stock", item.AvailableQty))
	}
	return item, nil
}

// settle re-checks availability, decrements stock and adds credits to the
// buyer's balance as one step with respect to other purchases.
func (s *PurchaseService) settle(ctx context.Context, userID, itemID string, quantity, credits int) (model.MenuItem, model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.checkItem(ctx, itemID, quantity)
	if err != nil {
		return model.MenuItem{}, model.User{}, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.MenuItem{}, model.User{}, err
	}

	stock, err := store.PatchOf(map[string]any{"available_qty": item.AvailableQty - quantity})
	if err != nil {
		return model.MenuItem{}, model.User{}, err
	}
	if item, err = s.store.UpdateMenuItem(ctx, itemID, stock); err != nil {
		return model.MenuItem{}, model.User{}, err
	}

	balance, err := store.PatchOf(map[string]any{"green_credits": user.GreenCredits + credits})
	if err != nil {
		return model.MenuItem{}, model.User{}, err
	}
	if user, err = s.store.UpdateUser(ctx, userID, balance); err != nil {
		return model.MenuItem{}, model.User{}, err
	}
	return item, user, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
