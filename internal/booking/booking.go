// Package booking enforces the next-day prebook rules: one booking per user
// per date, created and cancelled only before the daily cutoff.
package booking

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
)

// Errors returned by the booking machine.
var (
	ErrPastCutoff      = apperr.Rejected("Pre-booking closed for tomorrow")
	ErrAlreadyBooked   = apperr.Rejected("You already have a pre-book. Cancel it first to change.")
	ErrCancelClosed    = apperr.Rejected("Cancellation closed")
	ErrInvalidQuantity = apperr.Rejected("quantity must be at least 1")
	ErrInvalidCategory = apperr.Rejected("category must be Veg, Non-Veg or Fasting")
	ErrNoBooking       = apperr.NotFound("Prebook not found")
)

// State is the booking state of a user for the target date.
type State string

const (
	NoBooking State = "NoBooking"
	Booked    State = "Booked"
)

// StateOf returns Booked when p is non-nil.
func StateOf(p *model.Prebook) State {
	if p == nil {
		return NoBooking
	}
	return Booked
}

// Cutoff is the daily time after which next-day bookings are frozen.
type Cutoff struct {
	Hour   int
	Minute int
}

// ClosesAt returns when bookings for date stop being changeable: the cutoff
// time on the day before date, in loc.
func (c Cutoff) ClosesAt(date string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	prev := d.AddDate(0, 0, -1)
	return time.Date(prev.Year(), prev.Month(), prev.Day(), c.Hour, c.Minute, 0, 0, loc), nil
}

// Passed reports whether now is strictly after today's cutoff.
func (c Cutoff) Passed(now time.Time) bool {
	y, m, d := now.Date()
	return now.After(time.Date(y, m, d, c.Hour, c.Minute, 0, 0, now.Location()))
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%d:%02d", c.Hour, c.Minute)
}

// TargetDate is the date a prebook made at now is for: the next calendar day.
func TargetDate(now time.Time) string {
	return clock.DateString(now.AddDate(0, 0, 1))
}

// Store defines the record-store methods the machine needs.
// Satisfied by *store.Store; narrow interface for testability.
type Store interface {
	ListPrebooks(ctx context.Context, userID, date string) ([]model.Prebook, error)
	CreatePrebook(ctx context.Context, p model.Prebook) (model.Prebook, error)
	DeletePrebook(ctx context.Context, id string) (bool, error)
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
}

// Machine applies the booking guards around the store. Create and Cancel for
// one user run one at a time, so the existence check and the write see the
// same bookings.
type Machine struct {
	store  Store
	clock  clock.Clock
	cutoff Cutoff

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewMachine creates a Machine.
func NewMachine(store Store, c clock.Clock, cutoff Cutoff) *Machine {
	return &Machine{store: store, clock: c, cutoff: cutoff, users: make(map[string]*sync.Mutex)}
}

// lock acquires userID's booking lock and returns its release.
func (m *Machine) lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.users[userID]
	if !ok {
		l = &sync.Mutex{}
		m.users[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Cutoff returns the configured cutoff.
func (m *Machine) Cutoff() Cutoff { return m.cutoff }

// CreateRequest is a booking attempt. ItemID empty means a category-only booking;
// otherwise Category is ignored and the item's own category is booked.
type CreateRequest struct {
	UserID   string
	Category string
	ItemID   string
	Quantity int
}

// Current returns the user's booking for the target date, or nil.
func (m *Machine) Current(ctx context.Context, userID string) (*model.Prebook, error) {
	prebooks, err := m.store.ListPrebooks(ctx, userID, TargetDate(m.clock.Now()))
	if err != nil {
		return nil, err
	}
	if len(prebooks) == 0 {
		return nil, nil
	}
	return &prebooks[0], nil
}

// Create books the target date. It fails without side effects when the cutoff
// has passed or a booking for that date already exists.
func (m *Machine) Create(ctx context.Context, req CreateRequest) (model.Prebook, error) {
	now := m.clock.Now()
	if m.cutoff.Passed(now) {
		return model.Prebook{}, ErrPastCutoff
	}
	if req.Quantity < 1 {
		return model.Prebook{}, ErrInvalidQuantity
	}

	defer m.lock(req.UserID)()

	existing, err := m.Current(ctx, req.UserID)
	if err != nil {
		return model.Prebook{}, err
	}
	if existing != nil {
		return model.Prebook{}, ErrAlreadyBooked
	}

	p := model.Prebook{
		UserID:       req.UserID,
		Date:         TargetDate(now),
		ItemCategory: req.Category,
		Quantity:     req.Quantity,
	}
	if req.ItemID != "" {
		item, err := m.store.GetMenuItem(ctx, req.ItemID)
		if err != nil {
			return model.Prebook{}, err
		}
		id := item.ID
		p.ItemID = &id
		p.ItemCategory = item.Category
	} else if !isBookableCategory(req.Category) {
		return model.Prebook{}, ErrInvalidCategory
	}

	return m.store.CreatePrebook(ctx, p)
}

// Cancel removes the user's booking with id, or the target-date booking when id
// is empty. Cancelling is blocked once the booking's cutoff has passed.
func (m *Machine) Cancel(ctx context.Context, userID, id string) (model.Prebook, error) {
	defer m.lock(userID)()

	prebooks, err := m.store.ListPrebooks(ctx, userID, "")
	if err != nil {
		return model.Prebook{}, err
	}

	var target *model.Prebook
	if id == "" {
		date := TargetDate(m.clock.Now())
		if i := slices.IndexFunc(prebooks, func(p model.Prebook) bool { return p.Date == date }); i >= 0 {
			target = &prebooks[i]
		}
	} else if i := slices.IndexFunc(prebooks, func(p model.Prebook) bool { return p.ID == id }); i >= 0 {
		target = &prebooks[i]
	}
	if target == nil {
		return model.Prebook{}, ErrNoBooking
	}

	now := m.clock.Now()
	closesAt, err := m.cutoff.ClosesAt(target.Date, now.Location())
	if err != nil || now.After(closesAt) {
		return model.Prebook{}, apperr.New(ErrCancelClosed, "Cannot cancel after "+m.cutoff.String())
	}

	existed, err := m.store.DeletePrebook(ctx, target.ID)
	if err != nil {
		return model.Prebook{}, err
	}
	if !existed {
		return model.Prebook{}, ErrNoBooking
	}
	return *target, nil
}

func isBookableCategory(c string) bool {
	switch c {
	case enum.CategoryVeg, enum.CategoryNonVeg, enum.CategoryFasting:
		return true
	}
	return false
}
