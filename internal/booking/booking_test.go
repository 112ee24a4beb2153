package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/booking"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/store"
)

// --- Mock store ---

type mockStore struct {
	prebooks []model.Prebook
	items    map[string]model.MenuItem
	nextID   int
	listErr  error
}

func newMockStore() *mockStore {
	return &mockStore{items: map[string]model.MenuItem{
		"i1": {ID: "i1", Name: "Paneer Tikka", Category: "Veg", IsActive: true},
	}}
}

func (m *mockStore) ListPrebooks(_ context.Context, userID, date string) ([]model.Prebook, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Prebook
	for _, p := range m.prebooks {
		if (userID == "" || p.UserID == userID) && (date == "" || p.Date == date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) CreatePrebook(_ context.Context, p model.Prebook) (model.Prebook, error) {
	m.nextID++
	p.ID = fmt.Sprintf("prebook_%d", m.nextID)
	m.prebooks = append(m.prebooks, p)
	return p, nil
}

func (m *mockStore) DeletePrebook(_ context.Context, id string) (bool, error) {
	for i, p := range m.prebooks {
		if p.ID == id {
			m.prebooks = append(m.prebooks[:i], m.prebooks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) GetMenuItem(_ context.Context, id string) (model.MenuItem, error) {
	it, ok := m.items[id]
	if !ok {
		return model.MenuItem{}, apperr.NotFound("Item not found")
	}
	return it, nil
}

// --- Helpers ---

var cutoff = booking.Cutoff{Hour: 10, Minute: 30}

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 14, hour, minute, 0, 0, time.UTC)
}

func newMachine(store *mockStore, now time.Time) (*booking.Machine, *clock.Fake) {
	c := clock.NewFake(now)
	return booking.NewMachine(store, c, cutoff), c
}

// --- Cutoff / target date ---

func TestCutoffPassed(t *testing.T) {
	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(10, 29), false},
		{at(10, 30), false},
		{at(10, 30).Add(time.Second), true},
		{at(10, 31), true},
		{at(23, 59), true},
		{at(0, 0), false},
	}
	for _, tt := range tests {
		if got := cutoff.Passed(tt.now); got != tt.want {
			t.Errorf("Passed(%s): got %v, want %v", tt.now.Format("15:04:05"), got, tt.want)
		}
	}
}

func TestTargetDate(t *testing.T) {
	if got := booking.TargetDate(at(9, 0)); got != "2026-10-15" {
		t.Errorf("got %s, want 2026-10-15", got)
	}
	endOfMonth := time.Date(2026, 10, 31, 8, 0, 0, 0, time.UTC)
	if got := booking.TargetDate(endOfMonth); got != "2026-11-01" {
		t.Errorf("month rollover: got %s, want 2026-11-01", got)
	}
}

func TestCutoffString(t *testing.T) {
	if got := (booking.Cutoff{Hour: 9, Minute: 5}).String(); got != "9:05" {
		t.Errorf("got %q, want 9:05", got)
	}
}

// --- Create ---

func TestCreate_BeforeCutoff(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(10, 29))

	p, err := m.Create(context.Background(), booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Date != "2026-10-15" {
		t.Errorf("date: got %s, want 2026-10-15", p.Date)
	}
	if p.ItemID != nil {
		t.Errorf("category booking should have nil item id, got %v", *p.ItemID)
	}

	current, err := m.Current(context.Background(), "u1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if booking.StateOf(current) != booking.Booked {
		t.Errorf("state: got %s, want Booked", booking.StateOf(current))
	}
}

func TestCreate_AfterCutoff(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(10, 31))

	_, err := m.Create(context.Background(), booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1})
	if !errors.Is(err, booking.ErrPastCutoff) {
		t.Fatalf("expected ErrPastCutoff, got %v", err)
	}
	if !errors.Is(err, apperr.ErrRejected) {
		t.Errorf("expected ErrRejected kind")
	}
	if len(store.prebooks) != 0 {
		t.Errorf("no booking should be stored, got %d", len(store.prebooks))
	}
}

func TestCreate_DuplicateLeavesExistingUnchanged(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))
	ctx := context.Background()

	first, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 2})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err = m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Non-Veg", Quantity: 1})
	if !errors.Is(err, booking.ErrAlreadyBooked) {
		t.Fatalf("expected ErrAlreadyBooked, got %v", err)
	}
	if !errors.Is(err, apperr.ErrRejected) {
		t.Errorf("duplicate should be a validation rejection")
	}

	if len(store.prebooks) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(store.prebooks))
	}
	if got := store.prebooks[0]; got.ID != first.ID || got.ItemCategory != "Veg" || got.Quantity != 2 {
		t.Errorf("existing booking changed: %+v", got)
	}
}

func TestCreate_OtherUserNotBlocked(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))
	ctx := context.Background()

	if _, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1}); err != nil {
		t.Fatalf("u1 create: %v", err)
	}
	if _, err := m.Create(ctx, booking.CreateRequest{UserID: "u2", Category: "Veg", Quantity: 1}); err != nil {
		t.Fatalf("u2 create: %v", err)
	}
}

func TestCreate_ItemBookingTakesItemCategory(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))

	p, err := m.Create(context.Background(), booking.CreateRequest{UserID: "u1", ItemID: "i1", Quantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ItemID == nil || *p.ItemID != "i1" {
		t.Errorf("item id: got %v", p.ItemID)
	}
	if p.ItemCategory != "Veg" {
		t.Errorf("category: got %q, want Veg", p.ItemCategory)
	}
}

func TestCreate_ItemCategoryWinsOverRequest(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))

	p, err := m.Create(context.Background(), booking.CreateRequest{UserID: "u1", ItemID: "i1", Category: "Non-Veg", Quantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ItemCategory != "Veg" {
		t.Errorf("category: got %q, want the item's Veg", p.ItemCategory)
	}
}

func TestCreate_ConcurrentSameUserBooksOnce(t *testing.T) {
	c := clock.NewFake(at(9, 0))
	st := store.New(store.NewFileBackend(t.TempDir()), c)
	m := booking.NewMachine(st, c, cutoff)
	ctx := context.Background()

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, booking.ErrAlreadyBooked):
				rejected++
			default:
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || rejected != attempts-1 {
		t.Errorf("created %d, rejected %d; want 1 and %d", created, rejected, attempts-1)
	}
	prebooks, err := st.ListPrebooks(ctx, "u1", "2026-10-15")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(prebooks) != 1 {
		t.Fatalf("want exactly 1 stored prebook, got %d", len(prebooks))
	}
}

func TestCancel_ConcurrentWithCreate(t *testing.T) {
	c := clock.NewFake(at(9, 0))
	st := store.New(store.NewFileBackend(t.TempDir()), c)
	m := booking.NewMachine(st, c, cutoff)
	ctx := context.Background()

	if _, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Cancel(ctx, "u1", "")
		}()
		go func() {
			defer wg.Done()
			m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Fasting", Quantity: 1})
		}()
	}
	wg.Wait()

	prebooks, err := st.ListPrebooks(ctx, "u1", "2026-10-15")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(prebooks) > 1 {
		t.Fatalf("at most one prebook per date, got %d", len(prebooks))
	}
}

func TestCreate_UnknownItem(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))

	_, err := m.Create(context.Background(), booking.CreateRequest{UserID: "u1", ItemID: "nope", Quantity: 1})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))
	ctx := context.Background()

	if _, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 0}); !errors.Is(err, booking.ErrInvalidQuantity) {
		t.Errorf("quantity 0: got %v", err)
	}
	if _, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Dessert", Quantity: 1}); !errors.Is(err, booking.ErrInvalidCategory) {
		t.Errorf("bad category: got %v", err)
	}
}

func TestCreate_StoreFailurePropagates(t *testing.T) {
	store := newMockStore()
	store.listErr = apperr.Transport("load prebooks", errors.New("disk gone"))
	m, _ := newMachine(store, at(9, 0))

	_, err := m.Create(context.Background(), booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1})
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

// --- Cancel ---

func TestCancel_ThenRebook(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))
	ctx := context.Background()

	p, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := m.Cancel(ctx, "u1", "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.ID != p.ID {
		t.Errorf("cancelled %s, want %s", cancelled.ID, p.ID)
	}

	current, _ := m.Current(ctx, "u1")
	if booking.StateOf(current) != booking.NoBooking {
		t.Errorf("state after cancel: got %s", booking.StateOf(current))
	}

	if _, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Fasting", Quantity: 1}); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestCancel_NoBooking(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))

	_, err := m.Cancel(context.Background(), "u1", "")
	if !errors.Is(err, booking.ErrNoBooking) {
		t.Fatalf("expected ErrNoBooking, got %v", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound kind")
	}
}

func TestCancel_AfterCutoff(t *testing.T) {
	store := newMockStore()
	m, c := newMachine(store, at(9, 0))
	ctx := context.Background()

	p, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	c.Set(at(10, 45))
	_, err = m.Cancel(ctx, "u1", p.ID)
	if !errors.Is(err, booking.ErrCancelClosed) {
		t.Fatalf("expected ErrCancelClosed, got %v", err)
	}
	if msg := apperr.Message(err, ""); msg != "Cannot cancel after 10:30" {
		t.Errorf("message: got %q", msg)
	}
	if len(store.prebooks) != 1 {
		t.Error("booking must survive a blocked cancel")
	}
}

func TestCancel_OtherUsersBookingNotFound(t *testing.T) {
	store := newMockStore()
	m, _ := newMachine(store, at(9, 0))
	ctx := context.Background()

	p, err := m.Create(ctx, booking.CreateRequest{UserID: "u1", Category: "Veg", Quantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := m.Cancel(ctx, "u2", p.ID); !errors.Is(err, booking.ErrNoBooking) {
		t.Fatalf("expected ErrNoBooking, got %v", err)
	}
}
