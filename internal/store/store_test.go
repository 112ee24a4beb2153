package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/store"
	"github.com/shopspring/decimal"
)

// --- Helpers ---

var fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func newFileStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	return store.New(store.NewFileBackend(dir), clock.NewFake(fixedNow)), dir
}

func writeCollection(t *testing.T, dir, name string, v interface{}) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), b, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func seedUsers(t *testing.T, dir string) {
	t.Helper()
	writeCollection(t, dir, store.Users, []model.User{
		{ID: "user_001", Email: "asha@example.com", DisplayName: "Asha", Allergies: []string{"nuts"}, GreenCredits: 120},
		{ID: "user_002", Email: "rajesh@example.com", DisplayName: "Rajesh"},
	})
}

// --- Menu days ---

func TestGetMenuDay_WeekendUnpublished(t *testing.T) {
	s, _ := newFileStore(t)

	day, err := s.GetMenuDay(context.Background(), "2026-10-17")
	if err != nil {
		t.Fatalf("get menu day: %v", err)
	}
	if day.Published {
		t.Error("weekend day must not be published")
	}
	if day.Title != "Weekend - No Menu" {
		t.Errorf("title: got %q", day.Title)
	}
	if day.FestivalTag != nil {
		t.Errorf("weekend should carry no festival tag, got %q", *day.FestivalTag)
	}
}

func TestGetMenuDay_WeekdaySynthesized(t *testing.T) {
	s, _ := newFileStore(t)

	day, err := s.GetMenuDay(context.Background(), "2026-10-14")
	if err != nil {
		t.Fatalf("get menu day: %v", err)
	}
	if !day.Published {
		t.Error("weekday should be published")
	}
	if day.FestivalTag == nil || *day.FestivalTag != "Navratri" {
		t.Errorf("festival tag: got %v, want Navratri", day.FestivalTag)
	}
	if day.Title != "Menu — Oct 14, 2026" {
		t.Errorf("title: got %q", day.Title)
	}
}

func TestGetMenuDay_StoredDayWins(t *testing.T) {
	s, dir := newFileStore(t)
	writeCollection(t, dir, store.MenuDays, []model.MenuDay{
		{ID: "day_1", Date: "2026-10-14", Title: "Diwali Week", Published: true},
	})

	day, err := s.GetMenuDay(context.Background(), "2026-10-14")
	if err != nil {
		t.Fatalf("get menu day: %v", err)
	}
	if day.ID != "day_1" || day.Title != "Diwali Week" {
		t.Errorf("expected stored day, got %+v", day)
	}
}

func TestGetMenuDay_InvalidDate(t *testing.T) {
	s, _ := newFileStore(t)

	_, err := s.GetMenuDay(context.Background(), "14/10/2026")
	if !errors.Is(err, apperr.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

// --- Menu items ---

func TestListMenuItems_WeekendEmpty(t *testing.T) {
	s, dir := newFileStore(t)
	writeCollection(t, dir, store.MenuItems, []model.MenuItem{{ID: "i1", Name: "Dal", IsActive: true}})

	items, err := s.ListMenuItems(context.Background(), "2026-10-18")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items on a weekend, got %d", len(items))
	}
}

func TestListMenuItems_RewritesDayID(t *testing.T) {
	s, dir := newFileStore(t)
	writeCollection(t, dir, store.MenuItems, []model.MenuItem{
		{ID: "i1", DayID: "template", Name: "Dal"},
		{ID: "i2", DayID: "template", Name: "Paneer"},
	})

	items, err := s.ListMenuItems(context.Background(), "2026-10-14")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, it := range items {
		if it.DayID != "2026-10-14" {
			t.Errorf("item %s day_id: got %q", it.ID, it.DayID)
		}
	}
}

func TestListMenuItems_MissingFileIsEmpty(t *testing.T) {
	s, _ := newFileStore(t)

	items, err := s.ListMenuItems(context.Background(), "")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d", len(items))
	}
}

func TestListMenuItems_MalformedFileIsTransportFailure(t *testing.T) {
	s, dir := newFileStore(t)
	if err := os.WriteFile(filepath.Join(dir, store.MenuItems+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := s.ListMenuItems(context.Background(), "")
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestGetMenuItem_NotFound(t *testing.T) {
	s, _ := newFileStore(t)

	_, err := s.GetMenuItem(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMenuItem_MergesFields(t *testing.T) {
	s, dir := newFileStore(t)
	writeCollection(t, dir, store.MenuItems, []model.MenuItem{
		{ID: "i1", Name: "Dal", Price: decimal.NewFromInt(50), AvailableQty: 4, IsActive: true},
	})

	patch, err := store.PatchOf(map[string]any{"available_qty": 1})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	item, err := s.UpdateMenuItem(context.Background(), "i1", patch)
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if item.AvailableQty != 1 {
		t.Errorf("available_qty: got %d, want 1", item.AvailableQty)
	}
	if item.Name != "Dal" || !item.Price.Equal(decimal.NewFromInt(50)) || !item.IsActive {
		t.Errorf("untouched fields changed: %+v", item)
	}

	reloaded, err := s.GetMenuItem(context.Background(), "i1")
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if reloaded.AvailableQty != 1 {
		t.Errorf("update not persisted: got %d", reloaded.AvailableQty)
	}
}

// --- Users ---

func TestGetUserByEmail(t *testing.T) {
	s, dir := newFileStore(t)
	seedUsers(t, dir)

	u, err := s.GetUserByEmail(context.Background(), "rajesh@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.ID != "user_002" {
		t.Errorf("id: got %s, want user_002", u.ID)
	}

	_, err = s.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser_MergePatch(t *testing.T) {
	s, dir := newFileStore(t)
	seedUsers(t, dir)

	patch := store.Patch{
		"bookmarked_items": json.RawMessage(`["i1","i2"]`),
		"id":               json.RawMessage(`"hijack"`),
	}
	u, err := s.UpdateUser(context.Background(), "user_001", patch)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if u.ID != "user_001" {
		t.Errorf("id must not change, got %s", u.ID)
	}
	if len(u.BookmarkedItems) != 2 {
		t.Errorf("bookmarks: got %v", u.BookmarkedItems)
	}
	if u.GreenCredits != 120 || len(u.Allergies) != 1 {
		t.Errorf("untouched fields changed: %+v", u)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s, dir := newFileStore(t)
	seedUsers(t, dir)

	_, err := s.UpdateUser(context.Background(), "ghost", store.Patch{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- Prebooks ---

func TestPrebookLifecycle(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()

	p, err := s.CreatePrebook(ctx, model.Prebook{UserID: "user_001", Date: "2026-10-15", ItemCategory: "Veg", Quantity: 1})
	if err != nil {
		t.Fatalf("create prebook: %v", err)
	}
	if !strings.HasPrefix(p.ID, "prebook_") {
		t.Errorf("id: got %q, want prebook_ prefix", p.ID)
	}
	if !p.CreatedAt.Equal(fixedNow) {
		t.Errorf("created_at: got %v, want %v", p.CreatedAt, fixedNow)
	}
	if _, err := s.CreatePrebook(ctx, model.Prebook{UserID: "user_002", Date: "2026-10-15", ItemCategory: "Non-Veg", Quantity: 1}); err != nil {
		t.Fatalf("create second prebook: %v", err)
	}

	mine, err := s.ListPrebooks(ctx, "user_001", "")
	if err != nil {
		t.Fatalf("list prebooks: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != p.ID {
		t.Fatalf("expected only user_001's prebook, got %+v", mine)
	}

	onDate, err := s.ListPrebooks(ctx, "", "2026-10-15")
	if err != nil {
		t.Fatalf("list prebooks by date: %v", err)
	}
	if len(onDate) != 2 {
		t.Errorf("expected 2 prebooks on date, got %d", len(onDate))
	}

	existed, err := s.DeletePrebook(ctx, p.ID)
	if err != nil || !existed {
		t.Fatalf("delete prebook: existed=%v err=%v", existed, err)
	}
	existed, err = s.DeletePrebook(ctx, p.ID)
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

// --- Seed ---

func TestSeed_SkipsPopulatedCollections(t *testing.T) {
	s, dir := newFileStore(t)
	seedUsers(t, dir)

	written, err := s.Seed(context.Background(), store.SeedData{
		Users: []model.User{{ID: "replacement"}},
		Items: []model.MenuItem{{ID: "i1"}},
	}, false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, name := range written {
		if name == store.Users {
			t.Error("users collection was already populated and should be skipped")
		}
	}

	if _, err := s.GetUser(context.Background(), "user_001"); err != nil {
		t.Errorf("existing user lost: %v", err)
	}
	if _, err := s.GetMenuItem(context.Background(), "i1"); err != nil {
		t.Errorf("seeded item missing: %v", err)
	}
}

func TestSeed_Force(t *testing.T) {
	s, dir := newFileStore(t)
	seedUsers(t, dir)

	if _, err := s.Seed(context.Background(), store.SeedData{Users: []model.User{{ID: "replacement"}}}, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.GetUser(context.Background(), "replacement"); err != nil {
		t.Errorf("forced seed did not replace users: %v", err)
	}
}

// --- Postgres backend ---

type fakeRow struct {
	body []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.body
	return nil
}

type fakeQuerier struct {
	rows map[string][]byte
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	body, ok := q.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{body: body}
}

func (q *fakeQuerier) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	q.rows[args[0].(string)] = []byte(args[1].(json.RawMessage))
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresBackend_RoundTrip(t *testing.T) {
	q := &fakeQuerier{rows: map[string][]byte{}}
	s := store.New(store.NewPostgresBackend(q), clock.NewFake(fixedNow))
	ctx := context.Background()

	prebooks, err := s.ListPrebooks(ctx, "", "")
	if err != nil {
		t.Fatalf("list on empty table: %v", err)
	}
	if len(prebooks) != 0 {
		t.Fatalf("expected empty, got %d", len(prebooks))
	}

	p, err := s.CreatePrebook(ctx, model.Prebook{UserID: "user_001", Date: "2026-10-15", ItemCategory: "Veg", Quantity: 2})
	if err != nil {
		t.Fatalf("create prebook: %v", err)
	}

	prebooks, err = s.ListPrebooks(ctx, "user_001", "2026-10-15")
	if err != nil {
		t.Fatalf("list prebooks: %v", err)
	}
	if len(prebooks) != 1 || prebooks[0].ID != p.ID || prebooks[0].Quantity != 2 {
		t.Errorf("round trip mismatch: %+v", prebooks)
	}
}

func TestPostgresBackend_QueryErrorIsTransport(t *testing.T) {
	q := &erroringQuerier{}
	s := store.New(store.NewPostgresBackend(q), nil)

	_, err := s.GetUser(context.Background(), "user_001")
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

type erroringQuerier struct{}

func (erroringQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: errors.New("connection refused")}
}

func (erroringQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("connection refused")
}
