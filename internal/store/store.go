// Package store is the record-store collaborator: four collections (menu days,
// menu items, users, prebooks) kept as whole JSON arrays in a Backend.
//
// Every write is a full read-modify-write of one collection. The mutex only
// serializes writers inside this process; two processes sharing a data
// directory can still lose updates.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
)

// Collection names.
const (
	MenuDays  = "menu_days"
	MenuItems = "menu_items"
	Users     = "users"
	Prebooks  = "prebooks"
)

const dateLayout = "2006-01-02"

// Store implements the menu, user and prebook operations over a Backend.
type Store struct {
	backend Backend
	clock   clock.Clock
	mu      sync.Mutex
}

// New creates a Store. A nil clock uses the system clock.
func New(backend Backend, c clock.Clock) *Store {
	if c == nil {
		c = clock.Real{}
	}
	return &Store{backend: backend, clock: c}
}

// Patch is a merge patch: present keys replace the stored field, absent keys are untouched.
type Patch map[string]json.RawMessage

// PatchOf builds a Patch from plain values.
func PatchOf(fields map[string]any) (Patch, error) {
	p := make(Patch, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode patch field %s: %w", k, err)
		}
		p[k] = raw
	}
	return p, nil
}

// --- Menu days ---

// ListMenuDays returns every stored menu day.
func (s *Store) ListMenuDays(ctx context.Context) ([]model.MenuDay, error) {
	return load[model.MenuDay](ctx, s.backend, MenuDays)
}

// GetMenuDay returns the stored day for date, or a synthesized descriptor when
// none is stored. Weekends are always unpublished.
func (s *Store) GetMenuDay(ctx context.Context, date string) (model.MenuDay, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return model.MenuDay{}, apperr.Rejected("invalid date")
	}
	if isWeekend(d) {
		return model.MenuDay{
			ID:        date,
			Date:      date,
			Title:     "Weekend - No Menu",
			Published: false,
			CreatedAt: s.clock.Now().UTC(),
		}, nil
	}

	days, err := s.ListMenuDays(ctx)
	if err != nil {
		return model.MenuDay{}, err
	}
	for _, day := range days {
		if day.Date == date {
			return day, nil
		}
	}

	tag := enum.FestivalNavratri
	note := "Navratri special menu — fasting options highlighted."
	return model.MenuDay{
		ID:           date,
		Date:         date,
		Title:        "Menu — " + d.Format("Jan 2, 2006"),
		Published:    true,
		CreatedAt:    s.clock.Now().UTC(),
		FestivalTag:  &tag,
		FestivalNote: &note,
	}, nil
}

// --- Menu items ---

// ListMenuItems returns all items, or the items served on date when date is set.
// A weekend date yields an empty list.
func (s *Store) ListMenuItems(ctx context.Context, date string) ([]model.MenuItem, error) {
	if date != "" {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, apperr.Rejected("invalid date")
		}
		if isWeekend(d) {
			return []model.MenuItem{}, nil
		}
	}

	items, err := load[model.MenuItem](ctx, s.backend, MenuItems)
	if err != nil {
		return nil, err
	}
	if date != "" {
		for i := range items {
			items[i].DayID = date
		}
	}
	return items, nil
}

// GetMenuItem returns the item with id.
func (s *Store) GetMenuItem(ctx context.Context, id string) (model.MenuItem, error) {
	items, err := load[model.MenuItem](ctx, s.backend, MenuItems)
	if err != nil {
		return model.MenuItem{}, err
	}
	i := slices.IndexFunc(items, func(it model.MenuItem) bool { return it.ID == id })
	if i < 0 {
		return model.MenuItem{}, apperr.NotFound("Item not found")
	}
	return items[i], nil
}

// UpdateMenuItem merges patch into the item with id.
func (s *Store) UpdateMenuItem(ctx context.Context, id string, patch Patch) (model.MenuItem, error) {
	return update(ctx, s, MenuItems, patch, "Item not found", func(it model.MenuItem) bool { return it.ID == id })
}

// --- Users ---

// GetUser returns the user with id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.findUser(ctx, func(u model.User) bool { return u.ID == id })
}

// GetUserByEmail returns the user with email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, func(u model.User) bool { return u.Email == email })
}

func (s *Store) findUser(ctx context.Context, match func(model.User) bool) (model.User, error) {
	users, err := load[model.User](ctx, s.backend, Users)
	if err != nil {
		return model.User{}, err
	}
	i := slices.IndexFunc(users, match)
	if i < 0 {
		return model.User{}, apperr.NotFound("User not found")
	}
	return users[i], nil
}

// UpdateUser merges patch into the user with id.
func (s *Store) UpdateUser(ctx context.Context, id string, patch Patch) (model.User, error) {
	return update(ctx, s, Users, patch, "User not found", func(u model.User) bool { return u.ID == id })
}

// --- Prebooks ---

// ListPrebooks returns prebooks, narrowed by userID and date when set.
func (s *Store) ListPrebooks(ctx context.Context, userID, date string) ([]model.Prebook, error) {
	prebooks, err := load[model.Prebook](ctx, s.backend, Prebooks)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(prebooks, func(p model.Prebook) bool {
		return (userID != "" && p.UserID != userID) || (date != "" && p.Date != date)
	}), nil
}

// CreatePrebook stores p with a fresh id and creation time.
// It does not check for an existing booking on the same date.
func (s *Store) CreatePrebook(ctx context.Context, p model.Prebook) (model.Prebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prebooks, err := load[model.Prebook](ctx, s.backend, Prebooks)
	if err != nil {
		return model.Prebook{}, err
	}
	p.ID = "prebook_" + uuid.NewString()
	p.CreatedAt = s.clock.Now().UTC()
	if err := save(ctx, s.backend, Prebooks, append(prebooks, p)); err != nil {
		return model.Prebook{}, err
	}
	return p, nil
}

// DeletePrebook removes the prebook with id and reports whether it existed.
func (s *Store) DeletePrebook(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prebooks, err := load[model.Prebook](ctx, s.backend, Prebooks)
	if err != nil {
		return false, err
	}
	before := len(prebooks)
	prebooks = slices.DeleteFunc(prebooks, func(p model.Prebook) bool { return p.ID == id })
	if len(prebooks) == before {
		return false, nil
	}
	return true, save(ctx, s.backend, Prebooks, prebooks)
}

// --- Seeding ---

// SeedData is the initial content of every collection.
type SeedData struct {
	Days     []model.MenuDay
	Items    []model.MenuItem
	Users    []model.User
	Prebooks []model.Prebook
}

// Seed writes each collection of data. Collections that already hold records
// are skipped unless force is set. It returns the names of the collections written.
func (s *Store) Seed(ctx context.Context, data SeedData, force bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var written []string
	seedOne := func(name string, records any) error {
		if !force {
			raw, err := s.backend.Load(ctx, name)
			if err != nil {
				return apperr.Transport("load "+name, err)
			}
			trimmed := bytes.TrimSpace(raw)
			if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("[]")) && !bytes.Equal(trimmed, []byte("null")) {
				return nil
			}
		}
		if err := save(ctx, s.backend, name, records); err != nil {
			return err
		}
		written = append(written, name)
		return nil
	}

	if err := seedOne(MenuDays, nonNil(data.Days)); err != nil {
		return written, err
	}
	if err := seedOne(MenuItems, nonNil(data.Items)); err != nil {
		return written, err
	}
	if err := seedOne(Users, nonNil(data.Users)); err != nil {
		return written, err
	}
	if err := seedOne(Prebooks, nonNil(data.Prebooks)); err != nil {
		return written, err
	}
	return written, nil
}

// --- Helpers ---

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func load[T any](ctx context.Context, b Backend, name string) ([]T, error) {
	raw, err := b.Load(ctx, name)
	if err != nil {
		return nil, apperr.Transport("load "+name, err)
	}
	out := []T{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Transport("decode "+name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func save(ctx context.Context, b Backend, name string, records any) error {
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := b.Save(ctx, name, body); err != nil {
		return apperr.Transport("save "+name, err)
	}
	return nil
}

// update applies patch to the first record matching match and rewrites the collection.
// The "id" key of the patch is ignored.
func update[T any](ctx context.Context, s *Store, name string, patch Patch, notFound string, match func(T) bool) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	records, err := load[T](ctx, s.backend, name)
	if err != nil {
		return zero, err
	}
	i := slices.IndexFunc(records, match)
	if i < 0 {
		return zero, apperr.NotFound(notFound)
	}

	merged, err := mergePatch(records[i], patch)
	if err != nil {
		return zero, apperr.Rejected("invalid update: " + err.Error())
	}
	records[i] = merged
	if err := save(ctx, s.backend, name, records); err != nil {
		return zero, err
	}
	return merged, nil
}

func mergePatch[T any](current T, patch Patch) (T, error) {
	var zero T
	raw, err := json.Marshal(current)
	if err != nil {
		return zero, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, err
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, err
	}
	return out, nil
}
