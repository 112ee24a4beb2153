// Package menu derives the visible menu from raw items, the signed-in user and
// the active view options.
package menu

import (
	"slices"
	"strings"

	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
)

// knownFilters lists the selectable filters in display order.
var knownFilters = []string{
	enum.FilterAll,
	enum.FilterVeg,
	enum.FilterNonVeg,
	enum.FilterFasting,
	enum.FilterHighProtein,
	enum.FilterNoAllergens,
}

// Query is the view state the pipeline reads.
type Query struct {
	Search            string
	Filters           []string
	ShowAllergenItems bool
	SurplusOnly       bool
	User              *model.User
}

// Apply runs the pipeline: active items, search, surplus-only, diet filters
// (any match), allergen exclusion, then a stable discovery-first sort.
// The input slice is not modified.
func Apply(items []model.MenuItem, q Query) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(items))
	for _, it := range items {
		if it.IsActive {
			out = append(out, it)
		}
	}

	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		out = slices.DeleteFunc(out, func(it model.MenuItem) bool {
			return !strings.Contains(strings.ToLower(it.Name), needle) &&
				!strings.Contains(strings.ToLower(it.Description), needle)
		})
	}

	if q.SurplusOnly {
		out = slices.DeleteFunc(out, func(it model.MenuItem) bool { return !it.IsSurplusCandidate })
	}

	filters := NormalizeFilters(q.Filters)
	if !slices.Contains(filters, enum.FilterAll) {
		out = slices.DeleteFunc(out, func(it model.MenuItem) bool { return !matchesAny(it, filters) })
	}

	if !q.ShowAllergenItems && q.User != nil {
		out = slices.DeleteFunc(out, func(it model.MenuItem) bool { return HasAllergen(it, q.User) })
	}

	slices.SortStableFunc(out, func(a, b model.MenuItem) int {
		switch {
		case a.IsDiscoveryItem && !b.IsDiscoveryItem:
			return -1
		case !a.IsDiscoveryItem && b.IsDiscoveryItem:
			return 1
		}
		return 0
	})
	return out
}

func matchesAny(it model.MenuItem, filters []string) bool {
	for _, f := range filters {
		if matches(it, f) {
			return true
		}
	}
	return false
}

func matches(it model.MenuItem, filter string) bool {
	switch filter {
	case enum.FilterVeg:
		return it.HasDietTag(enum.FilterVeg)
	case enum.FilterNonVeg:
		return it.HasDietTag(enum.FilterNonVeg)
	case enum.FilterFasting:
		return it.FastingCompliant
	case enum.FilterHighProtein:
		return it.ProteinTag != nil && *it.ProteinTag == enum.FilterHighProtein
	case enum.FilterNoAllergens:
		return len(it.Allergens) == 0
	}
	return false
}

// HasAllergen reports whether item contains anything the user is allergic to.
// With no user nothing counts as an allergen.
func HasAllergen(item model.MenuItem, user *model.User) bool {
	if user == nil {
		return false
	}
	return slices.ContainsFunc(item.Allergens, user.IsAllergicTo)
}

// NormalizeFilters drops unknown and duplicate labels and collapses to {All}
// when nothing specific remains or All is present.
func NormalizeFilters(filters []string) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		if f == enum.FilterAll {
			return []string{enum.FilterAll}
		}
		if slices.Contains(knownFilters, f) && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return []string{enum.FilterAll}
	}
	return out
}

// ToggleFilter returns the filter set after the user taps filter.
// Tapping All resets; deselecting the last specific filter falls back to All.
func ToggleFilter(active []string, filter string) []string {
	if filter == enum.FilterAll {
		return []string{enum.FilterAll}
	}
	if !slices.Contains(knownFilters, filter) {
		return NormalizeFilters(active)
	}

	next := slices.DeleteFunc(slices.Clone(active), func(f string) bool { return f == enum.FilterAll })
	if slices.Contains(next, filter) {
		next = slices.DeleteFunc(next, func(f string) bool { return f == filter })
	} else {
		next = append(next, filter)
	}
	return NormalizeFilters(next)
}
