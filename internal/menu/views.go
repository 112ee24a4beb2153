package menu

import (
	"slices"

	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
)

// SurplusBannerVisible is true only on today's menu with at least one active surplus item.
func SurplusBannerVisible(items []model.MenuItem, selectedDate, today string) bool {
	if selectedDate != today {
		return false
	}
	return slices.ContainsFunc(items, func(it model.MenuItem) bool {
		return it.IsSurplusCandidate && it.IsActive
	})
}

// SurplusFilterApplies reports whether a toggled surplus-only view takes effect
// for selectedDate. It never does away from today.
func SurplusFilterApplies(surplusOnly bool, selectedDate, today string) bool {
	return surplusOnly && selectedDate == today
}

// FastingItems returns the active fasting-compliant items in input order.
func FastingItems(items []model.MenuItem) []model.MenuItem {
	out := []model.MenuItem{}
	for _, it := range items {
		if it.IsActive && it.FastingCompliant {
			out = append(out, it)
		}
	}
	return out
}

// MeetingItems returns the active items still in stock.
func MeetingItems(items []model.MenuItem) []model.MenuItem {
	out := []model.MenuItem{}
	for _, it := range items {
		if it.IsActive && it.AvailableQty > 0 {
			out = append(out, it)
		}
	}
	return out
}

// FastingViewAvailable reports whether the festival fasting view can open for
// the selected date.
func FastingViewAvailable(day *model.MenuDay, selectedDate, today, tomorrow string) bool {
	if day == nil || day.FestivalTag == nil || *day.FestivalTag != enum.FestivalNavratri {
		return false
	}
	return selectedDate == today || selectedDate == tomorrow
}
