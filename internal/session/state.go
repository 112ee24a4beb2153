// Package session holds the per-user application state: the signed-in user,
// order history, meeting orders and menu view settings.
//
// State changes only through Reduce. A Session applies actions one at a time
// and mirrors the user, order history and meeting orders into its Cache after
// every change, so a later Open restores them.
package session

import (
	"slices"
	"time"

	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/lifecycle"
	"github.com/mealsync/api/internal/menu"
	"github.com/mealsync/api/internal/model"
)

// State is the full application state of one session.
type State struct {
	User          *model.User          `json:"user"`
	Orders        []model.OrderEntry   `json:"orders"`
	MeetingOrders []model.MeetingOrder `json:"meetingOrders"`
	Prebook       *model.Prebook       `json:"prebook"`
	View          View                 `json:"view"`
	MeetingCart   []model.CartLine     `json:"meetingCart"`
}

// View holds the menu view settings.
type View struct {
	SelectedDate      string   `json:"selectedDate"`
	Search            string   `json:"search"`
	Filters           []string `json:"filters"`
	ShowAllergenItems bool     `json:"showAllergenItems"`
	SurplusOnly       bool     `json:"surplusOnly"`
}

// Action is a state change passed to Reduce.
type Action interface {
	action()
}

// LoggedIn starts the session for User.
type LoggedIn struct{ User model.User }

// LoggedOut ends the session. Order history is kept.
type LoggedOut struct{}

// UserUpdated replaces the signed-in user with a fresher copy.
type UserUpdated struct{ User model.User }

// PrebookChanged sets the booking for the target date; nil means none.
type PrebookChanged struct{ Prebook *model.Prebook }

// ViewChanged replaces the view settings.
type ViewChanged struct{ View View }

// FilterToggled taps one filter chip.
type FilterToggled struct{ Filter string }

// OrderRecorded appends a completed purchase to the order history.
type OrderRecorded struct{ Entry model.OrderEntry }

// CartItemAdded adds Quantity of Item to the meeting cart.
type CartItemAdded struct {
	Item     model.MenuItem
	Quantity int
}

// CartItemRemoved drops an item from the meeting cart.
type CartItemRemoved struct{ ItemID string }

// MeetingOrderPlaced records a new meeting order and its history entry and empties the cart.
type MeetingOrderPlaced struct {
	Order model.MeetingOrder
	Entry model.OrderEntry
}

// OrderStatusChanged moves a meeting order, and its history entry, forward to Status.
type OrderStatusChanged struct {
	OrderID string
	Status  string
}

// ReceiptConfirmed stamps a delivered meeting order as received.
type ReceiptConfirmed struct {
	OrderID string
	At      time.Time
}

func (LoggedIn) action()           {}
func (LoggedOut) action()          {}
func (UserUpdated) action()        {}
func (PrebookChanged) action()     {}
func (ViewChanged) action()        {}
func (FilterToggled) action()      {}
func (OrderRecorded) action()      {}
func (CartItemAdded) action()      {}
func (CartItemRemoved) action()    {}
func (MeetingOrderPlaced) action() {}
func (OrderStatusChanged) action() {}
func (ReceiptConfirmed) action()   {}

// Reduce returns the state after applying a to s. It never modifies s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoggedIn:
		u := a.User
		s.User = &u
		s.View.Filters = menu.NormalizeFilters(s.View.Filters)

	case LoggedOut:
		s.User = nil
		s.Prebook = nil
		s.MeetingCart = nil

	case UserUpdated:
		// a response for a user who is no longer signed in is dropped
		if s.User == nil || s.User.ID != a.User.ID {
			return s
		}
		u := a.User
		s.User = &u

	case PrebookChanged:
		if a.Prebook == nil {
			s.Prebook = nil
		} else {
			p := *a.Prebook
			s.Prebook = &p
		}

	case ViewChanged:
		s.View = a.View
		s.View.Filters = menu.NormalizeFilters(a.View.Filters)

	case FilterToggled:
		s.View.Filters = menu.ToggleFilter(menu.NormalizeFilters(s.View.Filters), a.Filter)

	case OrderRecorded:
		s.Orders = append(slices.Clone(s.Orders), a.Entry)

	case CartItemAdded:
		cart := slices.Clone(s.MeetingCart)
		if i := slices.IndexFunc(cart, func(c model.CartLine) bool { return c.Item.ID == a.Item.ID }); i >= 0 {
			cart[i].Quantity += a.Quantity
		} else {
			cart = append(cart, model.CartLine{Item: a.Item, Quantity: a.Quantity})
		}
		s.MeetingCart = cart

	case CartItemRemoved:
		s.MeetingCart = slices.DeleteFunc(slices.Clone(s.MeetingCart), func(c model.CartLine) bool {
			return c.Item.ID == a.ItemID
		})

	case MeetingOrderPlaced:
		s.MeetingOrders = append(slices.Clone(s.MeetingOrders), a.Order)
		s.Orders = append(slices.Clone(s.Orders), a.Entry)
		s.MeetingCart = nil

	case OrderStatusChanged:
		orders := slices.Clone(s.MeetingOrders)
		for i := range orders {
			if orders[i].ID == a.OrderID {
				lifecycle.ApplyStatus(&orders[i], a.Status)
			}
		}
		s.MeetingOrders = orders

		entries := slices.Clone(s.Orders)
		for i := range entries {
			if entries[i].ID == a.OrderID && enum.OrderStatusRank(a.Status) > enum.OrderStatusRank(entries[i].Status) {
				entries[i].Status = a.Status
			}
		}
		s.Orders = entries

	case ReceiptConfirmed:
		orders := slices.Clone(s.MeetingOrders)
		for i := range orders {
			if orders[i].ID == a.OrderID {
				// guard failures leave the order untouched
				_ = lifecycle.ConfirmReceipt(&orders[i], a.At)
			}
		}
		s.MeetingOrders = orders
	}
	return s
}

// FindMeetingOrder returns the meeting order with id.
func (s State) FindMeetingOrder(id string) (model.MeetingOrder, bool) {
	i := slices.IndexFunc(s.MeetingOrders, func(o model.MeetingOrder) bool { return o.ID == id })
	if i < 0 {
		return model.MeetingOrder{}, false
	}
	return s.MeetingOrders[i], true
}

// clone copies s deeply enough that callers cannot alias session internals.
func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		u.BookmarkedItems = slices.Clone(u.BookmarkedItems)
		u.Allergies = slices.Clone(u.Allergies)
		u.DietProfile = slices.Clone(u.DietProfile)
		out.User = &u
	}
	if s.Prebook != nil {
		p := *s.Prebook
		out.Prebook = &p
	}
	out.Orders = slices.Clone(s.Orders)
	out.MeetingOrders = slices.Clone(s.MeetingOrders)
	for i := range out.MeetingOrders {
		out.MeetingOrders[i].Items = slices.Clone(out.MeetingOrders[i].Items)
	}
	out.MeetingCart = slices.Clone(s.MeetingCart)
	out.View.Filters = slices.Clone(s.View.Filters)
	return out
}
