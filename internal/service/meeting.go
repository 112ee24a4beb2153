package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/lifecycle"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/session"
	"github.com/shopspring/decimal"
)

// Errors returned by the meeting service.
var (
	ErrMeetingNotFound       = apperr.NotFound("Meeting not found")
	ErrOrderNotFound         = apperr.NotFound("Order not found")
	ErrEmptyCart             = apperr.Rejected("Meeting cart is empty")
	ErrInvalidDeliveryOption = apperr.Rejected("delivery_option must be silent or notify")
	ErrItemSoldOut           = apperr.Rejected("Item is sold out")
)

// ItemStore defines the record-store methods for reading menu items.
// Satisfied by *store.Store; narrow interface for testability.
type ItemStore interface {
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
}

// MockMeetings returns the calendar used for meeting orders: meetings 2 h,
// 4 h and 24 h after now.
func MockMeetings(now time.Time) []model.Meeting {
	return []model.Meeting{
		{ID: "meet_001", Title: "Q4 Planning Review", StartTime: now.Add(2 * time.Hour), EndTime: now.Add(3 * time.Hour), Attendees: 8, Location: "Conference Room A"},
		{ID: "meet_002", Title: "Design Sprint Kickoff", StartTime: now.Add(4 * time.Hour), EndTime: now.Add(5 * time.Hour), Attendees: 5, Location: "Meeting Room 3"},
		{ID: "meet_003", Title: "Client Presentation", StartTime: now.Add(24 * time.Hour), EndTime: now.Add(25 * time.Hour), Attendees: 12, Location: "Board Room"},
	}
}

// PlaceMeetingOrderRequest is the input for placing a meeting order.
type PlaceMeetingOrderRequest struct {
	MeetingID      string
	DeliveryOption string
	DeliveryTime   string
}

// MeetingService manages the meeting cart and meeting orders.
type MeetingService struct {
	store     ItemStore
	sessions  *session.Manager
	simulator *lifecycle.Simulator
	notifier  Notifier
	clock     clock.Clock
	meetings  []model.Meeting
}

// NewMeetingService creates a new MeetingService and subscribes it to order
// transitions from simulator.
func NewMeetingService(store ItemStore, sessions *session.Manager, simulator *lifecycle.Simulator, notifier Notifier, c clock.Clock) *MeetingService {
	s := &MeetingService{
		store:     store,
		sessions:  sessions,
		simulator: simulator,
		notifier:  notifier,
		clock:     c,
		meetings:  MockMeetings(c.Now().UTC()),
	}
	simulator.OnTransition(s.applyTransition)
	return s
}

// Meetings returns the upcoming meetings.
func (s *MeetingService) Meetings() []model.Meeting {
	return slices.Clone(s.meetings)
}

// AddToCart adds quantity of itemID to the user's meeting cart.
func (s *MeetingService) AddToCart(ctx context.Context, userID, itemID string, quantity int) ([]model.CartLine, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	item, err := s.store.GetMenuItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrItemUnavailable
	}
	if item.AvailableQty <= 0 {
		return nil, ErrItemSoldOut
	}

	st := s.sessions.Open(userID).Dispatch(session.CartItemAdded{Item: item, Quantity: quantity})
	s.notifier.Toast(userID, enum.ToastSuccess, fmt.Sprintf("Added %s to meeting cart", item.Name))
	return st.MeetingCart, nil
}

// RemoveFromCart drops itemID from the user's meeting cart.
func (s *MeetingService) RemoveFromCart(userID, itemID string) []model.CartLine {
	st := s.sessions.Open(userID).Dispatch(session.CartItemRemoved{ItemID: itemID})
	return st.MeetingCart
}

// PlaceOrder turns the user's meeting cart into a meeting order, records it
// in order history and starts its delivery.
func (s *MeetingService) PlaceOrder(userID string, req PlaceMeetingOrderRequest) (model.MeetingOrder, error) {
	i := slices.IndexFunc(s.meetings, func(m model.Meeting) bool { return m.ID == req.MeetingID })
	if i < 0 {
		return model.MeetingOrder{}, ErrMeetingNotFound
	}
	meeting := s.meetings[i]

	option := req.DeliveryOption
	if option == "" {
		option = enum.DeliveryNotify
	}
	if option != enum.DeliverySilent && option != enum.DeliveryNotify {
		return model.MeetingOrder{}, ErrInvalidDeliveryOption
	}

	var order model.MeetingOrder
	_, err := s.sessions.Open(userID).Update(func(st session.State) (session.Action, error) {
		if len(st.MeetingCart) == 0 {
			return nil, ErrEmptyCart
		}

		order = model.MeetingOrder{
			ID:             "meeting_order_" + uuid.NewString(),
			MeetingID:      meeting.ID,
			DeliveryOption: option,
			DeliveryTime:   req.DeliveryTime,
			Status:         enum.OrderStatusPreparing,
			CreatedAt:      s.clock.Now().UTC(),
			TotalPrice:     decimal.Zero,
		}
		units := 0
		for _, line := range st.MeetingCart {
			order.Items = append(order.Items, model.MeetingOrderLine{
				ItemID:   line.Item.ID,
				ItemName: line.Item.Name,
				Quantity: line.Quantity,
				Price:    line.Item.Price,
			})
			order.TotalPrice = order.TotalPrice.Add(line.Item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			units += line.Quantity
		}

		entry := model.OrderEntry{
			ID:             order.ID,
			ItemName:       "Meeting: " + meeting.Title,
			Quantity:       units,
			Price:          order.TotalPrice,
			Date:           order.CreatedAt,
			Type:           enum.OrderTypeMeeting,
			MeetingID:      meeting.ID,
			DeliveryOption: order.DeliveryOption,
			DeliveryTime:   order.DeliveryTime,
			Status:         order.Status,
		}
		return session.MeetingOrderPlaced{Order: order, Entry: entry}, nil
	})
	if err != nil {
		return model.MeetingOrder{}, err
	}

	s.simulator.Place(userID, order)
	s.notifier.Toast(userID, enum.ToastSuccess, "Meeting refreshments ordered successfully!")
	return order, nil
}

// ConfirmReceipt stamps a delivered meeting order as received.
func (s *MeetingService) ConfirmReceipt(userID, orderID string) (model.MeetingOrder, error) {
	at := s.clock.Now().UTC()
	st, err := s.sessions.Open(userID).Update(func(st session.State) (session.Action, error) {
		order, ok := st.FindMeetingOrder(orderID)
		if !ok {
			return nil, ErrOrderNotFound
		}
		if err := lifecycle.ConfirmReceipt(&order, at); err != nil {
			return nil, err
		}
		return session.ReceiptConfirmed{OrderID: orderID, At: at}, nil
	})
	if err != nil {
		return model.MeetingOrder{}, err
	}

	order, _ := st.FindMeetingOrder(orderID)
	s.notifier.Toast(userID, enum.ToastSuccess, "Receipt confirmed! Thank you.")
	return order, nil
}

// applyTransition records a simulated status change in the owner's session,
// even when the owner is signed out, and notifies them.
func (s *MeetingService) applyTransition(tr lifecycle.Transition) {
	s.sessions.Open(tr.UserID).Dispatch(session.OrderStatusChanged{OrderID: tr.OrderID, Status: tr.To})
	s.notifier.OrderStatus(tr.UserID, tr.OrderID, tr.To)
	if msg := lifecycle.Message(tr.To); msg != "" {
		s.notifier.Toast(tr.UserID, enum.ToastInfo, msg)
	}
}
