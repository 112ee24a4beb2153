package lifecycle

import (
	"sync"
	"time"

	"github.com/mealsync/api/internal/apperr"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
)

// Errors returned by receipt confirmation.
var (
	ErrNotDelivered     = apperr.Rejected("Order has not been delivered yet")
	ErrAlreadyConfirmed = apperr.Rejected("Receipt already confirmed")
)

// Config holds the delays between statuses.
type Config struct {
	OutForDeliveryDelay time.Duration
	DeliveredDelay      time.Duration
}

// DefaultConfig is 5s to dispatch and 10s more to deliver.
var DefaultConfig = Config{
	OutForDeliveryDelay: 5 * time.Second,
	DeliveredDelay:      10 * time.Second,
}

// Transition is a status change applied to a tracked order.
type Transition struct {
	UserID  string
	OrderID string
	From    string
	To      string
	At      time.Time
}

// Message is the notification text for reaching status, or "" when none is sent.
func Message(status string) string {
	switch status {
	case enum.OrderStatusOutForDelivery:
		return "Your order is out for delivery!"
	case enum.OrderStatusDelivered:
		return "Your order has been delivered!"
	}
	return ""
}

type tracked struct {
	userID string
	status string
}

// Simulator is the single writer of tracked order statuses.
type Simulator struct {
	mu        sync.Mutex
	clock     clock.Clock
	cfg       Config
	disp      *Dispatcher
	orders    map[string]*tracked
	listeners []func(Transition)
}

// NewSimulator creates a Simulator driven by c.
func NewSimulator(c clock.Clock, cfg Config) *Simulator {
	s := &Simulator{
		clock:  c,
		cfg:    cfg,
		orders: make(map[string]*tracked),
	}
	s.disp = NewDispatcher(c, s.handle)
	return s
}

// OnTransition registers fn to be called after every applied transition.
// Register listeners before placing orders.
func (s *Simulator) OnTransition(fn func(Transition)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Place starts tracking order for userID in the preparing status and schedules
// its dispatch. The returned copy carries the initial status.
func (s *Simulator) Place(userID string, order model.MeetingOrder) model.MeetingOrder {
	order.Status = enum.OrderStatusPreparing

	s.mu.Lock()
	s.orders[order.ID] = &tracked{userID: userID, status: order.Status}
	s.mu.Unlock()

	s.disp.Schedule(s.cfg.OutForDeliveryDelay, Event{OrderID: order.ID, Status: enum.OrderStatusOutForDelivery})
	return order
}

// Status returns the tracked status of orderID. Delivered orders are no longer tracked.
func (s *Simulator) Status(orderID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.orders[orderID]
	if !ok {
		return "", false
	}
	return t.status, true
}

// Pending returns the number of scheduled transitions.
func (s *Simulator) Pending() int { return s.disp.Pending() }

// Advance fires every transition due at or before now.
func (s *Simulator) Advance(now time.Time) int { return s.disp.Advance(now) }

// Dispatcher exposes the underlying dispatcher for Run.
func (s *Simulator) Dispatcher() *Dispatcher { return s.disp }

func (s *Simulator) handle(ev Event) {
	s.mu.Lock()
	t, ok := s.orders[ev.OrderID]
	if !ok || enum.OrderStatusRank(ev.Status) <= enum.OrderStatusRank(t.status) {
		s.mu.Unlock()
		return
	}
	tr := Transition{
		UserID:  t.userID,
		OrderID: ev.OrderID,
		From:    t.status,
		To:      ev.Status,
		At:      s.clock.Now(),
	}
	t.status = ev.Status
	if ev.Status == enum.OrderStatusDelivered {
		delete(s.orders, ev.OrderID)
	}
	listeners := append([]func(Transition){}, s.listeners...)
	s.mu.Unlock()

	if ev.Status == enum.OrderStatusOutForDelivery {
		s.disp.Schedule(s.cfg.DeliveredDelay, Event{OrderID: ev.OrderID, Status: enum.OrderStatusDelivered})
	}
	for _, fn := range listeners {
		fn(tr)
	}
}

// ApplyStatus moves o forward to status. Backward or repeated moves are ignored
// and report false.
func ApplyStatus(o *model.MeetingOrder, status string) bool {
	if enum.OrderStatusRank(status) <= enum.OrderStatusRank(o.Status) {
		return false
	}
	o.Status = status
	return true
}

// ConfirmReceipt stamps o.ConfirmedAt once, and only after delivery. Status is unchanged.
func ConfirmReceipt(o *model.MeetingOrder, at time.Time) error {
	if o.Status != enum.OrderStatusDelivered {
		return ErrNotDelivered
	}
	if o.ConfirmedAt != nil {
		return ErrAlreadyConfirmed
	}
	o.ConfirmedAt = &at
	return nil
}
