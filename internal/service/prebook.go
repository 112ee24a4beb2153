package service

import (
	"context"

	"github.com/mealsync/api/internal/booking"
	"github.com/mealsync/api/internal/enum"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/session"
)

// PrebookService runs the booking machine for a signed-in user and keeps the
// session's target-date booking in step.
type PrebookService struct {
	machine  *booking.Machine
	sessions *session.Manager
	notifier Notifier
}

// NewPrebookService creates a new PrebookService.
func NewPrebookService(machine *booking.Machine, sessions *session.Manager, notifier Notifier) *PrebookService {
	return &PrebookService{machine: machine, sessions: sessions, notifier: notifier}
}

// Current refreshes and returns the user's booking for tomorrow, or nil.
func (s *PrebookService) Current(ctx context.Context, userID string) (*model.Prebook, error) {
	p, err := s.machine.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.sessions.Open(userID).Dispatch(session.PrebookChanged{Prebook: p})
	return p, nil
}

// Create books tomorrow for the user.
func (s *PrebookService) Create(ctx context.Context, req booking.CreateRequest) (model.Prebook, error) {
	p, err := s.machine.Create(ctx, req)
	if err != nil {
		return model.Prebook{}, err
	}
	s.sessions.Open(req.UserID).Dispatch(session.PrebookChanged{Prebook: &p})
	s.notifier.Toast(req.UserID, enum.ToastSuccess, "Pre-booked for tomorrow")
	return p, nil
}

// Cancel cancels the booking with id, or tomorrow's booking when id is empty.
func (s *PrebookService) Cancel(ctx context.Context, userID, id string) (model.Prebook, error) {
	p, err := s.machine.Cancel(ctx, userID, id)
	if err != nil {
		return model.Prebook{}, err
	}

	sess := s.sessions.Open(userID)
	if cur := sess.State().Prebook; cur != nil && cur.ID == p.ID {
		sess.Dispatch(session.PrebookChanged{Prebook: nil})
	}
	s.notifier.Toast(userID, enum.ToastSuccess, "Prebook cancelled")
	return p, nil
}
