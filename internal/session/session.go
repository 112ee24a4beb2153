package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/mealsync/api/internal/enum"
)

// Session applies actions to one user's State in order and mirrors the
// persisted parts into its Cache.
type Session struct {
	mu    sync.Mutex
	state State
	cache Cache
}

// Open creates a Session hydrated from cache. Keys that are absent start empty.
// A key that cannot be decoded is skipped and reported in the returned error;
// the Session is usable either way.
func Open(cache Cache) (*Session, error) {
	st, err := Hydrate(cache)
	return &Session{state: st, cache: cache}, err
}

// Hydrate reads the mirrored keys back from cache.
func Hydrate(cache Cache) (State, error) {
	st := State{View: View{Filters: []string{enum.FilterAll}}}
	var errs []error

	if raw, ok, err := cache.Get(KeyUser); err != nil {
		errs = append(errs, err)
	} else if ok {
		if err := json.Unmarshal(raw, &st.User); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", KeyUser, err))
			st.User = nil
		}
	}
	if raw, ok, err := cache.Get(KeyOrders); err != nil {
		errs = append(errs, err)
	} else if ok {
		if err := json.Unmarshal(raw, &st.Orders); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", KeyOrders, err))
			st.Orders = nil
		}
	}
	if raw, ok, err := cache.Get(KeyMeetingOrders); err != nil {
		errs = append(errs, err)
	} else if ok {
		if err := json.Unmarshal(raw, &st.MeetingOrders); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", KeyMeetingOrders, err))
			st.MeetingOrders = nil
		}
	}
	return st, errors.Join(errs...)
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Dispatch applies a and mirrors whatever changed. A failed mirror write is
// logged; the in-memory state is updated regardless.
func (s *Session) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(a)
}

// Update runs decide against the current state and dispatches the action it
// returns, holding the session lock throughout so no other action interleaves.
// When decide fails the state is unchanged and its error is returned.
func (s *Session) Update(decide func(State) (Action, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := decide(s.state.clone())
	if err != nil {
		return s.state.clone(), err
	}
	return s.apply(a), nil
}

func (s *Session) apply(a Action) State {
	prev := s.state
	s.state = Reduce(prev, a)
	if err := s.mirror(prev, s.state); err != nil {
		log.Printf("ERROR: mirror session state: %v", err)
	}
	return s.state.clone()
}

// mirror writes each persisted collection that differs between prev and next.
func (s *Session) mirror(prev, next State) error {
	var errs []error

	if !reflect.DeepEqual(prev.User, next.User) {
		if next.User == nil {
			errs = append(errs, s.cache.Clear(KeyUser))
		} else {
			errs = append(errs, s.write(KeyUser, next.User))
		}
	}
	if !reflect.DeepEqual(prev.Orders, next.Orders) {
		errs = append(errs, s.write(KeyOrders, next.Orders))
	}
	if !reflect.DeepEqual(prev.MeetingOrders, next.MeetingOrders) {
		errs = append(errs, s.write(KeyMeetingOrders, next.MeetingOrders))
	}
	return errors.Join(errs...)
}

func (s *Session) write(key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.cache.Set(key, body)
}
