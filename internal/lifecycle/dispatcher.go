// Package lifecycle advances meeting orders through preparing,
// out-for-delivery and delivered on fixed delays.
//
// Timers are modelled as a queue of scheduled events drained by one
// dispatcher, so tests drive it by advancing a virtual clock.
package lifecycle

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/mealsync/api/internal/clock"
)

// Event is a status change due for an order.
type Event struct {
	OrderID string
	Status  string
}

type scheduled struct {
	due time.Time
	seq uint64
	ev  Event
}

// eventQueue is a min-heap by due time, then scheduling order.
type eventQueue []scheduled

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(scheduled)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// Dispatcher holds scheduled events and hands each to the handler once due.
// The handler runs without the dispatcher lock held and may schedule more events.
type Dispatcher struct {
	mu     sync.Mutex
	clock  clock.Clock
	queue  eventQueue
	seq    uint64
	handle func(Event)
	wake   chan struct{}
}

// NewDispatcher creates a Dispatcher that passes due events to handle.
func NewDispatcher(c clock.Clock, handle func(Event)) *Dispatcher {
	return &Dispatcher{
		clock:  c,
		handle: handle,
		wake:   make(chan struct{}, 1),
	}
}

// Schedule queues ev to fire delay after the clock's current time.
func (d *Dispatcher) Schedule(delay time.Duration, ev Event) {
	d.mu.Lock()
	d.seq++
	heap.Push(&d.queue, scheduled{due: d.clock.Now().Add(delay), seq: d.seq, ev: ev})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Advance fires, in due order, every event due at or before now, including
// events scheduled by handlers during this call. It returns how many fired.
func (d *Dispatcher) Advance(now time.Time) int {
	fired := 0
	for {
		d.mu.Lock()
		if len(d.queue) == 0 || d.queue[0].due.After(now) {
			d.mu.Unlock()
			return fired
		}
		next := heap.Pop(&d.queue).(scheduled)
		d.mu.Unlock()

		d.handle(next.ev)
		fired++
	}
}

// nextDue returns the due time of the earliest event.
func (d *Dispatcher) nextDue() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return time.Time{}, false
	}
	return d.queue[0].due, true
}

// Run fires events against the real passage of time until ctx is done.
// This should be called as a goroutine: go d.Run(ctx)
func (d *Dispatcher) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		d.Advance(d.clock.Now())

		wait := time.Hour
		if due, ok := d.nextDue(); ok {
			wait = max(due.Sub(d.clock.Now()), 0)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-timer.C:
		}
	}
}
