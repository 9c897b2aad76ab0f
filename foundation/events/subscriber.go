package events

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Outcome represents the result of delivering a value to a subscriber.
type Outcome int

// Set of delivery outcomes.
const (
	Delivered Outcome = iota
	Dropped
)

// String implements the fmt.Stringer interface.
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	default:
		return "dropped"
	}
}

// =============================================================================

// Subscriber represents a single registered receiver with a bounded queue.
type Subscriber[T any] struct {
	id    string
	ch    chan T
	alive atomic.Bool
}

func newSubscriber[T any](depth int) *Subscriber[T] {
	sub := Subscriber[T]{
		id: uuid.NewString(),
		ch: make(chan T, depth),
	}
	sub.alive.Store(true)

	return &sub
}

// ID returns the unique id for the subscriber.
func (sub *Subscriber[T]) ID() string {
	return sub.id
}

// Events returns the queue to receive from. The channel is closed when the
// subscriber is removed.
func (sub *Subscriber[T]) Events() <-chan T {
	return sub.ch
}

// Alive reports whether the subscriber is still registered.
func (sub *Subscriber[T]) Alive() bool {
	return sub.alive.Load()
}

// deliver performs a non-blocking send into the queue. A full queue or a
// closed subscriber is reported as Dropped. Must be called with the events
// lock held.
func (sub *Subscriber[T]) deliver(v T) Outcome {
	if !sub.alive.Load() {
		return Dropped
	}

	select {
	case sub.ch <- v:
		return Delivered
	default:
		return Dropped
	}
}

// close marks the subscriber dead and closes the queue exactly once. Must be
// called with the events lock held.
func (sub *Subscriber[T]) close() {
	if sub.alive.CompareAndSwap(true, false) {
		close(sub.ch)
	}
}
