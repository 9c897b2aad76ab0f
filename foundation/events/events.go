// Package events allows for the registering and receiving of events.
package events

import (
	"errors"
	"slices"
	"sync"
)

// ErrShutdown is returned when a subscription is requested after the
// events value has been shut down.
var ErrShutdown = errors.New("events shut down")

// DefaultQueueDepth is used when a queue depth of zero is configured.
// Since a subscriber is dropped when its queue is full, this buffer should
// give a websocket writer enough time to keep up.
const DefaultQueueDepth = 100

// =============================================================================

// Events maintains the set of subscribers in registration order so
// goroutines can register and receive events.
type Events[T any] struct {
	mu        sync.Mutex
	subs      []*Subscriber[T]
	depth     int
	shut      bool
	evHandler func(v string, args ...any)
}

// New constructs an events for registering and receiving events. Every
// subscriber gets a queue of the specified depth.
func New[T any](depth int, evHandler func(v string, args ...any)) *Events[T] {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Events[T]{
		depth:     depth,
		evHandler: ev,
	}
}

// Subscribe registers a new subscriber. The subscriber only receives events
// published after this call returns.
func (evt *Events[T]) Subscribe() (*Subscriber[T], error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if evt.shut {
		return nil, ErrShutdown
	}

	sub := newSubscriber[T](evt.depth)
	evt.subs = append(evt.subs, sub)

	evt.evHandler("events: subscribe: id[%s]: subscribers[%d]", sub.id, len(evt.subs))

	return sub, nil
}

// Unsubscribe removes the subscriber and closes its queue. It is safe to call
// more than once, only the first call removes anything.
func (evt *Events[T]) Unsubscribe(id string) bool {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if !evt.remove(id) {
		return false
	}

	evt.evHandler("events: unsubscribe: id[%s]: subscribers[%d]", id, len(evt.subs))

	return true
}

// Publish signals the value to every registered subscriber and returns the
// number of subscribers it was delivered to. Publish will not block waiting
// for a receiver, a subscriber whose queue is full is dropped.
func (evt *Events[T]) Publish(v T) int {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	var delivered int
	var dropped []string

	for _, sub := range evt.subs {
		switch sub.deliver(v) {
		case Delivered:
			delivered++
		case Dropped:
			dropped = append(dropped, sub.id)
		}
	}

	for _, id := range dropped {
		evt.remove(id)
		evt.evHandler("events: publish: dropped slow subscriber: id[%s]: subscribers[%d]", id, len(evt.subs))
	}

	return delivered
}

// Count returns the number of registered subscribers.
func (evt *Events[T]) Count() int {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	return len(evt.subs)
}

// Shutdown closes and removes every subscriber. Subscribe fails after
// this call.
func (evt *Events[T]) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.shut = true

	for _, sub := range evt.subs {
		sub.close()
	}
	evt.subs = nil

	evt.evHandler("events: shutdown: all subscribers released")
}

// =============================================================================

// remove drops the subscriber from the set and closes its queue. The caller
// must hold the lock.
func (evt *Events[T]) remove(id string) bool {
	i := slices.IndexFunc(evt.subs, func(sub *Subscriber[T]) bool {
		return sub.id == id
	})
	if i == -1 {
		return false
	}

	evt.subs[i].close()
	evt.subs = slices.Delete(evt.subs, i, i+1)

	return true
}
