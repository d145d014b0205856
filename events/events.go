// Package events is a small typed publish/subscribe channel.
//
// An Emitter maps event names to an ordered list of subscribers. Producers
// (the recorder, the assistant, tasks) embed one and expose On/Off; consumers
// keep the returned Ref to unsubscribe later.
package events

import "sync"

// Ref identifies a single subscription on one Emitter.
type Ref struct {
	id uint64
}

// Valid reports whether the ref came from a successful On call.
func (r Ref) Valid() bool { return r.id != 0 }

// Unsubscriber is implemented by every producer whose subscriptions can be
// released through a Ref.
type Unsubscriber interface {
	Off(ref Ref) bool
}

type subscriber[E any] struct {
	id uint64
	fn func(E)
}

// Emitter is safe for concurrent use. The zero value is ready to use.
type Emitter[K comparable, E any] struct {
	mu   sync.Mutex
	next uint64
	subs map[K][]subscriber[E]
}

// On subscribes fn to the named event.
func (e *Emitter[K, E]) On(name K, fn func(E)) Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[K][]subscriber[E])
	}
	e.next++
	e.subs[name] = append(e.subs[name], subscriber[E]{id: e.next, fn: fn})
	return Ref{id: e.next}
}

// Off removes the subscription identified by ref. It returns false if the
// subscription was already gone.
func (e *Emitter[K, E]) Off(ref Ref) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, list := range e.subs {
		for i, s := range list {
			if s.id != ref.id {
				continue
			}
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(e.subs, name)
			} else {
				e.subs[name] = list
			}
			return true
		}
	}
	return false
}

// Emit calls every subscriber of name in subscription order. The list is
// snapshotted first, so subscribers may unsubscribe from inside a callback.
func (e *Emitter[K, E]) Emit(name K, payload E) {
	e.mu.Lock()
	list := make([]subscriber[E], len(e.subs[name]))
	copy(list, e.subs[name])
	e.mu.Unlock()

	for _, s := range list {
		s.fn(payload)
	}
}

// Listeners returns the number of live subscriptions across all names.
func (e *Emitter[K, E]) Listeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, list := range e.subs {
		n += len(list)
	}
	return n
}

// RemoveAll drops every subscription.
func (e *Emitter[K, E]) RemoveAll() {
	e.mu.Lock()
	e.subs = nil
	e.mu.Unlock()
}
