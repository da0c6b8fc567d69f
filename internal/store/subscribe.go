package store

import "github.com/dkotrev/piejam-engine-go/internal/state"

// subscription is the type-erased form a [Subscribe] call installs;
// notify re-evaluates the selector and fires handler only when its
// result changed since the last check.
type subscription struct {
	check func(s *state.State) bool
}

// Subscribe registers handler to be called on the control thread,
// synchronously within whichever Dispatch call caused selector's
// output to change, for as long as the returned unsubscribe func
// hasn't been called. T must be comparable so "changed" can be
// decided by equality rather than a deep structural walk.
func Subscribe[T comparable](s *Store, selector func(*state.State) T, handler func(T)) (unsubscribe func()) {
	current := selector(s.State())

	sub := &subscription{
		check: func(st *state.State) bool {
			next := selector(st)
			if next == current {
				return false
			}
			current = next
			handler(current)
			return true
		},
	}

	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, other := range s.subs {
			if other == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// ObserveOnce returns selector's current value synchronously, without
// registering a subscription — observe_once(selector) -> value.
func ObserveOnce[T any](s *Store, selector func(*state.State) T) T {
	return selector(s.State())
}

// notifySubscribers re-evaluates every live selector after a dispatch
// has fully propagated through the chain, firing handlers for any
// whose output changed.
func (s *Store) notifySubscribers() {
	s.subsMu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	st := s.state
	for _, sub := range subs {
		sub.check(st)
	}
}
