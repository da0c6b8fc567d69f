package store

import (
	"github.com/charmbracelet/log"

	"github.com/dkotrev/piejam-engine-go/internal/state"
)

// ThunkMiddleware runs callable actions: if a is a [Thunk], run it with the
// store's get-state/dispatch and stop — a thunk never reaches the
// reducer itself, only whatever concrete actions it dispatches do.
func ThunkMiddleware(s *Store, a Action, next NextFunc) error {
	if t, ok := a.(Thunk); ok {
		t(s.getState, s.Dispatch)
		return nil
	}
	return next(a)
}

// RebuildHook is called by [RebuildMiddleware] whenever a dispatch
// increased state's audio_graph_update_count, on the control thread,
// after the reducer has run. The engine orchestrator (internal/engine)
// supplies this.
type RebuildHook func(s *state.State)

// RebuildMiddleware drives the engine: it observes
// state.AudioGraphUpdateCount before and after the rest of the chain
// (including the terminal reducer) runs, and invokes hook on an
// increase. Placed before the reducer in the chain's construction
// order but, because middlewares are composed as nested closures,
// its own code after next(a) still runs after the reducer — this
// stage responds to a change the reducer it wraps just made.
func RebuildMiddleware(hook RebuildHook) Middleware {
	return func(s *Store, a Action, next NextFunc) error {
		before := s.state.AudioGraphUpdateCount
		err := next(a)
		if hook != nil && s.state.AudioGraphUpdateCount != before {
			hook(s.state)
		}
		return err
	}
}

// MidiControlMiddleware drops any action tagged as MIDI-originated
// while a session load is in flight: a session load always wins over
// an in-flight MIDI-learn/assign dispatch rather than racing with it.
type MidiOriginated interface {
	FromMIDI() bool
}

func MidiControlMiddleware(s *Store, a Action, next NextFunc) error {
	if mo, ok := a.(MidiOriginated); ok && mo.FromMIDI() && s.midiSuppressed() {
		log.Debug("store: dropping MIDI-originated action during session load")
		return nil
	}
	return next(a)
}

// ReducerMiddleware is the terminal stage: it applies a to state via
// [state.Reduce]. It never calls next — there is nothing after the
// reducer in the chain.
func ReducerMiddleware(s *Store, a Action, _ NextFunc) error {
	return state.Reduce(s.state, a)
}

// DefaultMiddlewares returns the standard stage order. The exception
// guard, thread delegation, and queueing are implemented directly by
// [Store.Dispatch] rather than as chain stages (see its doc comment).
// persistence is the session-load/save stage; rebuild is
// [RebuildMiddleware]'s hook, typically the engine orchestrator's
// Rebuild method.
func DefaultMiddlewares(persistence Middleware, rebuild RebuildHook) []Middleware {
	return []Middleware{
		ThunkMiddleware,
		persistence,
		RebuildMiddleware(rebuild),
		MidiControlMiddleware,
		ReducerMiddleware,
	}
}
