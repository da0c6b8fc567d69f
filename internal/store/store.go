// Package store implements the Redux-like reducer loop: a
// single mutable [state.State] owned by the control thread, mutated
// only by dispatching actions through an ordered middleware chain.
// Subscribers register a pure selector and are notified on the
// control thread whenever that selector's output changes — the sole
// bridge to the GUI.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/dkotrev/piejam-engine-go/internal/state"
)

// Action is anything dispatched through the store: a [state.Reducible]
// value, a [Thunk], or a plain value some middleware stage intercepts
// (persistence/recorder actions).
type Action any

// DispatchFunc is the signature every thunk and middleware stage sees.
type DispatchFunc func(Action)

// GetStateFunc returns the store's current state snapshot (the root
// pointer; callers read through it, never mutate it directly — all
// mutation goes through Dispatch).
type GetStateFunc func() *state.State

// Thunk is a callable action. A thunk is executed inline by the
// thunk middleware and never itself reaches the reducer.
type Thunk func(get GetStateFunc, dispatch DispatchFunc)

// ErrorAction carries an error a thunk reports; the refresh thunks
// dispatch one when a backend rescan fails. It carries no
// Reduce method: nothing in state changes because of an error, the
// action only exists so a subscriber can surface it to the GUI/log.
type ErrorAction struct {
	Err error
}

// NextFunc advances an action to the following middleware stage,
// surfacing whatever error the rest of the chain produced.
type NextFunc func(Action) error

// Middleware is one stage of the chain. Handle may run side effects
// before and/or after calling next — the "onion" composition that
// lets the audio-engine-rebuild stage observe the
// state's counters both before and after the reducer (the final,
// innermost stage) has run.
type Middleware func(s *Store, a Action, next NextFunc) error

// Store owns the state tree, the middleware pipeline, and the
// subscriber list. Exactly one Store exists per engine process.
type Store struct {
	mu    sync.Mutex
	state *state.State

	pipeline func(a Action)

	queue      []Action
	processing bool

	// midiSuppress is set for
	// the duration of a session load so MidiControlMiddleware can
	// drop any in-flight MIDI-originated action rather than race a
	// just-loaded session.
	midiSuppress atomic.Bool

	subsMu sync.Mutex
	subs   []*subscription
}

// SuppressMIDI disables the MIDI-to-parameter dispatch path; paired
// with ResumeMIDI around a session load.
func (s *Store) SuppressMIDI() { s.midiSuppress.Store(true) }

// ResumeMIDI re-enables the MIDI-to-parameter dispatch path.
func (s *Store) ResumeMIDI() { s.midiSuppress.Store(false) }

func (s *Store) midiSuppressed() bool { return s.midiSuppress.Load() }

// New builds a Store over an initial state, with middlewares applied
// in the given order (innermost/terminal last). Callers normally pass
// the stack built by [DefaultMiddlewares].
func New(initial *state.State, middlewares ...Middleware) *Store {
	s := &Store{state: initial}
	s.pipeline = s.compose(middlewares)
	return s
}

// compose builds the onion: calling the resulting func runs
// middlewares[0] first, which calls next to reach middlewares[1], and
// so on; the last middleware's "next" is a no-op (it is expected to be
// the terminal reducer stage, which never calls next).
func (s *Store) compose(middlewares []Middleware) func(Action) {
	chain := NextFunc(func(Action) error { return nil })
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw := middlewares[i]
		next := chain
		chain = func(a Action) error {
			return mw(s, a, next)
		}
	}
	return func(a Action) {
		if err := chain(a); err != nil {
			s.notifyError(err)
		}
	}
}

func (s *Store) notifyError(err error) {
	// Errors surfaced by a middleware (not a reducer panic, which
	// processOne's own recover handles) are logged and dropped per
	// the persistence/IO error policy: the originating action is
	// dropped, state remains unchanged.
	log.Error("store: dispatch error", "err", err)
}

// State returns the current state snapshot. Safe to call from any
// goroutine; the returned pointer's own fields are individually boxed
// (internal/box) so concurrent reads never observe a torn write.
func (s *Store) State() *state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) getState() *state.State {
	return s.State()
}

// Dispatch sends an action through the middleware chain. There is no
// cheap "is this goroutine the control thread" check in Go, so
// instead of routing off-thread callers through a separate
// thread-delegate step, every
// Dispatch call — whether it is the GUI, the MIDI thread, or a
// reducer calling Dispatch recursively from inside a thunk — contends
// for the same queue. Whichever call arrives first becomes the one
// processing goroutine for as long as the queue keeps draining; every
// other call, including same-goroutine recursive ones, is appended
// and returns immediately. Two consequences: recursive dispatches from the
// currently-processing action are never reentrant, and cross-goroutine
// dispatches interleave in arrival order rather than a documented
// priority.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	if s.processing {
		s.queue = append(s.queue, a)
		s.mu.Unlock()
		return
	}
	s.processing = true
	s.mu.Unlock()

	s.processOne(a)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.processing = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.processOne(next)
	}
}

// processOne runs a through the full middleware pipeline, recovering
// any escaped panic and logging it rather than letting it propagate;
// no [ErrorAction] is made for it and the action is never retried. A
// panic here is always a control-thread programming
// error; it is logged, not
// re-dispatched, to avoid an error-handling action itself panicking
// forever.
func (s *Store) processOne(a Action) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("store: panic handling %T: %v", a, r)
			log.Error("store: recovered panic", "err", err)
		}
	}()

	s.pipeline(a)
	s.notifySubscribers()
}
