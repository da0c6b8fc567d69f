package midi

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state"
)

// AssignKey identifies one learnable control surface: a channel plus
// either a CC number or the channel's pitch-bend wheel.
type AssignKey struct {
	Channel    int
	Kind       EventKind
	Controller int
}

// KeyOf extracts the assignment identity of an incoming event.
func KeyOf(e Event) AssignKey {
	k := AssignKey{Channel: e.Channel, Kind: e.Kind}
	if e.Kind == CC {
		k.Controller = e.Controller
	}
	return k
}

// parameterChange wraps a reducer action so the MIDI-control
// middleware can recognize (and, during a session load, drop) it —
// it satisfies internal/store's MidiOriginated interface without this
// package importing the store.
type parameterChange struct {
	inner state.Reducible
}

func (p parameterChange) Reduce(s *state.State) error { return p.inner.Reduce(s) }
func (parameterChange) FromMIDI() bool                { return true }

// Dispatcher owns the control-thread half of MIDI control: the
// (channel, cc) -> parameter assignment table, the learn handshake,
// and the conversion of each event's 7/14-bit value into the target
// parameter's own domain before dispatching the ordinary
// set-parameter action. Everything here runs on the MIDI input
// thread's drain loop, handing off to the store's dispatch (which is
// safe from any goroutine).
type Dispatcher struct {
	params   *param.Parameters
	dispatch func(any)
	queue    *Queue

	mu       sync.Mutex
	assigns  map[AssignKey]param.AnyID
	learning bool
	learnTo  param.AnyID
}

// NewDispatcher builds a dispatcher feeding q (the audio thread's
// per-period drain) and dispatch (the store).
func NewDispatcher(params *param.Parameters, q *Queue, dispatch func(any)) *Dispatcher {
	return &Dispatcher{
		params:   params,
		dispatch: dispatch,
		queue:    q,
		assigns:  make(map[AssignKey]param.AnyID),
	}
}

// BeginLearn arms the learn handshake: the next incoming event is
// bound to target instead of being converted.
func (d *Dispatcher) BeginLearn(target param.AnyID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.learning = true
	d.learnTo = target
}

// CancelLearn disarms a pending learn without binding anything.
func (d *Dispatcher) CancelLearn() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.learning = false
	d.learnTo = param.AnyID{}
}

// Assign binds key to target directly, the path a loaded session's
// persisted MIDI assignments take.
func (d *Dispatcher) Assign(key AssignKey, target param.AnyID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assigns[key] = target
}

// Unassign removes a binding.
func (d *Dispatcher) Unassign(key AssignKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.assigns, key)
}

// Assignments returns a snapshot of the current binding table, e.g.
// for session save.
func (d *Dispatcher) Assignments() map[AssignKey]param.AnyID {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[AssignKey]param.AnyID, len(d.assigns))
	for k, v := range d.assigns {
		out[k] = v
	}
	return out
}

// Run is the MIDI input thread's drain loop: it blocks on src
// until the channel closes, forwarding every event both into the
// audio thread's queue and through the assignment table.
func (d *Dispatcher) Run(src <-chan Event) {
	for e := range src {
		d.Handle(e)
	}
}

// Handle processes one incoming event.
func (d *Dispatcher) Handle(e Event) {
	if d.queue != nil {
		if !d.queue.Push(e) {
			log.Warn("midi: audio queue full, dropping event")
		}
	}

	d.mu.Lock()
	if d.learning {
		key := KeyOf(e)
		d.assigns[key] = d.learnTo
		d.learning = false
		target := d.learnTo
		d.learnTo = param.AnyID{}
		d.mu.Unlock()
		log.Info("midi: learned assignment",
			"channel", key.Channel, "controller", key.Controller, "kind", int(key.Kind))
		d.apply(target, e)
		return
	}
	target, ok := d.assigns[KeyOf(e)]
	d.mu.Unlock()

	if ok {
		d.apply(target, e)
	}
}

// apply converts e's value into target's domain and dispatches the
// ordinary set-parameter action, wrapped so the store can tell it
// came from MIDI.
func (d *Dispatcher) apply(target param.AnyID, e Event) {
	n := e.Normalized()
	switch {
	case target.Float.Valid():
		slot := d.params.Floats.Find(target.Float)
		if slot == nil {
			return
		}
		d.dispatch(parameterChange{inner: state.SetFloatParameterValue{
			ID: target.Float, Value: slot.FromNormalized(n),
		}})
	case target.Bool.Valid():
		d.dispatch(parameterChange{inner: state.SetBoolParameterValue{
			ID: target.Bool, Value: n >= 0.5,
		}})
	case target.Int.Valid():
		slot := d.params.Ints.Find(target.Int)
		if slot == nil {
			return
		}
		d.dispatch(parameterChange{inner: state.SetIntParameterValue{
			ID: target.Int, Value: slot.FromNormalized(n),
		}})
	case target.Enum.Valid():
		slot := d.params.Enums.Find(target.Enum)
		if slot == nil {
			return
		}
		d.dispatch(parameterChange{inner: state.SetEnumParameterValue{
			ID: target.Enum, Value: slot.FromNormalized(n),
		}})
	}
}
