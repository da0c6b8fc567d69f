// Package param implements the engine's value cells and parameter
// store: a parameter is a (descriptor, value cell) pair. The
// descriptor is immutable after creation; the value cell is a
// heap-allocated single-writer/many-reader slot the control thread
// writes and any number of audio-thread processors read without
// locking.
package param

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/dkotrev/piejam-engine-go/internal/id"
)

// Value is the set of scalar domains a parameter may hold: bool, int
// (including enums, which are int-backed with a string table), or
// float32/64. All of them fit in a single machine word, which is what
// makes lock-free value cells possible.
type Value interface {
	bool | int | float32 | float64
}

// toFloat bridges every Value domain into float64 so range checks and
// normalization can be written once; bool maps to 0/1.
func toFloat[T Value](v T) float64 {
	switch x := any(v).(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

// fromFloat is toFloat's inverse; bool thresholds at 0.5.
func fromFloat[T Value](f float64) T {
	var zero T
	switch any(zero).(type) {
	case bool:
		return any(f >= 0.5).(T)
	case int:
		return any(int(math.Round(f))).(T)
	case float32:
		return any(float32(f)).(T)
	case float64:
		return any(f).(T)
	}
	return zero
}

func isBool[T Value]() bool {
	var zero T
	_, ok := any(zero).(bool)
	return ok
}

// Flags is a bitset of parameter behaviors that middlewares and
// reducers key off without needing to know the parameter's specific
// purpose.
type Flags uint8

const (
	// Bipolar marks a parameter whose default sits at the midpoint of
	// its range (e.g. pan/balance) rather than at min.
	Bipolar Flags = 1 << iota
	// AudioGraphAffecting marks a parameter whose value changing
	// requires the engine orchestrator to rebuild the audio graph;
	// the reducer increments state's audio-graph counter whenever a
	// parameter carrying this flag changes.
	AudioGraphAffecting
	// SoloStateAffecting marks a parameter that participates in solo
	// bookkeeping; the store increments solo_state_update_count
	// when it changes.
	SoloStateAffecting
)

// Has reports whether f contains every bit in other.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// Descriptor is the immutable-after-creation half of a parameter:
// name, domain bounds, optional string/normalization conversions, and
// behavior flags.
type Descriptor[T Value] struct {
	Name    string
	Min     T
	Max     T
	Default T
	Flags   Flags

	// ValueToString renders a value for display; nil means "use the
	// domain's natural formatting".
	ValueToString func(T) string

	// ToNormalized maps a domain value into [0,1]. Must clamp.
	ToNormalized func(Descriptor[T], T) float64

	// FromNormalized maps a normalized [0,1] value back into the
	// domain's [Min,Max]. Must satisfy
	// FromNormalized(ToNormalized(v)) ≈ v within 1e-5.
	FromNormalized func(Descriptor[T], float64) T
}

// InRange reports whether v lies within [Min, Max], the invariant
// every stored parameter value must satisfy. Bool parameters
// have no meaningful bounds; both values are always in range.
func (d Descriptor[T]) InRange(v T) bool {
	if isBool[T]() {
		return true
	}
	return toFloat(v) >= toFloat(d.Min) && toFloat(v) <= toFloat(d.Max)
}

func (d Descriptor[T]) String(v T) string {
	if d.ValueToString != nil {
		return d.ValueToString(v)
	}
	return fmt.Sprintf("%v", v)
}

// normalize applies d.ToNormalized if present, else a linear mapping,
// and clamps into [0,1] either way.
func (d Descriptor[T]) normalize(v T) float64 {
	var n float64
	switch {
	case d.ToNormalized != nil:
		n = d.ToNormalized(d, v)
	case isBool[T]():
		n = toFloat(v)
	default:
		lo, hi := toFloat(d.Min), toFloat(d.Max)
		if hi == lo {
			n = 0
		} else {
			n = (toFloat(v) - lo) / (hi - lo)
		}
	}
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// Normalize exposes [Descriptor.normalize] to callers outside this
// package that need a descriptor's mapping without going through a
// live [Slot] — e.g. the engine orchestrator building a
// [graph.SmoothProcessor]'s look-up table ahead of any value having
// been set.
func (d Descriptor[T]) Normalize(v T) float64 {
	return d.normalize(v)
}

// Denormalize exposes [Descriptor.denormalize] to callers outside this
// package, for the same reason as [Descriptor.Normalize].
func (d Descriptor[T]) Denormalize(n float64) T {
	return d.denormalize(n)
}

func (d Descriptor[T]) denormalize(n float64) T {
	if d.FromNormalized != nil {
		return d.FromNormalized(d, n)
	}
	if isBool[T]() {
		return fromFloat[T](n)
	}
	lo, hi := toFloat(d.Min), toFloat(d.Max)
	return fromFloat[T](lo + n*(hi-lo))
}

// Cell is the heap-allocated single-writer/many-reader value slot.
// Writes replace the pointer with release semantics; reads observe
// the latest published value with acquire semantics. Values are
// scalars so torn reads are impossible regardless of which pointer a
// concurrent reader happens to load.
type Cell[T Value] struct {
	ptr atomic.Pointer[T]
}

func newCell[T Value](initial T) *Cell[T] {
	c := &Cell[T]{}
	c.ptr.Store(&initial)
	return c
}

// Get returns the cell's current value. Safe to call from any thread,
// including the audio thread, without allocating or blocking.
func (c *Cell[T]) Get() T {
	return *c.ptr.Load()
}

// Set publishes a new value. Only the control thread is expected to
// call this; concurrent readers observe it on their next Get.
func (c *Cell[T]) Set(v T) {
	c.ptr.Store(&v)
}

// CachedRead is a cheaply-cloneable read handle captured once (e.g.
// when a processor is built into the graph) and reused every period
// without re-resolving the parameter id through the store.
type CachedRead[T Value] struct {
	cell *Cell[T]
}

// Get reads the cell's current value through the cached handle.
func (c CachedRead[T]) Get() T {
	if c.cell == nil {
		var zero T
		return zero
	}
	return c.cell.Get()
}

// Slot is a (descriptor, value cell) pair as it lives inside a
// [Store].
type Slot[T Value] struct {
	descriptor Descriptor[T]
	cell       *Cell[T]
}

func newSlot[T Value](d Descriptor[T]) *Slot[T] {
	return &Slot[T]{descriptor: d, cell: newCell(d.Default)}
}

// Param returns the slot's immutable descriptor.
func (s *Slot[T]) Param() Descriptor[T] {
	return s.descriptor
}

// Get returns the slot's current value.
func (s *Slot[T]) Get() T {
	return s.cell.Get()
}

// Set writes a new value into the slot's cell. Callers are
// responsible for range-checking against the descriptor first (the
// "set parameter" reducer asserts this — see internal/state).
func (s *Slot[T]) Set(v T) {
	s.cell.Set(v)
}

// Cached returns a cheaply-cloneable read handle for the slot's
// value, the handle a [graph.Processor] captures at graph-build time.
func (s *Slot[T]) Cached() CachedRead[T] {
	return CachedRead[T]{cell: s.cell}
}

// Normalized returns the slot's current value mapped into [0,1].
func (s *Slot[T]) Normalized() float64 {
	return s.descriptor.normalize(s.Get())
}

// FromNormalized maps n in [0,1] into this slot's domain.
func (s *Slot[T]) FromNormalized(n float64) T {
	return s.descriptor.denormalize(n)
}

// Store is a typed, identified collection of parameter slots for one
// category (Tag), all sharing one scalar value domain T. Callers
// compose the four concrete categories (bool, int, enum(int), float)
// into a parameter store — see [Parameters].
type Store[Tag any, T Value] struct {
	slots map[id.Typed[Tag]]*Slot[T]
}

// Emplace creates a new slot for id from descriptor d and returns it.
// Panics if id is already present — emplacing an existing id is a
// programming bug, not a runtime condition
// to recover from.
func (s *Store[Tag, T]) Emplace(pid id.Typed[Tag], d Descriptor[T]) *Slot[T] {
	if s.slots == nil {
		s.slots = make(map[id.Typed[Tag]]*Slot[T])
	}
	if _, exists := s.slots[pid]; exists {
		panic(fmt.Sprintf("param: id %v already registered", pid.Raw()))
	}
	slot := newSlot(d)
	s.slots[pid] = slot
	return slot
}

// Remove deletes id's slot, if any.
func (s *Store[Tag, T]) Remove(pid id.Typed[Tag]) {
	delete(s.slots, pid)
}

// Find returns id's slot, or nil if not present.
func (s *Store[Tag, T]) Find(pid id.Typed[Tag]) *Slot[T] {
	return s.slots[pid]
}

// At returns id's slot. Panics if absent; callers that expect absence
// should use [Store.Find].
func (s *Store[Tag, T]) At(pid id.Typed[Tag]) *Slot[T] {
	slot, ok := s.slots[pid]
	if !ok {
		panic(fmt.Sprintf("param: unknown id %v", pid.Raw()))
	}
	return slot
}

// Len reports how many parameters of this category are registered.
func (s *Store[Tag, T]) Len() int {
	return len(s.slots)
}
