// Package box implements a copy-on-write wrapper for values that are
// meant to be cheaply copied into pure state (names, color tables,
// parameter maps, fx-chain vectors) while still comparing by value at
// the aggregate level.
//
// A [Box] holds a shared immutable pointer. Assignment replaces the
// pointer; a scoped [Box.Lock] deep-copies the value once and exposes
// a mutable reference until the lock is released. Equality between
// two boxes of comparable content is defined structurally, but two
// unmodified boxes also compare equal by pointer without ever walking
// their contents, so diff-checks in subscriber/middleware code are
// O(pointer compare) when nothing changed.
package box

// Box is a cheap-to-copy handle to an immutable value of type T.
type Box[T any] struct {
	value *T
}

// New wraps v in a fresh, independently owned [Box].
func New[T any](v T) Box[T] {
	return Box[T]{value: &v}
}

// Get returns the current value. Safe to call concurrently with other
// reads; never observes a partially written value because the
// pointer itself is only ever replaced wholesale.
func (b Box[T]) Get() T {
	if b.value == nil {
		var zero T
		return zero
	}
	return *b.value
}

// Set replaces the boxed value outright.
func (b *Box[T]) Set(v T) {
	b.value = &v
}

// WriteLock is a scoped handle returned by [Box.Lock]. It must be
// closed with [WriteLock.Close] (typically via defer) to publish the
// mutation.
type WriteLock[T any] struct {
	box   *Box[T]
	value T
	done  bool
}

// Lock deep-copies the current value once and returns a handle that
// exposes it for in-place mutation. The box is not updated until
// [WriteLock.Close] runs, so concurrent readers keep observing the
// pre-lock value for the whole critical section.
func (b *Box[T]) Lock() *WriteLock[T] {
	return &WriteLock[T]{box: b, value: b.Get()}
}

// Value returns a pointer to the (already deep-copied) value being
// mutated.
func (w *WriteLock[T]) Value() *T {
	return &w.value
}

// Close publishes the mutated value back into the box. Calling it
// more than once is a no-op.
func (w *WriteLock[T]) Close() {
	if w.done {
		return
	}
	w.box.Set(w.value)
	w.done = true
}

// SamePointer reports whether the two boxes currently share the same
// underlying value (pointer identity), true whenever neither has been
// mutated since one was copied from the other. This is the O(1) fast
// path used before falling back to structural comparison.
func (b Box[T]) SamePointer(other Box[T]) bool {
	return b.value == other.value
}

// Equal reports value equality between two boxes of comparable
// content, short-circuiting on pointer identity first so that an
// untouched box never pays for a structural compare. This is what
// subscriber selectors in internal/store use to decide whether to
// notify.
func Equal[T comparable](a, b Box[T]) bool {
	if a.SamePointer(b) {
		return true
	}
	return a.Get() == b.Get()
}
