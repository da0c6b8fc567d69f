// Package id provides strongly-typed, monotonically-increasing opaque
// identifiers for every long-lived engine entity (mixer channels, fx
// modules, external devices, parameters, audio streams, strings,
// colors, LADSPA instances).
//
// Identifiers are cheap to copy, compare and hash, and never recycle
// while the process is alive: a [Generator] only ever increments.
package id

import "sync/atomic"

// ID is the underlying representation shared by every typed
// identifier. Zero is reserved to mean "no id" (see [ID.Valid]).
type ID uint64

// Valid reports whether id was actually issued by a [Generator].
func (i ID) Valid() bool {
	return i != 0
}

// Generator issues monotonically increasing [ID] values. The zero
// value is ready to use and safe for concurrent use by multiple
// goroutines (the control thread is the only writer in practice, but
// nothing about a [Generator] assumes that).
type Generator struct {
	next atomic.Uint64
}

// Next returns a fresh, never-before-issued id.
func (g *Generator) Next() ID {
	return ID(g.next.Add(1))
}

// Typed wraps ID with a phantom category tag so the compiler keeps
// identifier spaces (e.g. channels vs. fx modules) from being mixed up
// by accident, while the store can still key one typed map per
// category cheaply.
type Typed[Tag any] struct {
	value ID
}

// New wraps a raw [ID] as a [Typed] identifier. Callers normally go
// through a category-specific Generator wrapper instead of calling
// this directly.
func New[Tag any](v ID) Typed[Tag] {
	return Typed[Tag]{value: v}
}

// Valid reports whether the wrapped id was actually issued.
func (t Typed[Tag]) Valid() bool {
	return t.value.Valid()
}

// Raw returns the untyped underlying id, e.g. for logging or storage
// in a homogeneous map keyed by category plus raw id.
func (t Typed[Tag]) Raw() ID {
	return t.value
}

// TypedGenerator issues identifiers of one specific category.
type TypedGenerator[Tag any] struct {
	gen Generator
}

// Next returns a fresh, category-tagged identifier.
func (g *TypedGenerator[Tag]) Next() Typed[Tag] {
	return New[Tag](g.gen.Next())
}
