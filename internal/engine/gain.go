package engine

import (
	"github.com/dkotrev/piejam-engine-go/internal/engine/graph"
	"github.com/dkotrev/piejam-engine-go/internal/fxmodule"
	"github.com/dkotrev/piejam-engine-go/internal/id"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/stream"
)

// gainKey identifies one persistent ramp, or one persistent metering
// tap, across graph rebuilds — e.g. "this channel's volume smoother"
// or "the left pan gain of this channel" — so rebuilding the graph
// after an unrelated action (a new channel, a routing change) doesn't
// snap every other channel's ramp back to its raw value, or reset its
// meter, and produce an audible jump or a flickering level reading.
// extra distinguishes keys that need two entity ids (an aux send is
// keyed by both its source and destination channel).
type gainKey struct {
	kind  string
	raw   id.ID
	extra id.ID
}

// smoother returns the cached [graph.SmoothProcessor] for key, or
// builds and caches a fresh one seeded at seed. It also records key as
// touched this rebuild, so [Engine.prune] can drop entries for
// channels/modules that no longer exist.
func (e *Engine) smoother(key gainKey, lut []float32, seed float32) *graph.SmoothProcessor {
	e.touched[key] = true
	if sm, ok := e.smoothers[key]; ok {
		return sm
	}
	sm := graph.NewSmoothProcessor(lut, seed)
	e.smoothers[key] = sm
	return sm
}

// channelTap returns the cached metering tap for key, building one the
// first time it's asked for.
func (e *Engine) channelTap(key gainKey) *fxmodule.StreamTap {
	e.touched[key] = true
	if tap, ok := e.taps[key]; ok {
		return tap
	}
	tap := &fxmodule.StreamTap{Ring: stream.NewRingBuffer(4096), Level: &stream.Level{}}
	e.taps[key] = tap
	return tap
}

// prune drops every smoother/tap not touched during the rebuild just
// completed, and resets the touched set for the next one.
func (e *Engine) prune() {
	for key := range e.smoothers {
		if !e.touched[key] {
			delete(e.smoothers, key)
		}
	}
	for key := range e.taps {
		if !e.touched[key] {
			delete(e.taps, key)
		}
	}
	for key := range e.fxProcs {
		if !e.touched[key] {
			delete(e.fxProcs, key)
		}
	}
	e.touched = make(map[gainKey]bool, len(e.smoothers)+len(e.taps)+len(e.fxProcs))
}

// boolSource adapts a bool parameter's cached read to [graph.ValueSource].
type boolSource struct {
	c param.CachedRead[bool]
}

func (s boolSource) Get() float64 {
	if s.c.Get() {
		return 1
	}
	return 0
}

// funcSource adapts a plain closure to [graph.ValueSource], used for
// values the orchestrator derives itself rather than reading straight
// from one parameter cell (the per-side pan-law splits).
type funcSource func() float64

func (f funcSource) Get() float64 { return f() }
