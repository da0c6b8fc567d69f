// Package engine is the audio-thread orchestrator: it owns
// the real-time worker pool, turns the control thread's mixer/fx/
// external state into a compiled processor graph whenever an
// audio-graph-affecting change happens, and drives one Process call
// per sound-card period against whichever compiled graph is current.
package engine

import (
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dkotrev/piejam-engine-go/internal/engine/dag"
	"github.com/dkotrev/piejam-engine-go/internal/engine/graph"
	"github.com/dkotrev/piejam-engine-go/internal/engine/worker"
	"github.com/dkotrev/piejam-engine-go/internal/fxmodule"
	"github.com/dkotrev/piejam-engine-go/internal/midi"
	"github.com/dkotrev/piejam-engine-go/internal/state"
)

// Config configures one Engine for the lifetime of the process; none
// of these values change without restarting the sound-card backend
// (the device-negotiation Non-goal: the engine itself never
// renegotiates a running stream's parameters).
type Config struct {
	// BufferSize is the period size in samples every compiled graph is
	// sized for.
	BufferSize int
	// InputChannels/OutputChannels are the sound card's physical
	// channel counts; the engine builds one graph.InputProcessor/
	// graph.OutputProcessor per physical channel regardless of how
	// many are actually routed to a mixer channel this period.
	InputChannels  int
	OutputChannels int
	// Workers is the size of the real-time worker pool backing the
	// multi-threaded executor; 0 means run every period
	// single-threaded on the calling goroutine.
	Workers int
	// NumCPU is the logical CPU count [rtthread.RoundRobinCPU] pins
	// workers across.
	NumCPU int
	// WorkerPriority is the best-effort real-time scheduling priority
	// applied to each worker thread.
	WorkerPriority int
	// EventArenaReserve sizes each worker's per-period EventBuffer pool
	// reservation (internal/engine/graph.EventMemory).
	EventArenaReserve int
}

// runningGraph is one compiled, swappable snapshot of the audio
// graph: the executor plus the physical-channel I/O processors the
// Process step copies sound-card frames through.
type runningGraph struct {
	exec    dag.Executor
	inputs  map[int]*graph.InputProcessor
	outputs map[int]*graph.OutputProcessor
}

// Engine is the orchestrator. One Engine exists per running process,
// shared between the control thread (which calls Rebuild, indirectly,
// via store.RebuildMiddleware) and the sound-card backend's real-time
// callback thread (which calls Process).
type Engine struct {
	cfg  Config
	pool *worker.Pool
	fx   *fxmodule.Registry

	current atomic.Pointer[runningGraph]

	// smoothers/touched/taps are rebuild-thread-only bookkeeping (the
	// control thread is the only caller of Rebuild, so these need no
	// synchronization of their own): the set of persistent ramp/meter
	// objects kept alive across graph rebuilds so a rebuild landing
	// mid-ramp or mid-meter-accumulation never resets it.
	smoothers map[gainKey]*graph.SmoothProcessor
	touched   map[gainKey]bool
	taps      map[gainKey]*fxmodule.StreamTap
	fxProcs   map[gainKey]graph.Processor

	// midiQueue, when set before the first Rebuild, gets a drain
	// processor in every built graph; midiLearn additionally wires the learn
	// capture processor while the user is learning. learnProc is one
	// long-lived instance so a capture isn't lost to a rebuild that
	// lands mid-learn.
	midiQueue *midi.Queue
	midiLearn atomic.Bool
	learnProc *midi.LearnProcessor

	// lastNodeCount/lastEdgeCount describe the most recent build, for
	// diagnostics and the structural-reuse check that a rebuild from
	// unchanged state produces a graph of identical shape.
	lastNodeCount int
	lastEdgeCount int
}

// New builds an Engine with its own worker pool, ready for Rebuild to
// be called once with the process's initial state before the
// sound-card backend starts calling Process.
func New(cfg Config, fx *fxmodule.Registry) *Engine {
	e := &Engine{
		cfg:       cfg,
		fx:        fx,
		smoothers: make(map[gainKey]*graph.SmoothProcessor),
		touched:   make(map[gainKey]bool),
		taps:      make(map[gainKey]*fxmodule.StreamTap),
		fxProcs:   make(map[gainKey]graph.Processor),
	}
	if cfg.Workers > 0 {
		e.pool = worker.NewPool(cfg.Workers, cfg.NumCPU, cfg.WorkerPriority)
	}
	return e
}

// SetMIDIInput attaches the SPSC queue the MIDI input thread fills;
// must be called before the first Rebuild. Graphs built afterwards
// include the per-period drain processor.
func (e *Engine) SetMIDIInput(q *midi.Queue) {
	e.midiQueue = q
	e.learnProc = midi.NewLearnProcessor()
}

// SetMIDILearn toggles whether the next rebuild wires the learn
// capture processor; the caller follows up with a dispatch that
// triggers the rebuild itself.
func (e *Engine) SetMIDILearn(enabled bool) {
	e.midiLearn.Store(enabled)
}

// LearnedCC returns a MIDI event captured while learning was active,
// if any, and clears the capture slot.
func (e *Engine) LearnedCC() (midi.Event, bool) {
	if e.learnProc == nil {
		return midi.Event{}, false
	}
	return e.learnProc.Learned()
}

// Close stops the worker pool. Must only be called once the
// sound-card backend has stopped calling Process.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// workers returns the dag.Worker slice Compile expects, or nil for
// the single-threaded executor.
func (e *Engine) workers() []dag.Worker {
	if e.pool == nil {
		return nil
	}
	ws := e.pool.Workers()
	out := make([]dag.Worker, len(ws))
	for i, w := range ws {
		out[i] = w
	}
	return out
}

// Process runs one audio period: copies in's physical input channels
// into this period's graph, runs the compiled scheduler, then copies
// every physical output channel back out to out. Both slices are
// indexed by physical channel number, sized to cfg.InputChannels/
// cfg.OutputChannels respectively; either may contain fewer non-nil
// entries than that if the sound card backend opened fewer channels
// than the engine was configured for.
//
// Safe to call concurrently with Rebuild: Process only ever
// dereferences whichever runningGraph [atomic.Pointer.Load] hands it
// at the top of the call, so a rebuild landing mid-period is visible
// on the very next Process call, never torn mid-call.
func (e *Engine) Process(in, out [][]float32) time.Duration {
	rg := e.current.Load()
	if rg == nil {
		return 0
	}

	for idx, buf := range in {
		if p, ok := rg.inputs[idx]; ok && buf != nil {
			copy(p.Buffer(), buf)
		}
	}

	elapsed := rg.exec.Run(e.cfg.BufferSize)

	for idx, buf := range out {
		if buf == nil {
			continue
		}
		if p, ok := rg.outputs[idx]; ok {
			copy(buf, p.Buffer())
		} else {
			for i := range buf {
				buf[i] = 0
			}
		}
	}

	return elapsed
}

// Rebuild implements store.RebuildHook: it runs on the control
// thread, after a dispatch that incremented AudioGraphUpdateCount, and
// atomically publishes a freshly compiled graph for Process to pick
// up on its next call. It never blocks the audio thread: the previous
// runningGraph, if any, is simply dropped once nothing references
// it; the garbage collector only reclaims it after the audio thread
// has let go of its pointer, which is the one-period grace the swap
// needs.
func (e *Engine) Rebuild(s *state.State) {
	rg, err := e.build(s)
	if err != nil {
		log.Error("engine: rebuild failed, keeping previous graph", "err", err)
		return
	}
	e.prune()
	e.current.Store(rg)
}
