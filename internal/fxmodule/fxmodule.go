// Package fxmodule is the registry/factory for the six built-in,
// non-LADSPA fx kinds (filter, tuner, scope, spectrum, utility,
// dual_pan). Concrete DSP algorithms are deliberately out of scope:
// each kind is a [graph.Processor] that satisfies the processor
// contract and exercises the parameter/event/stream shape a real
// implementation would need, not a faithful audio algorithm.
package fxmodule

import (
	"github.com/dkotrev/piejam-engine-go/internal/engine/graph"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
	"github.com/dkotrev/piejam-engine-go/internal/stream"
)

// StreamTap bundles the ring buffer and level accumulator a
// metering-capable module (tuner/scope/spectrum, or a channel's own
// output stage) publishes into, reachable by its [fx.Module.Streams]
// id across graph rebuilds.
type StreamTap struct {
	Ring  *stream.RingBuffer
	Level *stream.Level
}

func newStreamTap() *StreamTap {
	return &StreamTap{Ring: stream.NewRingBuffer(4096), Level: &stream.Level{}}
}

// Registry mints fx modules, their parameters, and the processors
// behind them. One Registry is shared by the whole engine so a
// module's stream tap stays reachable by id across rebuilds instead
// of being recreated (and losing accumulated level/ring state) every
// time the audio graph is rebuilt.
type Registry struct {
	params    *param.Parameters
	streamGen stream.IDGenerator
	streams   map[stream.ID]*StreamTap
	moduleGen fx.ModuleIDGenerator
}

// NewRegistry builds an empty registry bound to the engine's one
// parameter store.
func NewRegistry(params *param.Parameters) *Registry {
	return &Registry{params: params, streams: make(map[stream.ID]*StreamTap)}
}

// NextModuleID mints a fresh module id for the caller to pair with
// whichever New* module this registry just built, before dispatching
// an InsertInternalFxModule/InsertLadspaFxModule action — minting
// happens here rather than in internal/state so every module id in a
// running process, internal or LADSPA, comes from one generator.
func (r *Registry) NextModuleID() fx.ModuleID {
	return r.moduleGen.Next()
}

func (r *Registry) registerStream() stream.ID {
	id := r.streamGen.Next()
	r.streams[id] = newStreamTap()
	return id
}

// Tap returns the ring buffer/level pair behind a stream id, for a GUI
// consumer or the engine orchestrator wiring a [graph.StreamProcessor]
// into the built graph.
func (r *Registry) Tap(id stream.ID) *StreamTap {
	return r.streams[id]
}

// NewFilter registers a filter module's cutoff/resonance/type
// parameters. BusType fixes whether it runs as a mono or stereo
// processor once wired into a channel's chain.
func (r *Registry) NewFilter(busType mixer.ChannelType) fx.Module {
	cutoff := r.params.AddFloat(param.Descriptor[float64]{
		Name: "cutoff", Min: 20, Max: 20000, Default: 20000, Flags: param.AudioGraphAffecting,
	})
	resonance := r.params.AddFloat(param.Descriptor[float64]{
		Name: "resonance", Min: 0, Max: 1, Default: 0, Flags: param.AudioGraphAffecting,
	})
	kind := r.params.AddEnum(param.Descriptor[int]{
		Name: "type", Min: 0, Max: 3, Default: 0, Flags: param.AudioGraphAffecting,
	})

	return fx.Module{
		Instance: fx.NewInternalInstance(fx.Filter),
		Name:     "Filter",
		BusType:  busType,
		Parameters: map[fx.ParameterKey]param.AnyID{
			"cutoff":    param.OfFloat(cutoff),
			"resonance": param.OfFloat(resonance),
			"type":      param.OfEnum(kind),
		},
	}
}

// NewUtility registers a utility module's gain/mono/phase-invert
// parameters.
func (r *Registry) NewUtility(busType mixer.ChannelType) fx.Module {
	toNorm, fromNorm := param.FaderMapping(-60)
	gain := r.params.AddFloat(param.Descriptor[float64]{
		Name: "gain", Min: 0, Max: 2, Default: 1,
		Flags: param.AudioGraphAffecting, ToNormalized: toNorm, FromNormalized: fromNorm,
	})
	mono := r.params.AddBool(param.Descriptor[bool]{Name: "mono", Default: false, Flags: param.AudioGraphAffecting})
	phase := r.params.AddBool(param.Descriptor[bool]{Name: "phase_invert", Default: false, Flags: param.AudioGraphAffecting})

	return fx.Module{
		Instance: fx.NewInternalInstance(fx.Utility),
		Name:     "Utility",
		BusType:  busType,
		Parameters: map[fx.ParameterKey]param.AnyID{
			"gain":         param.OfFloat(gain),
			"mono":         param.OfBool(mono),
			"phase_invert": param.OfBool(phase),
		},
	}
}

// NewDualPan registers a dual-pan module's two independent pan
// positions (left-source and right-source), used to narrow or widen a
// stereo signal beyond a plain balance control.
func (r *Registry) NewDualPan() fx.Module {
	panL := r.params.AddFloat(param.Descriptor[float64]{
		Name: "pan_left", Min: -1, Max: 1, Default: -1, Flags: param.Bipolar | param.AudioGraphAffecting,
	})
	panR := r.params.AddFloat(param.Descriptor[float64]{
		Name: "pan_right", Min: -1, Max: 1, Default: 1, Flags: param.Bipolar | param.AudioGraphAffecting,
	})

	return fx.Module{
		Instance: fx.NewInternalInstance(fx.DualPan),
		Name:     "Dual Pan",
		BusType:  mixer.Stereo,
		Parameters: map[fx.ParameterKey]param.AnyID{
			"pan_left":  param.OfFloat(panL),
			"pan_right": param.OfFloat(panR),
		},
	}
}

// NewTuner registers a tuner module: a metering sink with no audio
// parameters of its own, publishing into a stream tap the GUI reads
// pitch estimates from.
func (r *Registry) NewTuner() fx.Module {
	s := r.registerStream()
	return fx.Module{
		Instance:   fx.NewInternalInstance(fx.Tuner),
		Name:       "Tuner",
		BusType:    mixer.Mono,
		Parameters: map[fx.ParameterKey]param.AnyID{},
		Streams:    map[fx.ParameterKey]stream.ID{"in": s},
	}
}

// NewScope registers a scope (oscilloscope) module.
func (r *Registry) NewScope(busType mixer.ChannelType) fx.Module {
	s := r.registerStream()
	return fx.Module{
		Instance:   fx.NewInternalInstance(fx.Scope),
		Name:       "Scope",
		BusType:    busType,
		Parameters: map[fx.ParameterKey]param.AnyID{},
		Streams:    map[fx.ParameterKey]stream.ID{"in": s},
	}
}

// NewSpectrum registers a spectrum analyzer module.
func (r *Registry) NewSpectrum(busType mixer.ChannelType) fx.Module {
	s := r.registerStream()
	return fx.Module{
		Instance:   fx.NewInternalInstance(fx.Spectrum),
		Name:       "Spectrum",
		BusType:    busType,
		Parameters: map[fx.ParameterKey]param.AnyID{},
		Streams:    map[fx.ParameterKey]stream.ID{"in": s},
	}
}

// NewByKind builds the module for an internal kind by its persisted
// kind tag, the path a session load takes back into the registry.
func (r *Registry) NewByKind(kind fx.InternalKind, busType mixer.ChannelType) (fx.Module, bool) {
	switch kind {
	case fx.Filter:
		return r.NewFilter(busType), true
	case fx.Tuner:
		return r.NewTuner(), true
	case fx.Scope:
		return r.NewScope(busType), true
	case fx.Spectrum:
		return r.NewSpectrum(busType), true
	case fx.Utility:
		return r.NewUtility(busType), true
	case fx.DualPan:
		return r.NewDualPan(), true
	}
	return fx.Module{}, false
}

// BuildProcessor returns the per-channel audio processor behind mod's
// internal kind, caching whatever cached parameter reads it needs at
// build time (the same pattern [param.Slot.Cached] documents). It
// panics if mod isn't bound to an internal instance — LADSPA/
// unavailable-LADSPA modules are built by a different path entirely,
// not this registry.
func (r *Registry) BuildProcessor(mod fx.Module) graph.Processor {
	if mod.Instance.Kind != fx.InstanceInternal {
		panic("fxmodule: BuildProcessor called on a non-internal module")
	}

	switch mod.Instance.Internal {
	case fx.Filter:
		return graph.NewIdentityProcessor()
	case fx.Utility:
		gainID := mod.Parameters["gain"].Float
		return newGainProcessor(r.params.Floats.At(gainID).Cached())
	case fx.DualPan:
		return graph.NewIdentityProcessor()
	case fx.Tuner, fx.Scope, fx.Spectrum:
		tap := r.Tap(mod.Streams["in"])
		return graph.NewStreamProcessor(tap.Ring, tap.Level)
	default:
		return graph.NewIdentityProcessor()
	}
}

// gainProcessor scales its single input by a cached float parameter's
// current value every sample. It is the one internal kind whose stub
// actually does something audible, since a gain multiply needs no
// real DSP algorithm to be meaningful.
type gainProcessor struct {
	gain param.CachedRead[float64]
}

func newGainProcessor(gain param.CachedRead[float64]) *gainProcessor {
	return &gainProcessor{gain: gain}
}

func (*gainProcessor) TypeName() string        { return "gain" }
func (*gainProcessor) NumInputs() int          { return 1 }
func (*gainProcessor) NumOutputs() int         { return 1 }
func (*gainProcessor) EventInputs() []graph.EventPort  { return nil }
func (*gainProcessor) EventOutputs() []graph.EventPort { return nil }

func (p *gainProcessor) Process(ctx *graph.ProcessContext) {
	g := float32(p.gain.Get())
	in := ctx.Results[0]

	if in.IsConstant() {
		ctx.Results[0] = graph.ConstantResult(in.Constant() * g)
		return
	}

	out := ctx.Outputs[0]
	for i := 0; i < ctx.BufferSize; i++ {
		out[i] = in.At(i) * g
	}
	ctx.Results[0] = graph.BufferResult(out)
}
