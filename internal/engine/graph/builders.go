package graph

import "sort"

// IdentityProcessor passes its single input straight through as a
// [Result] pointing at the producer's own buffer — used to expose an
// external buffer (e.g. a sound-card input channel) as a graph source
// without copying.
type IdentityProcessor struct{}

func NewIdentityProcessor() *IdentityProcessor { return &IdentityProcessor{} }

func (*IdentityProcessor) TypeName() string        { return "identity" }
func (*IdentityProcessor) NumInputs() int          { return 1 }
func (*IdentityProcessor) NumOutputs() int         { return 1 }
func (*IdentityProcessor) EventInputs() []EventPort  { return nil }
func (*IdentityProcessor) EventOutputs() []EventPort { return nil }

func (*IdentityProcessor) Process(ctx *ProcessContext) {
	// ctx.Results[0] already holds the producer's Result; leaving it in
	// place is the pass-through.
}

// MixProcessor sums N audio inputs into a single output, the
// processor [Graph.Finalize] inserts wherever an input port would
// otherwise receive more than one incoming edge.
type MixProcessor struct {
	numInputs int
}

func NewMixProcessor(numInputs int) *MixProcessor {
	if numInputs < 1 {
		numInputs = 1
	}
	return &MixProcessor{numInputs: numInputs}
}

func (*MixProcessor) TypeName() string        { return "mix" }
func (m *MixProcessor) NumInputs() int        { return m.numInputs }
func (*MixProcessor) NumOutputs() int         { return 1 }
func (*MixProcessor) EventInputs() []EventPort  { return nil }
func (*MixProcessor) EventOutputs() []EventPort { return nil }

func (m *MixProcessor) Process(ctx *ProcessContext) {
	out := ctx.Outputs[0]

	// All-constant fast path: sum the constants and broadcast, never
	// touching the per-sample buffer.
	allConstant := true
	var constSum float32
	for i := 0; i < m.numInputs; i++ {
		if !ctx.Results[i].IsConstant() {
			allConstant = false
			break
		}
		constSum += ctx.Results[i].Constant()
	}
	if allConstant {
		ctx.Results[0] = ConstantResult(constSum)
		return
	}

	for s := 0; s < ctx.BufferSize; s++ {
		var sum float32
		for i := 0; i < m.numInputs; i++ {
			sum += ctx.Results[i].At(s)
		}
		out[s] = sum
	}
	ctx.Results[0] = BufferResult(out)
}

// ClipProcessor clamps its single input to [-1, 1].
type ClipProcessor struct{}

func NewClipProcessor() *ClipProcessor { return &ClipProcessor{} }

func (*ClipProcessor) TypeName() string        { return "clip" }
func (*ClipProcessor) NumInputs() int          { return 1 }
func (*ClipProcessor) NumOutputs() int         { return 1 }
func (*ClipProcessor) EventInputs() []EventPort  { return nil }
func (*ClipProcessor) EventOutputs() []EventPort { return nil }

func (*ClipProcessor) Process(ctx *ProcessContext) {
	in := ctx.Results[0]
	if in.IsConstant() {
		ctx.Results[0] = ConstantResult(clipSample(in.Constant()))
		return
	}
	out := ctx.Outputs[0]
	for s := 0; s < ctx.BufferSize; s++ {
		out[s] = clipSample(in.At(s))
	}
	ctx.Results[0] = BufferResult(out)
}

func clipSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// SilenceProcessor is a zero-input source that always publishes a
// constant zero. No builder in the engine adds one: Compile gives an
// unconnected input port a shared zero buffer instead.
type SilenceProcessor struct{}

func NewSilenceProcessor() *SilenceProcessor { return &SilenceProcessor{} }

func (*SilenceProcessor) TypeName() string        { return "silence" }
func (*SilenceProcessor) NumInputs() int          { return 0 }
func (*SilenceProcessor) NumOutputs() int         { return 1 }
func (*SilenceProcessor) EventInputs() []EventPort  { return nil }
func (*SilenceProcessor) EventOutputs() []EventPort { return nil }

func (*SilenceProcessor) Process(ctx *ProcessContext) {
	ctx.Results[0] = ConstantResult(0)
}

// MultiplyProcessor multiplies two audio inputs sample-by-sample, the
// processor a volume/solo-mute gain stage uses to apply a
// [SmoothProcessor]'s ramp to the raw signal.
type MultiplyProcessor struct{}

func NewMultiplyProcessor() *MultiplyProcessor { return &MultiplyProcessor{} }

func (*MultiplyProcessor) TypeName() string        { return "multiply" }
func (*MultiplyProcessor) NumInputs() int          { return 2 }
func (*MultiplyProcessor) NumOutputs() int         { return 1 }
func (*MultiplyProcessor) EventInputs() []EventPort  { return nil }
func (*MultiplyProcessor) EventOutputs() []EventPort { return nil }

func (*MultiplyProcessor) Process(ctx *ProcessContext) {
	a, b := ctx.Results[0], ctx.Results[1]
	if a.IsConstant() && b.IsConstant() {
		ctx.Results[0] = ConstantResult(a.Constant() * b.Constant())
		return
	}
	out := ctx.Outputs[0]
	for s := 0; s < ctx.BufferSize; s++ {
		out[s] = a.At(s) * b.At(s)
	}
	ctx.Results[0] = BufferResult(out)
}

// ValueSource is anything a [ParameterWatcherProcessor] can poll once
// per period; [param.CachedRead] already satisfies it.
type ValueSource interface {
	Get() float64
}

// ParameterWatcherProcessor is a zero-audio-port, one-event-output
// source that compares a [ValueSource]'s value against what it saw
// last period and, on a change, emits a single event at offset 0 —
// the bridge from the control thread's polled parameter cells to the
// graph's event-driven ports, feeding a [SmoothProcessor] so a
// parameter write takes effect as a ramp instead of a discontinuity.
type ParameterWatcherProcessor struct {
	src  ValueSource
	last float64
	init bool
}

// NewParameterWatcherProcessor builds a watcher over src.
func NewParameterWatcherProcessor(src ValueSource) *ParameterWatcherProcessor {
	return &ParameterWatcherProcessor{src: src}
}

func (*ParameterWatcherProcessor) TypeName() string { return "parameter_watcher" }
func (*ParameterWatcherProcessor) NumInputs() int   { return 0 }
func (*ParameterWatcherProcessor) NumOutputs() int  { return 0 }
func (*ParameterWatcherProcessor) EventInputs() []EventPort { return nil }

func (*ParameterWatcherProcessor) EventOutputs() []EventPort {
	return []EventPort{{Name: "ev", Type: EventFloat}}
}

func (p *ParameterWatcherProcessor) Process(ctx *ProcessContext) {
	v := p.src.Get()
	if p.init && v == p.last {
		return
	}
	p.init = true
	p.last = v
	ctx.EventOutputs[0].Append(Event{Offset: 0, Value: v})
}

// EventConverterFunc computes M output event values from N input
// event values at the moment an input event arrives. Event converters
// are stateless: the same inputs always produce the same outputs.
type EventConverterFunc func(inputs []float64) (outputs []float64)

// EventConverterProcessor is a stateless function-of-events processor
//: whenever any input port receives an event, it recomputes
// every output from the latest known value of each input and emits
// one event per output port at the same offset.
type EventConverterProcessor struct {
	numIn, numOut int
	inTypes       []EventPort
	outTypes      []EventPort
	fn            EventConverterFunc
	latest        []float64
}

// NewEventConverterProcessor builds a converter with the given typed
// input/output ports and conversion function.
func NewEventConverterProcessor(in, out []EventPort, fn EventConverterFunc) *EventConverterProcessor {
	return &EventConverterProcessor{
		numIn:    len(in),
		numOut:   len(out),
		inTypes:  in,
		outTypes: out,
		fn:       fn,
		latest:   make([]float64, len(in)),
	}
}

// SeedLatest presets the converter's latched input values so the
// first recompute after a graph build starts from the same state the
// rest of the build was seeded with, instead of zeros.
func (p *EventConverterProcessor) SeedLatest(values []float64) {
	copy(p.latest, values)
}

func (*EventConverterProcessor) TypeName() string { return "event_converter" }
func (*EventConverterProcessor) NumInputs() int   { return 0 }
func (*EventConverterProcessor) NumOutputs() int  { return 0 }
func (p *EventConverterProcessor) EventInputs() []EventPort  { return p.inTypes }
func (p *EventConverterProcessor) EventOutputs() []EventPort { return p.outTypes }

func (p *EventConverterProcessor) Process(ctx *ProcessContext) {
	type pending struct {
		offset int
		input  int
		value  float64
	}
	var arrivals []pending
	for i, eb := range ctx.EventInputs {
		for _, e := range eb.Events() {
			arrivals = append(arrivals, pending{offset: e.Offset, input: i, value: e.Value})
		}
	}
	if len(arrivals) == 0 {
		return
	}
	sort.SliceStable(arrivals, func(a, b int) bool { return arrivals[a].offset < arrivals[b].offset })

	// Apply in arrival (time) order, recomputing and emitting after
	// every single input update so downstream consumers see every
	// intermediate state change, not just the final one.
	for _, a := range arrivals {
		p.latest[a.input] = a.value
		outputs := p.fn(p.latest)
		for o := range ctx.EventOutputs {
			if o < len(outputs) {
				ctx.EventOutputs[o].Append(Event{Offset: a.offset, Value: outputs[o]})
			}
		}
	}
}
