package graph

// InputProcessor is a zero-input, one-output source processor whose
// buffer the engine orchestrator's Process step writes sound-card (or
// MIDI-derived) samples into directly, once per period, before the
// compiled [dag.Dag] runs — the graph-side half of a sound-card input
// channel.
type InputProcessor struct {
	buf []float32
}

// NewInputProcessor allocates an input source with a period-sized
// buffer the engine writes into each period.
func NewInputProcessor(bufferSize int) *InputProcessor {
	return &InputProcessor{buf: make([]float32, bufferSize)}
}

// Buffer returns the slice the engine orchestrator copies incoming
// samples into before running the scheduler each period.
func (p *InputProcessor) Buffer() []float32 { return p.buf }

func (*InputProcessor) TypeName() string        { return "input" }
func (*InputProcessor) NumInputs() int          { return 0 }
func (*InputProcessor) NumOutputs() int         { return 1 }
func (*InputProcessor) EventInputs() []EventPort  { return nil }
func (*InputProcessor) EventOutputs() []EventPort { return nil }

func (p *InputProcessor) Process(ctx *ProcessContext) {
	ctx.Results[0] = BufferResult(p.buf)
}

// OutputProcessor is a one-input, zero-output sink processor whose
// buffer the engine orchestrator's Process step reads samples out of
// after the compiled [dag.Dag] runs — the graph-side half of a
// sound-card output channel.
type OutputProcessor struct {
	buf []float32
}

// NewOutputProcessor allocates an output sink with a period-sized
// buffer the engine reads from each period.
func NewOutputProcessor(bufferSize int) *OutputProcessor {
	return &OutputProcessor{buf: make([]float32, bufferSize)}
}

// Buffer returns the slice the engine orchestrator copies outgoing
// samples out of after running the scheduler each period.
func (p *OutputProcessor) Buffer() []float32 { return p.buf }

func (*OutputProcessor) TypeName() string        { return "output" }
func (*OutputProcessor) NumInputs() int          { return 1 }
func (*OutputProcessor) NumOutputs() int         { return 0 }
func (*OutputProcessor) EventInputs() []EventPort  { return nil }
func (*OutputProcessor) EventOutputs() []EventPort { return nil }

func (p *OutputProcessor) Process(ctx *ProcessContext) {
	in := ctx.Results[0]
	if in.IsConstant() {
		v := in.Constant()
		for i := range p.buf {
			p.buf[i] = v
		}
		return
	}
	copy(p.buf, in.Buffer())
}
