package graph

import "github.com/dkotrev/piejam-engine-go/internal/stream"

// StreamProcessor passes its single input straight through to its
// single output while also publishing every sample into a
// [stream.RingBuffer] and folding it into a [stream.Level] — the
// in-band tap the GUI meters and scopes read from
// asynchronously. It never
// allocates: both the ring buffer and the level accumulator were
// created once when the graph was built, and the tap writes through
// its own pre-sized output buffer.
type StreamProcessor struct {
	ring  *stream.RingBuffer
	level *stream.Level
}

// NewStreamProcessor builds a tap publishing into ring and level.
// Either may be nil if that particular consumer isn't wired up (e.g.
// a module with a scope but no numeric level readout).
func NewStreamProcessor(ring *stream.RingBuffer, level *stream.Level) *StreamProcessor {
	return &StreamProcessor{ring: ring, level: level}
}

func (*StreamProcessor) TypeName() string        { return "stream" }
func (*StreamProcessor) NumInputs() int          { return 1 }
func (*StreamProcessor) NumOutputs() int         { return 1 }
func (*StreamProcessor) EventInputs() []EventPort  { return nil }
func (*StreamProcessor) EventOutputs() []EventPort { return nil }

func (p *StreamProcessor) Process(ctx *ProcessContext) {
	out := ctx.Outputs[0]
	in := ctx.Results[0]

	if in.IsConstant() {
		v := in.Constant()
		for i := range out {
			out[i] = v
		}
	} else {
		copy(out, in.Buffer())
	}

	if p.level != nil {
		p.level.Accumulate(out)
	}
	if p.ring != nil {
		p.ring.Write(out)
	}

	ctx.Results[0] = BufferResult(out)
}
