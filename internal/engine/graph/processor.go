// Package graph implements the processor and graph model: the
// abstract unit of computation (Processor) and the bipartite
// audio/event graph connecting processors' input/output ports.
package graph

// EventPortType names the scalar domain an event port carries, mirrored
// from the parameter domains so MIDI-to-parameter and
// parameter-change events can be typed the same way a parameter is.
type EventPortType int

const (
	EventBool EventPortType = iota
	EventInt
	EventEnum
	EventFloat
)

// EventPort describes one typed event input or output port.
type EventPort struct {
	Name string
	Type EventPortType
}

// Event is a single timestamped value delivered on an event port.
// Offset is the sample offset within the current period at which the
// event takes effect; Value is carried as float64 regardless of the
// port's declared [EventPortType] — bool is 0/1, enum/int are
// truncated on read — since every domain is representable as a
// scalar and processors already know each port's type from its
// descriptor.
type Event struct {
	Offset int
	Value  float64
}

// EventBuffer is the ordered sequence of events delivered on one
// event port within one period. It is allocated from an
// [EventMemory] arena scoped to that period; processors must never
// retain a EventBuffer past the call to Process that handed it to
// them.
type EventBuffer struct {
	events []Event
}

// Append adds an event to the buffer. Must only be called by the
// owning processor during its own Process call, and only with
// strictly non-decreasing Offset (events within a period are
// delivered in time order).
func (b *EventBuffer) Append(e Event) {
	b.events = append(b.events, e)
}

// Events returns the buffer's events in arrival (time) order.
func (b *EventBuffer) Events() []Event {
	return b.events
}

func (b *EventBuffer) reset() {
	b.events = b.events[:0]
}

// Result is a processor's published output for one port: either a
// broadcast constant (the whole buffer collapses to a single value)
// or a pointer to the processor's own output slice. Downstream
// consumers that only care about a uniform buffer can skip the
// sample-by-sample read when IsConstant is true — the "slice-or-constant"
// broadcast optimization named in the glossary.
type Result struct {
	isConstant bool
	constant   float32
	buffer     []float32
}

// ConstantResult builds a Result signaling "this whole buffer is v".
func ConstantResult(v float32) Result {
	return Result{isConstant: true, constant: v}
}

// BufferResult builds a Result pointing at a processor's own output
// slice.
func BufferResult(buf []float32) Result {
	return Result{buffer: buf}
}

// IsConstant reports whether the result is a broadcast constant.
func (r Result) IsConstant() bool {
	return r.isConstant
}

// Constant returns the broadcast value. Only meaningful when
// IsConstant is true.
func (r Result) Constant() float32 {
	return r.constant
}

// Buffer returns the underlying sample slice. Only meaningful when
// IsConstant is false.
func (r Result) Buffer() []float32 {
	return r.buffer
}

// At returns the sample at index i regardless of whether the result
// is constant or a full buffer, which is what downstream processors
// that can't special-case constants should call.
func (r Result) At(i int) float32 {
	if r.isConstant {
		return r.constant
	}
	return r.buffer[i]
}

// ProcessContext is the per-call context handed to [Processor.Process].
// All slices are only valid for the duration of the call; buffer
// length is constant within a period.
type ProcessContext struct {
	BufferSize int

	Inputs  [][]float32
	Outputs [][]float32
	Results []Result

	EventInputs  []*EventBuffer
	EventOutputs []*EventBuffer

	Memory *EventMemory

	// Scratch is opaque per-worker storage a processor may use for
	// thread-local working buffers that must not be shared across
	// concurrently executing nodes. The scheduler never touches it.
	Scratch any
}

// Processor is the atomic unit of computation: it exposes its port
// counts and typed event ports, and a Process step invoked once per
// audio period. Implementations must be safe to call from any audio
// worker thread (never the same instant twice, by construction of the
// DAG, but potentially from a different worker on each call) and must
// not allocate, lock, or perform blocking I/O from Process — see the
// real-time constraints in internal/engine/worker.
type Processor interface {
	TypeName() string
	NumInputs() int
	NumOutputs() int
	EventInputs() []EventPort
	EventOutputs() []EventPort
	Process(ctx *ProcessContext)
}
