package graph

import (
	"sort"

	"github.com/dkotrev/piejam-engine-go/internal/engine/dag"
)

// emptyEventBuffer is shared by every event-input port with no
// producer wired to it; it is never appended to, only read.
var emptyEventBuffer = &EventBuffer{}

// audioSource names the producer feeding one audio input port, if
// any — left zero-valued (has == false) for an input port
// [Graph.Finalize] left unconnected, which reads as a constant-zero
// source.
type audioSource struct {
	node *nodeBuild
	port int
	has  bool
}

// eventSource names one producer feeding an event input port. A port
// may have more than one (events from different sources interleave,
// per [Graph.Finalize]'s doc comment).
type eventSource struct {
	node *nodeBuild
	port int
}

// nodeBuild is the per-node scaffolding [Graph.Compile] builds once:
// preallocated output buffers and the dual-purpose results slot, plus
// the producer bindings the compiled [dag.Task] closure reads from
// every period.
type nodeBuild struct {
	proc    Processor
	outputs [][]float32
	results []Result

	audioSources []audioSource
	eventSources [][]eventSource
	eventOutputs []*EventBuffer
}

// Compile converts g into a [dag.Dag]: one task per processor, parent/
// child links for every audio and event edge, and every processor's
// output buffers and result slots preallocated so running the
// compiled Dag period after period allocates nothing beyond the rare
// multi-producer event-merge path noted on [makeTask].
func (g *Graph) Compile(bufferSize int) *dag.Dag {
	d := dag.New()

	order := g.Nodes()
	builds := make(map[NodeID]*nodeBuild, len(order))
	for _, nid := range order {
		p := g.Processor(nid)
		builds[nid] = newNodeBuild(p, bufferSize)
	}

	for _, e := range g.AudioEdges() {
		from, to := builds[e.From.Node], builds[e.To.Node]
		if from == nil || to == nil {
			continue
		}
		to.audioSources[e.To.Port] = audioSource{node: from, port: e.From.Port, has: true}
	}
	for _, e := range g.EventEdges() {
		from, to := builds[e.From.Node], builds[e.To.Node]
		if from == nil || to == nil {
			continue
		}
		to.eventSources[e.To.Port] = append(to.eventSources[e.To.Port], eventSource{node: from, port: e.From.Port})
	}

	zero := make([]float32, bufferSize)

	taskIDs := make(map[NodeID]dag.TaskID, len(order))
	for _, nid := range order {
		taskIDs[nid] = d.AddTask(makeTask(builds[nid], zero, bufferSize))
	}

	for _, e := range g.AudioEdges() {
		if e.From.Node == e.To.Node {
			continue
		}
		d.AddChild(taskIDs[e.From.Node], taskIDs[e.To.Node])
	}
	for _, e := range g.EventEdges() {
		if e.From.Node == e.To.Node {
			continue
		}
		d.AddChild(taskIDs[e.From.Node], taskIDs[e.To.Node])
	}

	return d
}

func newNodeBuild(p Processor, bufferSize int) *nodeBuild {
	nOut := p.NumOutputs()
	nIn := p.NumInputs()

	nb := &nodeBuild{proc: p}

	nb.outputs = make([][]float32, nOut)
	for i := range nb.outputs {
		nb.outputs[i] = make([]float32, bufferSize)
	}

	// Results is sized to the larger of the two port counts: indices
	// [0,numInputs) are read as the upstream producers' published
	// results before Process runs, then Process itself overwrites
	// indices [0,numOutputs) with its own — the same dual-purpose
	// array every builtin processor in this package already assumes.
	resultsLen := nIn
	if nOut > resultsLen {
		resultsLen = nOut
	}
	nb.results = make([]Result, resultsLen)

	nb.audioSources = make([]audioSource, nIn)
	nb.eventSources = make([][]eventSource, len(p.EventInputs()))
	nb.eventOutputs = make([]*EventBuffer, len(p.EventOutputs()))

	return nb
}

// makeTask closes over nb's static wiring and returns the per-period
// [dag.Task]. The only allocation it can ever perform is the
// multi-producer event-merge branch (more than one edge into the same
// event input port) — not exercised by any wiring the engine
// orchestrator currently builds, since fan-in only happens on audio
// ports (mixed by [Graph.Finalize]) and event ports only ever fan out
// (e.g. the solo-switch component broadcasting to every channel
// output).
func makeTask(nb *nodeBuild, zero []float32, bufferSize int) dag.Task {
	ctx := &ProcessContext{
		BufferSize:   bufferSize,
		Inputs:       make([][]float32, len(nb.audioSources)),
		Outputs:      nb.outputs,
		Results:      nb.results,
		EventInputs:  make([]*EventBuffer, len(nb.eventSources)),
		EventOutputs: nb.eventOutputs,
	}

	for i, src := range nb.audioSources {
		if src.has {
			ctx.Inputs[i] = src.node.outputs[src.port]
		} else {
			ctx.Inputs[i] = zero
		}
	}

	return func(tctx *dag.ThreadContext) {
		ctx.Memory = tctx.EventMemory.(*EventMemory)

		for i, src := range nb.audioSources {
			if src.has {
				ctx.Results[i] = src.node.results[src.port]
			} else {
				ctx.Results[i] = ConstantResult(0)
			}
		}

		for i, srcs := range nb.eventSources {
			ctx.EventInputs[i] = resolveEventInput(ctx.Memory, srcs)
		}

		for i := range nb.eventOutputs {
			nb.eventOutputs[i] = ctx.Memory.Get()
		}
		ctx.EventOutputs = nb.eventOutputs

		nb.proc.Process(ctx)
	}
}

func resolveEventInput(mem *EventMemory, srcs []eventSource) *EventBuffer {
	switch len(srcs) {
	case 0:
		return emptyEventBuffer
	case 1:
		return srcs[0].node.eventOutputs[srcs[0].port]
	default:
		merged := mem.Get()
		var all []Event
		for _, s := range srcs {
			all = append(all, s.node.eventOutputs[s.port].Events()...)
		}
		sort.Slice(all, func(a, b int) bool { return all[a].Offset < all[b].Offset })
		for _, ev := range all {
			merged.Append(ev)
		}
		return merged
	}
}
