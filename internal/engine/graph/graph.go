package graph

import "github.com/dkotrev/piejam-engine-go/internal/id"

type nodeTag struct{}

// NodeID identifies one processor within a [Graph]. Compile maps each
// NodeID onto a task id of its own in the DAG it builds
// (internal/engine/dag).
type NodeID = id.Typed[nodeTag]

// Endpoint names one port of one processor already added to a
// [Graph].
type Endpoint struct {
	Node NodeID
	Port int
}

type edge struct {
	from Endpoint
	to   Endpoint
}

// Graph is the bipartite edge set over {audio_edges, event_edges}
// described: a set of processors plus two independent sets of
// directed edges between their ports.
type Graph struct {
	gen        id.TypedGenerator[nodeTag]
	processors map[NodeID]Processor
	order      []NodeID // insertion order, for deterministic iteration
	audioEdges []edge
	eventEdges []edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{processors: make(map[NodeID]Processor)}
}

// AddProcessor registers p and returns the node id later calls use to
// refer to its ports.
func (g *Graph) AddProcessor(p Processor) NodeID {
	nid := g.gen.Next()
	g.processors[nid] = p
	g.order = append(g.order, nid)
	return nid
}

// Processor returns the processor registered under id, or nil.
func (g *Graph) Processor(nid NodeID) Processor {
	return g.processors[nid]
}

// Nodes returns every processor id in insertion order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.order))
	copy(out, g.order)
	return out
}

// ConnectAudio adds a directed audio edge from an output port to an
// input port.
func (g *Graph) ConnectAudio(from, to Endpoint) {
	g.audioEdges = append(g.audioEdges, edge{from: from, to: to})
}

// ConnectEvent adds a directed event edge from an output event port
// to an input event port.
func (g *Graph) ConnectEvent(from, to Endpoint) {
	g.eventEdges = append(g.eventEdges, edge{from: from, to: to})
}

// AudioEdges returns every audio edge.
func (g *Graph) AudioEdges() []struct{ From, To Endpoint } {
	out := make([]struct{ From, To Endpoint }, len(g.audioEdges))
	for i, e := range g.audioEdges {
		out[i] = struct{ From, To Endpoint }{e.from, e.to}
	}
	return out
}

// EventEdges returns every event edge.
func (g *Graph) EventEdges() []struct{ From, To Endpoint } {
	out := make([]struct{ From, To Endpoint }, len(g.eventEdges))
	for i, e := range g.eventEdges {
		out[i] = struct{ From, To Endpoint }{e.from, e.to}
	}
	return out
}

// Finalize inserts the minimum set of N-to-1 mix processors so that
// every input port has at most one incoming audio edge, as required
// by the schedulers. Event edges are left alone: multiple event producers
// feeding one event input port is legal (events from different
// sources simply interleave in the consumer's EventBuffer).
func (g *Graph) Finalize() {
	incoming := make(map[Endpoint][]Endpoint)
	var order []Endpoint
	for _, e := range g.audioEdges {
		if _, seen := incoming[e.to]; !seen {
			order = append(order, e.to)
		}
		incoming[e.to] = append(incoming[e.to], e.from)
	}

	var keep []edge
	for _, to := range order {
		froms := incoming[to]
		if len(froms) <= 1 {
			keep = append(keep, edge{from: froms[0], to: to})
			continue
		}

		mixID := g.AddProcessor(NewMixProcessor(len(froms)))
		for i, from := range froms {
			keep = append(keep, edge{from: from, to: Endpoint{Node: mixID, Port: i}})
		}
		keep = append(keep, edge{from: Endpoint{Node: mixID, Port: 0}, to: to})
	}
	g.audioEdges = keep
}

// IsDescendant reports whether candidate is reachable from start by
// following audio or event edges forward, used to guard manual edge
// insertion against cycles before the schedulers' own task-level
// guard would catch them.
func (g *Graph) IsDescendant(start, candidate NodeID) bool {
	if start == candidate {
		return true
	}
	visited := make(map[NodeID]bool)
	var stack []NodeID
	stack = append(stack, start)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, e := range g.audioEdges {
			if e.from.Node == n {
				if e.to.Node == candidate {
					return true
				}
				stack = append(stack, e.to.Node)
			}
		}
		for _, e := range g.eventEdges {
			if e.from.Node == n {
				if e.to.Node == candidate {
					return true
				}
				stack = append(stack, e.to.Node)
			}
		}
	}
	return false
}
