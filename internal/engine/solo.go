package engine

import (
	"github.com/dkotrev/piejam-engine-go/internal/engine/graph"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// downstreamChannels returns, for every channel, the other channels
// its own signal eventually reaches by following IOChannel routes and
// aux sends forward. The solo switch consults this so soloing a
// channel also keeps whatever feeds into it audible, instead of
// soloing in isolation.
func downstreamChannels(st mixer.State) map[mixer.ChannelID][]mixer.ChannelID {
	children := make(map[mixer.ChannelID][]mixer.ChannelID, len(st.Channels))
	for id, io := range st.IOMap {
		if io.Out.Kind == mixer.IOChannel {
			children[id] = append(children[id], io.Out.Channel)
		}
	}
	for from, sends := range st.AuxSends {
		for to := range sends {
			children[from] = append(children[from], to)
		}
	}

	memo := make(map[mixer.ChannelID][]mixer.ChannelID, len(st.Channels))
	var visit func(id mixer.ChannelID) []mixer.ChannelID
	visit = func(id mixer.ChannelID) []mixer.ChannelID {
		if out, ok := memo[id]; ok {
			return out
		}
		memo[id] = nil // breaks a cycle defensively; routing is acyclic by construction
		var out []mixer.ChannelID
		for _, child := range children[id] {
			out = append(out, child)
			out = append(out, visit(child)...)
		}
		memo[id] = out
		return out
	}

	result := make(map[mixer.ChannelID][]mixer.ChannelID, len(st.Channels))
	for id := range st.Channels {
		result[id] = visit(id)
	}
	return result
}

// soloGroup is one channel's membership in the mutual-exclusion
// decision: its own solo bit plus the solo bits of every channel its
// signal feeds into.
type soloGroup struct {
	channel    mixer.ChannelID
	solo       param.CachedRead[bool]
	downstream []param.CachedRead[bool]
}

// soloStateValue is the audibility a group resolves to: fully audible
// while nothing anywhere is soloed, and once something is, audible
// only if this channel or one it feeds is among the soloed.
func soloStateValue(g soloGroup, anySolo bool) float64 {
	if !anySolo {
		return 1
	}
	if g.solo.Get() {
		return 1
	}
	for _, s := range g.downstream {
		if s.Get() {
			return 1
		}
	}
	return 0
}

// soloSwitchProcessor is the one solo-switch node per built graph: no
// audio ports, one float event output per mixer channel. Each period
// it re-resolves every group from lock-free parameter reads and emits
// an event on a channel's port only when that channel's audibility
// changed, so a solo toggle never needs a graph rebuild and a steady
// state produces no events at all. Its outputs feed each channel
// output stage's gate.
type soloSwitchProcessor struct {
	groups []soloGroup
	all    []param.CachedRead[bool]
	ports  []graph.EventPort
	last   []float64
	primed bool
}

func newSoloSwitchProcessor(groups []soloGroup, all []param.CachedRead[bool]) *soloSwitchProcessor {
	ports := make([]graph.EventPort, len(groups))
	for i := range ports {
		ports[i] = graph.EventPort{Name: "solo_state", Type: graph.EventFloat}
	}
	return &soloSwitchProcessor{
		groups: groups,
		all:    all,
		ports:  ports,
		last:   make([]float64, len(groups)),
	}
}

func (*soloSwitchProcessor) TypeName() string               { return "solo_switch" }
func (*soloSwitchProcessor) NumInputs() int                 { return 0 }
func (*soloSwitchProcessor) NumOutputs() int                { return 0 }
func (*soloSwitchProcessor) EventInputs() []graph.EventPort { return nil }

func (p *soloSwitchProcessor) EventOutputs() []graph.EventPort { return p.ports }

func (p *soloSwitchProcessor) Process(ctx *graph.ProcessContext) {
	anySolo := false
	for _, s := range p.all {
		if s.Get() {
			anySolo = true
			break
		}
	}

	for i := range p.groups {
		v := soloStateValue(p.groups[i], anySolo)
		if p.primed && v == p.last[i] {
			continue
		}
		p.last[i] = v
		ctx.EventOutputs[i].Append(graph.Event{Offset: 0, Value: v})
	}
	p.primed = true
}
