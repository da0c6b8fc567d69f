package engine

import (
	"github.com/charmbracelet/log"

	"github.com/dkotrev/piejam-engine-go/internal/engine/dag"
	"github.com/dkotrev/piejam-engine-go/internal/engine/graph"
	"github.com/dkotrev/piejam-engine-go/internal/id"
	"github.com/dkotrev/piejam-engine-go/internal/midi"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state"
	"github.com/dkotrev/piejam-engine-go/internal/state/external"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// stripBuild is one mixer channel's wired strip: every channel runs
// on two internal rails (left/right) regardless of its own type, so a
// mono source simply feeds both rails and the pan stage decides what
// reaches each side.
type stripBuild struct {
	// in is the pair of anchor identity processors other producers
	// (device inputs, upstream channels, aux-send taps) connect into;
	// Finalize turns multi-producer fan-in on them into mix nodes.
	in [2]graph.Endpoint
	// pre is the post-fx-chain, pre-fader tap point.
	pre [2]graph.Endpoint
	// out is the final post-fader, post-gate strip output.
	out [2]graph.Endpoint
}

// build runs the four passes against the current state and
// returns a freshly compiled, swappable graph. It only ever runs on
// the control thread (via Rebuild); the previous build's smoothers,
// metering taps, and fx processors are transferred by key so an
// unrelated state change never resets a ramp, a meter, or a stateful
// fx instance.
func (e *Engine) build(s *state.State) (*runningGraph, error) {
	mix := s.Mixer.Get()
	fxSt := s.Fx.Get()
	extSt := s.External.Get()

	g := graph.New()

	// Pass 1: the solo-switch component plus one strip component per
	// channel. Solo state is resolved once per period by a single
	// dedicated switch node whose per-channel event outputs feed each
	// strip's gate, so a solo toggle never needs a graph rebuild.
	chIDs := make([]mixer.ChannelID, 0, len(mix.Channels))
	for chID := range mix.Channels {
		chIDs = append(chIDs, chID)
	}

	down := downstreamChannels(mix)
	solos := make(map[mixer.ChannelID]param.CachedRead[bool], len(chIDs))
	allSolos := make([]param.CachedRead[bool], 0, len(chIDs))
	for _, chID := range chIDs {
		c := s.Params.Bools.At(mix.Channels[chID].Solo).Cached()
		solos[chID] = c
		allSolos = append(allSolos, c)
	}

	anySolo := false
	for _, c := range allSolos {
		if c.Get() {
			anySolo = true
			break
		}
	}

	groups := make([]soloGroup, len(chIDs))
	for i, chID := range chIDs {
		groups[i] = soloGroup{channel: chID, solo: solos[chID]}
		for _, dstID := range down[chID] {
			groups[i].downstream = append(groups[i].downstream, solos[dstID])
		}
	}
	soloSwitch := g.AddProcessor(newSoloSwitchProcessor(groups, allSolos))

	strips := make(map[mixer.ChannelID]*stripBuild, len(chIDs))
	for i, chID := range chIDs {
		ch := mix.Channels[chID]
		mute := s.Params.Bools.At(ch.Mute).Cached()
		strips[chID] = e.buildStrip(g, s.Params, chID, ch, fxSt, mute,
			graph.Endpoint{Node: soloSwitch, Port: i},
			float32(soloStateValue(groups[i], anySolo)))
	}

	// Pass 2: one I/O processor per physical sound-card channel.
	ins := make(map[int]*graph.InputProcessor, e.cfg.InputChannels)
	inEPs := make(map[int]graph.Endpoint, e.cfg.InputChannels)
	for i := 0; i < e.cfg.InputChannels; i++ {
		p := graph.NewInputProcessor(e.cfg.BufferSize)
		ins[i] = p
		inEPs[i] = graph.Endpoint{Node: g.AddProcessor(p)}
	}
	outs := make(map[int]*graph.OutputProcessor, e.cfg.OutputChannels)
	outEPs := make(map[int]graph.Endpoint, e.cfg.OutputChannels)
	for i := 0; i < e.cfg.OutputChannels; i++ {
		p := graph.NewOutputProcessor(e.cfg.BufferSize)
		outs[i] = p
		outEPs[i] = graph.Endpoint{Node: g.AddProcessor(p)}
	}

	// MIDI processors: the queue drain always runs when
	// a MIDI source is attached; the learn capture only while the
	// user is learning.
	if e.midiQueue != nil {
		midiEP := graph.Endpoint{Node: g.AddProcessor(midi.NewInputProcessor(e.midiQueue))}
		if e.midiLearn.Load() {
			g.ConnectEvent(midiEP, graph.Endpoint{Node: g.AddProcessor(e.learnProc)})
		}
	}

	// Pass 3: connect strips to devices, to each other, and to their
	// aux destinations.
	for chID := range mix.Channels {
		e.connectStrip(g, s.Params, chID, strips, mix, extSt, inEPs, outEPs)
	}

	// Pass 4: finalize (insert fan-in mixes) and compile to a DAG.
	g.Finalize()

	e.lastNodeCount = len(g.Nodes())
	e.lastEdgeCount = len(g.AudioEdges()) + len(g.EventEdges())
	if log.GetLevel() <= log.DebugLevel {
		log.Debug("engine: graph built",
			"nodes", e.lastNodeCount, "edges", e.lastEdgeCount, "dot", g.DOT())
	}

	d := g.Compile(e.cfg.BufferSize)
	exec := d.Compile(e.workers(), func() dag.EventMemory {
		return graph.NewEventMemory(e.cfg.EventArenaReserve)
	})

	return &runningGraph{exec: exec, inputs: ins, outputs: outs}, nil
}

// buildStrip wires one channel's internal chain:
// anchors -> fx chain -> volume fader -> pan/balance -> mute/solo
// gate -> metering tap. soloEP is the solo switch's event output for
// this channel; soloSeed is that output's value at build time, so a
// rebuild never restarts a settled gate ramp.
func (e *Engine) buildStrip(g *graph.Graph, params *param.Parameters, chID mixer.ChannelID, ch mixer.Channel, fxSt fx.State, mute param.CachedRead[bool], soloEP graph.Endpoint, soloSeed float32) *stripBuild {
	sb := &stripBuild{}
	for side := range sb.in {
		sb.in[side] = graph.Endpoint{Node: g.AddProcessor(graph.NewIdentityProcessor())}
	}

	cur := sb.in
	for _, modID := range fxSt.Chains[chID] {
		mod, ok := fxSt.Modules[modID]
		if !ok || !fx.IsActive(modID, fxSt, params) {
			continue
		}
		for side := range cur {
			nid := g.AddProcessor(e.fxProcessor(modID, mod, side))
			g.ConnectAudio(cur[side], graph.Endpoint{Node: nid})
			cur[side] = graph.Endpoint{Node: nid}
		}
	}
	sb.pre = cur

	volSlot := params.Floats.At(ch.Volume)
	volSm := e.smoother(gainKey{kind: "volume", raw: chID.Raw()}, floatLUT(volSlot.Param()), float32(volSlot.Get()))
	volEP := addSmoother(g, volSm, volSlot.Cached())
	for side := range cur {
		cur[side] = mulEP(g, cur[side], volEP)
	}

	pan := params.Floats.At(ch.PanBalance).Cached()
	sideGains := [2]funcSource{
		func() float64 { return panGain(-pan.Get()) },
		func() float64 { return panGain(pan.Get()) },
	}
	sideKinds := [2]string{"pan_l", "pan_r"}
	for side := range cur {
		src := sideGains[side]
		sm := e.smoother(gainKey{kind: sideKinds[side], raw: chID.Raw()}, linearLUT(0, 1), float32(src.Get()))
		cur[side] = mulEP(g, cur[side], addSmoother(g, sm, src))
	}

	// The gate: the channel's own mute bit and the solo switch's
	// audibility event meet in a converter; either closes the gate,
	// and the smoother turns the step into a declicked ramp.
	muteW := g.AddProcessor(graph.NewParameterWatcherProcessor(boolSource{c: mute}))
	conv := graph.NewEventConverterProcessor(
		[]graph.EventPort{
			{Name: "mute", Type: graph.EventBool},
			{Name: "solo_state", Type: graph.EventFloat},
		},
		[]graph.EventPort{{Name: "gain", Type: graph.EventFloat}},
		func(in []float64) []float64 {
			if in[0] != 0 {
				return []float64{0}
			}
			return []float64{in[1]}
		})
	muteSeed := 0.0
	gateSeed := soloSeed
	if mute.Get() {
		muteSeed = 1
		gateSeed = 0
	}
	conv.SeedLatest([]float64{muteSeed, float64(soloSeed)})
	convNode := g.AddProcessor(conv)
	g.ConnectEvent(graph.Endpoint{Node: muteW}, graph.Endpoint{Node: convNode, Port: 0})
	g.ConnectEvent(soloEP, graph.Endpoint{Node: convNode, Port: 1})

	gateSm := e.smoother(gainKey{kind: "gate", raw: chID.Raw()}, linearLUT(0, 1), gateSeed)
	smNode := g.AddProcessor(gateSm)
	g.ConnectEvent(graph.Endpoint{Node: convNode}, graph.Endpoint{Node: smNode})
	gateEP := graph.Endpoint{Node: smNode}
	for side := range cur {
		cur[side] = mulEP(g, cur[side], gateEP)
	}

	// Per-channel meter tap on the left rail, after the gate, so the
	// GUI level reading reflects what actually reaches the channel's
	// destination.
	tap := e.channelTap(gainKey{kind: "meter", raw: chID.Raw()})
	nid := g.AddProcessor(graph.NewStreamProcessor(tap.Ring, tap.Level))
	g.ConnectAudio(cur[0], graph.Endpoint{Node: nid})
	cur[0] = graph.Endpoint{Node: nid}

	sb.out = cur
	return sb
}

// connectStrip resolves a channel's input route, output route, and
// active aux sends against the already-built strip set.
func (e *Engine) connectStrip(g *graph.Graph, params *param.Parameters, chID mixer.ChannelID, strips map[mixer.ChannelID]*stripBuild, mix mixer.State, extSt external.State, inEPs, outEPs map[int]graph.Endpoint) {
	sb := strips[chID]
	io := mix.IOMap[chID]

	switch io.In.Kind {
	case mixer.IODevice:
		if dev, ok := extSt.Inputs[io.In.Device]; ok {
			connectDeviceIn(g, dev, inEPs, sb)
		}
	case mixer.IOChannel:
		if src, ok := strips[io.In.Channel]; ok {
			g.ConnectAudio(src.out[0], sb.in[0])
			g.ConnectAudio(src.out[1], sb.in[1])
		}
	}

	switch io.Out.Kind {
	case mixer.IODevice:
		if dev, ok := extSt.Outputs[io.Out.Device]; ok {
			connectDeviceOut(g, dev, outEPs, sb)
		}
	case mixer.IOChannel:
		// An output route into another channel only lands if that
		// channel actually sums its input, the same condition the
		// routing-acyclicity graph applies (mixer.addOutChild).
		if dst, ok := strips[io.Out.Channel]; ok && mix.IOMap[io.Out.Channel].In.Kind == mixer.IOMix {
			g.ConnectAudio(sb.out[0], dst.in[0])
			g.ConnectAudio(sb.out[1], dst.in[1])
		}
	}

	for dstID, send := range mix.AuxSends[chID] {
		if !params.Bools.At(send.Active).Get() {
			continue
		}
		dst, ok := strips[dstID]
		if !ok || mix.IOMap[dstID].In.Kind != mixer.IOMix {
			continue
		}

		tapSrc := sb.out
		if isPreFaderTap(params, send, mix.AuxChannels[dstID]) {
			tapSrc = sb.pre
		}

		volSlot := params.Floats.At(send.Volume)
		sm := e.smoother(gainKey{kind: "aux", raw: chID.Raw(), extra: dstID.Raw()}, floatLUT(volSlot.Param()), float32(volSlot.Get()))
		sendEP := addSmoother(g, sm, volSlot.Cached())

		g.ConnectAudio(mulEP(g, tapSrc[0], sendEP), dst.in[0])
		g.ConnectAudio(mulEP(g, tapSrc[1], sendEP), dst.in[1])
	}
}

// fxProcessor returns the processor behind one side of one fx module,
// reusing the instance from the previous build when the module still
// exists — the structural-reuse contract pass 1 that keeps
// stateful fx (and their stream taps) alive across rebuilds.
func (e *Engine) fxProcessor(modID fx.ModuleID, mod fx.Module, side int) graph.Processor {
	key := gainKey{kind: "fx", raw: modID.Raw(), extra: id.ID(side)}
	e.touched[key] = true
	if p, ok := e.fxProcs[key]; ok {
		return p
	}

	var p graph.Processor
	switch {
	case mod.Instance.Kind != fx.InstanceInternal:
		// Live LADSPA hosting is out of scope and an unavailable-LADSPA
		// placeholder carries no DSP; both pass audio through untouched
		// while keeping their chain slot.
		p = graph.NewIdentityProcessor()
	case side > 0 && len(mod.Streams) > 0:
		// Metering kinds own exactly one stream tap; the right rail
		// passes through and the left rail's processor feeds the tap.
		p = graph.NewIdentityProcessor()
	default:
		p = e.fx.BuildProcessor(mod)
	}
	e.fxProcs[key] = p
	return p
}

func connectDeviceIn(g *graph.Graph, dev external.Device, inEPs map[int]graph.Endpoint, sb *stripBuild) {
	if dev.Type == mixer.Mono {
		if ep, ok := inEPs[dev.Channels.Left]; ok {
			g.ConnectAudio(ep, sb.in[0])
			g.ConnectAudio(ep, sb.in[1])
		}
		return
	}
	if ep, ok := inEPs[dev.Channels.Left]; ok {
		g.ConnectAudio(ep, sb.in[0])
	}
	if ep, ok := inEPs[dev.Channels.Right]; ok {
		g.ConnectAudio(ep, sb.in[1])
	}
}

func connectDeviceOut(g *graph.Graph, dev external.Device, outEPs map[int]graph.Endpoint, sb *stripBuild) {
	if dev.Type == mixer.Mono {
		if ep, ok := outEPs[dev.Channels.Left]; ok {
			g.ConnectAudio(sb.out[0], ep)
			g.ConnectAudio(sb.out[1], ep)
		}
		return
	}
	if ep, ok := outEPs[dev.Channels.Left]; ok {
		g.ConnectAudio(sb.out[0], ep)
	}
	if ep, ok := outEPs[dev.Channels.Right]; ok {
		g.ConnectAudio(sb.out[1], ep)
	}
}

// isPreFaderTap resolves an aux send's tap point: the send's own
// setting wins, and the auto setting defers to the destination aux
// channel's default.
func isPreFaderTap(params *param.Parameters, send mixer.AuxSend, auxCh mixer.AuxChannel) bool {
	switch mixer.AuxSendFaderTap(params.Enums.At(send.FaderTap).Get()) {
	case mixer.AuxTapPre:
		return true
	case mixer.AuxTapPost:
		return false
	default:
		if !auxCh.DefaultFaderTap.Valid() {
			return false
		}
		return mixer.AuxChannelFaderTap(params.Ints.At(auxCh.DefaultFaderTap).Get()) == mixer.AuxChannelTapPre
	}
}

// panGain is the per-side balance law: full gain until the control
// moves away from this side, then a linear fade to silence at the
// opposite extreme. toward is positive when the pan control points at
// this side.
func panGain(toward float64) float64 {
	g := 1 + toward
	if g > 1 {
		return 1
	}
	if g < 0 {
		return 0
	}
	return g
}

// addSmoother wires the watcher/smoother pair every gain stage uses:
// a per-period poll of src feeding a declicking ramp.
func addSmoother(g *graph.Graph, sm *graph.SmoothProcessor, src graph.ValueSource) graph.Endpoint {
	w := g.AddProcessor(graph.NewParameterWatcherProcessor(src))
	s := g.AddProcessor(sm)
	g.ConnectEvent(graph.Endpoint{Node: w}, graph.Endpoint{Node: s})
	return graph.Endpoint{Node: s}
}

func mulEP(g *graph.Graph, a, b graph.Endpoint) graph.Endpoint {
	m := g.AddProcessor(graph.NewMultiplyProcessor())
	g.ConnectAudio(a, graph.Endpoint{Node: m, Port: 0})
	g.ConnectAudio(b, graph.Endpoint{Node: m, Port: 1})
	return graph.Endpoint{Node: m}
}
