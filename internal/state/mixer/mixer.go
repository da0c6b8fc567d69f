// Package mixer implements the mixer state: channels, their
// parameters, the external/inter-channel routing map, aux sends, and
// the routing-acyclicity helpers the reducers consult before allowing
// a rewire.
package mixer

import (
	"github.com/dkotrev/piejam-engine-go/internal/id"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/stream"
)

type channelTag struct{}

// ChannelID identifies one mixer channel.
type ChannelID = id.Typed[channelTag]

// ChannelIDGenerator mints fresh [ChannelID] values.
type ChannelIDGenerator = id.TypedGenerator[channelTag]

type deviceTag struct{}

// DeviceID identifies an external audio device channel (defined here,
// rather than in a separate external-audio package, so routing
// addresses and the external-audio state can share one type without
// an import cycle between the two state packages).
type DeviceID = id.Typed[deviceTag]

// DeviceIDGenerator mints fresh [DeviceID] values.
type DeviceIDGenerator = id.TypedGenerator[deviceTag]

// ChannelType distinguishes mono from stereo channels; a mono channel
// can never be an input route's destination or an output route's
// source.
type ChannelType int

const (
	Mono ChannelType = iota
	Stereo
	// Aux channels receive other channels' aux sends; they are stereo
	// on the wire but carry their own default fader-tap configuration
	// ([AuxChannel]) and appear in [State.AuxChannels].
	Aux
)

// Channel is one mixer channel's parameter set. Volume/PanBalance are
// float parameters; Record/Mute/Solo are bool parameters flagged
// audio-graph- or solo-state-affecting as appropriate when registered
// (not modelled here — flag assignment happens at registration time in
// the action that creates the channel).
type Channel struct {
	Type ChannelType
	Name string

	Volume     param.FloatID
	PanBalance param.FloatID
	Record     param.BoolID
	Mute       param.BoolID
	Solo       param.BoolID

	// OutStream is the ring buffer a StreamProcessor on this channel's
	// output publishes into for GUI metering, valid once the channel's
	// output component has been connected at least once.
	OutStream stream.ID
}

// Channels is the channel entity table.
type Channels map[ChannelID]Channel

// IOKind distinguishes the four shapes a routing endpoint can take.
type IOKind int

const (
	// IONone means "not routed" (silence in, discarded out).
	IONone IOKind = iota
	// IOMix means "summed from whatever else routes here" — the
	// input shape the main channel and every aux channel start with.
	IOMix
	// IODevice routes to/from an external audio device channel.
	IODevice
	// IOChannel routes to/from another mixer channel.
	IOChannel
)

// IOAddress is one endpoint of a channel's input or output route: a
// tagged union over none/mix/device/channel.
type IOAddress struct {
	Kind    IOKind
	Device  DeviceID
	Channel ChannelID
}

// NoInput is the zero-value route: unrouted.
func NoInput() IOAddress { return IOAddress{Kind: IONone} }

// MixInput marks an input as summed from whatever else targets it.
func MixInput() IOAddress { return IOAddress{Kind: IOMix} }

// ToDevice routes to/from an external device channel.
func ToDevice(d DeviceID) IOAddress { return IOAddress{Kind: IODevice, Device: d} }

// ToChannel routes to/from another mixer channel.
func ToChannel(c ChannelID) IOAddress { return IOAddress{Kind: IOChannel, Channel: c} }

// IOPair is a channel's input and output route.
type IOPair struct {
	In, Out IOAddress
}

// IOMap is the routing table, one [IOPair] per channel.
type IOMap map[ChannelID]IOPair

// AuxSend describes one channel's send to an aux bus.
type AuxSend struct {
	Active   param.BoolID
	FaderTap param.EnumID
	Volume   param.FloatID
}

// AuxSendFaderTap selects where an aux send taps its source channel's
// signal: automatically (matching the aux channel's own default),
// always pre-fader, or always post-fader.
type AuxSendFaderTap int

const (
	AuxTapAuto AuxSendFaderTap = iota
	AuxTapPost
	AuxTapPre
)

// AuxChannelFaderTap is an aux channel's own default tap point, used
// to resolve AuxTapAuto.
type AuxChannelFaderTap int

const (
	AuxChannelTapPost AuxChannelFaderTap = iota
	AuxChannelTapPre
)

// AuxChannel is the aux-bus-side configuration of one channel that can
// receive aux sends.
type AuxChannel struct {
	DefaultFaderTap param.IntID
}

// AuxSends maps a source channel to the aux sends it makes, keyed by
// destination aux channel.
type AuxSends map[ChannelID]map[ChannelID]AuxSend

// AuxChannels is the aux-channel entity table.
type AuxChannels map[ChannelID]AuxChannel

// State is the full mixer state.
type State struct {
	Channels Channels
	Inputs   []ChannelID
	Main     ChannelID

	IOMap IOMap

	AuxChannels AuxChannels
	AuxSends    AuxSends
}

// activeChannelIO is the routing information the acyclicity checks
// need, with inactive aux sends already filtered out.
type activeChannelIO struct {
	port     IOPair
	auxSends []ChannelID
}

func extractChannelsIO(ioMap IOMap, auxSends AuxSends, params *param.Parameters) map[ChannelID]*activeChannelIO {
	result := make(map[ChannelID]*activeChannelIO, len(ioMap))
	for chID, io := range ioMap {
		entry := &activeChannelIO{port: io}
		if sends, ok := auxSends[chID]; ok {
			for auxID, send := range sends {
				if params.Bools.At(send.Active).Get() {
					entry.auxSends = append(entry.auxSends, auxID)
				}
			}
		}
		result[chID] = entry
	}
	return result
}

// ioGraphNode is one channel's adjacency during a DFS cycle check.
type ioGraphNode struct {
	children []ChannelID
	visited  bool
	finished bool
}

func makeChannelsIOGraph(channelsIO map[ChannelID]*activeChannelIO) map[ChannelID]*ioGraphNode {
	g := make(map[ChannelID]*ioGraphNode, len(channelsIO))
	node := func(id ChannelID) *ioGraphNode {
		n, ok := g[id]
		if !ok {
			n = &ioGraphNode{}
			g[id] = n
		}
		return n
	}

	addOutChild := func(from ChannelID, to ChannelID) {
		if dst, ok := channelsIO[to]; ok && dst.port.In.Kind == IOMix {
			node(from).children = append(node(from).children, to)
		}
	}

	for chID, chIO := range channelsIO {
		node(chID)

		if chIO.port.In.Kind == IOChannel {
			node(chIO.port.In.Channel).children = append(node(chIO.port.In.Channel).children, chID)
		}

		if chIO.port.Out.Kind == IOChannel {
			addOutChild(chID, chIO.port.Out.Channel)
		}

		for _, aux := range chIO.auxSends {
			addOutChild(chID, aux)
		}
	}

	return g
}

func hasCycleFrom(g map[ChannelID]*ioGraphNode, start ChannelID) bool {
	n, ok := g[start]
	if !ok {
		return false
	}
	if n.finished {
		return false
	}
	if n.visited {
		return true
	}
	n.visited = true
	for _, child := range n.children {
		if hasCycleFrom(g, child) {
			return true
		}
	}
	n.finished = true
	return false
}

func hasCycle(g map[ChannelID]*ioGraphNode) bool {
	for id := range g {
		if hasCycleFrom(g, id) {
			return true
		}
	}
	return false
}

// IsMixInputValid reports whether ch could be switched to a "mixed"
// (summed) input without creating a routing cycle.
func IsMixInputValid(ch ChannelID, ioMap IOMap, auxSends AuxSends, params *param.Parameters) bool {
	channelsIO := extractChannelsIO(ioMap, auxSends, params)
	entry, ok := channelsIO[ch]
	if !ok {
		entry = &activeChannelIO{}
		channelsIO[ch] = entry
	}
	entry.port.In = MixInput()
	return !hasCycle(makeChannelsIOGraph(channelsIO))
}

// CanToggleAux reports whether the aux send from ch to auxID can be
// toggled on: already-active sends can always be disabled; enabling a
// currently-inactive send is only allowed if doing so wouldn't create
// a routing cycle.
func CanToggleAux(ch, auxID ChannelID, ioMap IOMap, auxSends AuxSends, params *param.Parameters) bool {
	sends, ok := auxSends[ch]
	if !ok {
		return false
	}
	send, ok := sends[auxID]
	if !ok {
		return false
	}
	if params.Bools.At(send.Active).Get() {
		return true
	}

	channelsIO := extractChannelsIO(ioMap, auxSends, params)
	entry, ok := channelsIO[ch]
	if !ok {
		entry = &activeChannelIO{}
		channelsIO[ch] = entry
	}
	entry.auxSends = append(entry.auxSends, auxID)
	return !hasCycle(makeChannelsIOGraph(channelsIO))
}

// IODirection selects which side of a channel's route valid_channels
// is evaluating.
type IODirection int

const (
	Input IODirection = iota
	Output
)

// ValidChannels returns the set of channel IDs that ch's input (or
// output) could legally be pointed at without creating a routing
// cycle or violating the mono/stereo routing restrictions.
func ValidChannels(ch ChannelID, dir IODirection, channels Channels, ioMap IOMap, auxSends AuxSends, params *param.Parameters) []ChannelID {
	channelsIO := extractChannelsIO(ioMap, auxSends, params)

	var valid []ChannelID
	for candidateID, candidate := range channels {
		if candidateID == ch {
			if dir == Input && channels[ch].Type == Mono {
				return nil
			}
			continue
		}

		if dir == Output && candidate.Type == Mono {
			continue
		}

		entry, ok := channelsIO[ch]
		if !ok {
			entry = &activeChannelIO{}
			channelsIO[ch] = entry
		}

		var prev IOAddress
		if dir == Input {
			prev = entry.port.In
			entry.port.In = ToChannel(candidateID)
		} else {
			prev = entry.port.Out
			entry.port.Out = ToChannel(candidateID)
		}

		if !hasCycle(makeChannelsIOGraph(channelsIO)) {
			valid = append(valid, candidateID)
		}

		if dir == Input {
			entry.port.In = prev
		} else {
			entry.port.Out = prev
		}
	}

	return valid
}
