// Package state composes the sub-state packages (mixer, fx, external)
// plus the parameter store into the single pure, value-typed root
// State of the engine core, and owns the counters middlewares
// edge-trigger on: audio_graph_update_count and
// solo_state_update_count.
//
// Each top-level collection is wrapped in a [box.Box] so a subscriber
// selector (internal/store) can tell "nothing changed" from "this
// field's pointer was replaced" in O(1) without walking the
// collection.
package state

import (
	"github.com/dkotrev/piejam-engine-go/internal/box"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/external"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// State is the engine's entire pure, control-thread-owned state tree.
// It is never mutated by the audio thread; the audio thread only
// holds cached parameter read handles captured when the graph was
// built (see internal/engine).
type State struct {
	Params *param.Parameters

	Mixer    box.Box[mixer.State]
	Fx       box.Box[fx.State]
	External box.Box[external.State]

	// FocusedFxChain is the chain id the GUI's fx browser currently
	// targets (ShowFxBrowser); it is GUI selection state, not
	// audio-graph-affecting.
	FocusedFxChain mixer.ChannelID

	// FocusedModule is the fx module ToggleFocusedFxModuleBypass
	// acts on: whichever module the GUI currently has selected.
	FocusedModule fx.ModuleID

	// AudioGraphUpdateCount/SoloStateUpdateCount are incremented by
	// reducers that touch an audio-graph-affecting or
	// solo-state-affecting parameter, or that structurally change
	// routing/fx-chains/channel set. The engine-rebuild middleware
	// edge-triggers on the former; nothing reads the latter, since the
	// solo-switch processor re-reads the solo parameters every period.
	AudioGraphUpdateCount uint64
	SoloStateUpdateCount  uint64
}

// New returns a fresh State with an empty parameter store and the
// distinguished main channel already created (main sits apart from
// the user-visible Inputs order) — every freshly-added channel's
// default output routes to it.
func New() *State {
	s := &State{Params: &param.Parameters{}}

	mainStrip := newChannelStripParams(s.Params)
	mainStrip.Type = mixer.Stereo
	mainStrip.Name = "Main"

	mainID := channelIDs.Next()

	s.Mixer.Set(mixer.State{
		Channels:    mixer.Channels{mainID: mainStrip},
		Main:        mainID,
		IOMap:       mixer.IOMap{mainID: mixer.IOPair{In: mixer.MixInput(), Out: mixer.NoInput()}},
		AuxChannels: make(mixer.AuxChannels),
		AuxSends:    make(mixer.AuxSends),
	})
	s.Fx.Set(fx.NewState())
	s.External.Set(external.NewState())
	return s
}

// cloneMap returns a shallow copy of m: a reducer's standard first
// step before mutating one entry, so the pre-mutation map (still
// referenced by whatever box snapshot a concurrent selector captured)
// is never touched in place. A plain copy-on-whole-map-write beats a
// structurally-shared tree for maps this small (channel counts, fx
// chains) evaluated once per user action, not once per audio period.
func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// channelIDs/deviceIDs are the process-wide generators behind every
// minted channel and external-device identifier; the engine requires that
// identifiers never recycle while the process is alive, so they are
// shared by every State rather than reset per aggregate.
var (
	channelIDs mixer.ChannelIDGenerator
	deviceIDs  external.DeviceIDGenerator
)

// bumpAudioGraph marks that an audio-graph-affecting change happened,
// for the engine-rebuild middleware to observe.
func (s *State) bumpAudioGraph() { s.AudioGraphUpdateCount++ }

// bumpSoloState marks that a solo-state-affecting change happened.
func (s *State) bumpSoloState() { s.SoloStateUpdateCount++ }
