// Package fx implements the fx-chain state: the module
// registry, each module's instance binding (an internal DSP kind, a
// live LADSPA plug-in, or a placeholder standing in for one that
// failed to load), and the per-channel chain ordering.
package fx

import (
	"github.com/dkotrev/piejam-engine-go/internal/id"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
	"github.com/dkotrev/piejam-engine-go/internal/stream"
)

type moduleTag struct{}

// ModuleID identifies one fx-chain module instance.
type ModuleID = id.Typed[moduleTag]

// ModuleIDGenerator mints fresh [ModuleID] values.
type ModuleIDGenerator = id.TypedGenerator[moduleTag]

// InternalKind names one of the built-in, non-LADSPA processor
// kinds; only the kind tag and the processor contract it must
// satisfy are modelled here.
type InternalKind string

const (
	Filter   InternalKind = "filter"
	Tuner    InternalKind = "tuner"
	Scope    InternalKind = "scope"
	Spectrum InternalKind = "spectrum"
	Utility  InternalKind = "utility"
	DualPan  InternalKind = "dual_pan"
)

// LadspaInstanceID identifies a loaded LADSPA plug-in instance,
// opaque beyond its identity (plug-in loading lives outside this
// module).
type ladspaTag struct{}
type LadspaInstanceID = id.Typed[ladspaTag]

// LadspaInstanceIDGenerator mints fresh [LadspaInstanceID] values.
type LadspaInstanceIDGenerator = id.TypedGenerator[ladspaTag]

// InstanceKind distinguishes the three shapes an fx module's DSP
// binding can take.
type InstanceKind int

const (
	InstanceInternal InstanceKind = iota
	InstanceLadspa
	InstanceUnavailableLadspa
)

// Instance is the union
// fx_instance_id ∈ {InternalId | LadspaInstanceId | UnavailableLadspaId}.
// UnavailablePluginUID preserves the plug-in identifier that failed to
// resolve so a later ReplaceMissingLadspaFxModule can relink it.
type Instance struct {
	Kind InstanceKind

	Internal             InternalKind
	Ladspa               LadspaInstanceID
	UnavailablePluginUID uint64
}

// NewInternalInstance builds an Instance bound to a built-in DSP kind.
func NewInternalInstance(k InternalKind) Instance {
	return Instance{Kind: InstanceInternal, Internal: k}
}

// NewLadspaInstance builds an Instance bound to a live LADSPA plug-in.
func NewLadspaInstance(ladspaID LadspaInstanceID) Instance {
	return Instance{Kind: InstanceLadspa, Ladspa: ladspaID}
}

// NewUnavailableLadspaInstance builds a placeholder Instance standing
// in for a LADSPA plug-in referenced by a loaded session that isn't
// actually installed.
func NewUnavailableLadspaInstance(pluginUID uint64) Instance {
	return Instance{Kind: InstanceUnavailableLadspa, UnavailablePluginUID: pluginUID}
}

// ParameterKey names one of an fx module's own parameters (e.g.
// "cutoff", "resonance"); the concrete set of keys is defined by each
// internal DSP kind's registration, not by this package.
type ParameterKey string

// Module is one entry in the fx-module registry.
type Module struct {
	Instance Instance

	Name    string
	BusType mixer.ChannelType

	Parameters map[ParameterKey]param.AnyID
	Streams    map[ParameterKey]stream.ID

	// SavedValues/SavedMidiAssigns carry an unavailable-LADSPA
	// placeholder's persisted parameter values and MIDI assignments
	//: the placeholder registers no
	// live parameters of its own, so the session's raw values ride
	// along here until ReplaceMissingLadspaFxModule transfers them
	// into a real instance.
	SavedValues      map[ParameterKey]float64
	SavedMidiAssigns map[ParameterKey]int
}

// State is the fx-chain state
type State struct {
	Modules map[ModuleID]Module

	// ActiveModules stores each module's bypass bit as a first-class
	// bool parameter so toggling it takes the normal
	// audio-graph-affecting reducer path instead of a special case.
	ActiveModules map[ModuleID]param.BoolID

	// Chains is the per-channel fx ordering: mixer.ChannelID ->
	// ordered module ids, processed front-to-back between a channel's
	// input and output components.
	Chains map[mixer.ChannelID][]ModuleID
}

// NewState returns an empty fx state.
func NewState() State {
	return State{
		Modules:       make(map[ModuleID]Module),
		ActiveModules: make(map[ModuleID]param.BoolID),
		Chains:        make(map[mixer.ChannelID][]ModuleID),
	}
}

// IsActive reports whether mod's bypass bit is currently on (i.e. the
// module is part of the live audio graph rather than bypassed).
func IsActive(mod ModuleID, st State, params *param.Parameters) bool {
	boolID, ok := st.ActiveModules[mod]
	if !ok {
		return false
	}
	return params.Bools.At(boolID).Get()
}

// MoveUp swaps chain[pos] with chain[pos-1], the reducer behind
// MoveFxModuleUp; it is a no-op if pos is already at the front.
func MoveUp(chain []ModuleID, pos int) []ModuleID {
	if pos <= 0 || pos >= len(chain) {
		return chain
	}
	chain[pos-1], chain[pos] = chain[pos], chain[pos-1]
	return chain
}

// MoveDown swaps chain[pos] with chain[pos+1], the reducer behind
// MoveFxModuleDown; it is a no-op if pos is already at the back.
func MoveDown(chain []ModuleID, pos int) []ModuleID {
	if pos < 0 || pos >= len(chain)-1 {
		return chain
	}
	chain[pos], chain[pos+1] = chain[pos+1], chain[pos]
	return chain
}

// ReplaceMissingLadspa transfers an unavailable-LADSPA placeholder's
// identity into a freshly loaded real instance and returns the
// updated module. It panics if old isn't actually an
// unavailable-LADSPA placeholder.
func ReplaceMissingLadspa(old Module, newLadspaID LadspaInstanceID) Module {
	if old.Instance.Kind != InstanceUnavailableLadspa {
		panic("fx: ReplaceMissingLadspa called on a module that isn't an unavailable-LADSPA placeholder")
	}
	replaced := old
	uid := old.Instance.UnavailablePluginUID
	replaced.Instance = NewLadspaInstance(newLadspaID)
	// The plug-in identity survives the relink so a later save still
	// names the same plug-in.
	replaced.Instance.UnavailablePluginUID = uid
	return replaced
}
