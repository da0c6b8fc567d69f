package state

import (
	"fmt"

	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// InsertInternalFxModule places a built-in module into a channel's
// chain. The module's parameters, streams and initial values are
// resolved by the caller (internal/fxmodule's registry) before
// dispatch — the declarative state itself never knows how a
// particular internal DSP kind maps its keys to parameters, only that
// it has some. MIDI CC assignment bookkeeping is separate; internal/
// midi owns that concern end to end.
type InsertInternalFxModule struct {
	ChainID  mixer.ChannelID
	Position int
	ModuleID fx.ModuleID
	Module   fx.Module
	Active   bool
}

func (a InsertInternalFxModule) Reduce(s *State) error {
	return insertFxModule(s, a.ChainID, a.Position, a.ModuleID, a.Module, a.Active)
}

// InsertLadspaFxModule is identical to
// [InsertInternalFxModule] except the supplied [fx.Module] binds a
// live LADSPA instance, or an unavailable-LADSPA placeholder when
// the referenced plug-in id can't be resolved.
type InsertLadspaFxModule struct {
	ChainID  mixer.ChannelID
	Position int
	ModuleID fx.ModuleID
	Module   fx.Module
	Active   bool
}

func (a InsertLadspaFxModule) Reduce(s *State) error {
	return insertFxModule(s, a.ChainID, a.Position, a.ModuleID, a.Module, a.Active)
}

func insertFxModule(s *State, chainID mixer.ChannelID, position int, modID fx.ModuleID, mod fx.Module, active bool) error {
	mixLock := s.Mixer.Lock()
	defer mixLock.Close()
	if _, ok := mixLock.Value().Channels[chainID]; !ok {
		return fmt.Errorf("state: unknown mixer channel %v", chainID.Raw())
	}

	bypass := s.Params.AddBool(newBypassDescriptor(active))

	fxLock := s.Fx.Lock()
	defer fxLock.Close()
	st := fxLock.Value()

	st.Modules = cloneMap(st.Modules)
	st.Modules[modID] = mod

	st.ActiveModules = cloneMap(st.ActiveModules)
	st.ActiveModules[modID] = bypass

	st.Chains = cloneMap(st.Chains)
	chain := cloneSlice(st.Chains[chainID])
	if position < 0 || position > len(chain) {
		position = len(chain)
	}
	chain = append(chain, fx.ModuleID{})
	copy(chain[position+1:], chain[position:])
	chain[position] = modID
	st.Chains[chainID] = chain

	s.bumpAudioGraph()
	return nil
}

// MoveFxModuleUp swaps a module with its predecessor in the chain.
type MoveFxModuleUp struct {
	ChainID  mixer.ChannelID
	ModuleID fx.ModuleID
}

func (a MoveFxModuleUp) Reduce(s *State) error {
	return moveFxModule(s, a.ChainID, a.ModuleID, fx.MoveUp)
}

// MoveFxModuleDown swaps a module with its successor in the chain.
type MoveFxModuleDown struct {
	ChainID  mixer.ChannelID
	ModuleID fx.ModuleID
}

func (a MoveFxModuleDown) Reduce(s *State) error {
	return moveFxModule(s, a.ChainID, a.ModuleID, fx.MoveDown)
}

func moveFxModule(s *State, chainID mixer.ChannelID, modID fx.ModuleID, move func([]fx.ModuleID, int) []fx.ModuleID) error {
	lock := s.Fx.Lock()
	defer lock.Close()
	st := lock.Value()

	chain, ok := st.Chains[chainID]
	if !ok {
		return fmt.Errorf("state: unknown fx chain for channel %v", chainID.Raw())
	}
	pos := indexOf(chain, modID)
	if pos < 0 {
		return fmt.Errorf("state: module %v not in chain %v", modID.Raw(), chainID.Raw())
	}

	st.Chains = cloneMap(st.Chains)
	st.Chains[chainID] = move(cloneSlice(chain), pos)

	s.bumpAudioGraph()
	return nil
}

func indexOf(chain []fx.ModuleID, modID fx.ModuleID) int {
	for i, id := range chain {
		if id == modID {
			return i
		}
	}
	return -1
}

// ToggleFocusedFxModuleBypass flips the bypass bit of
// state.FocusedModule (set by whatever GUI selection action focused
// it), taking the normal audio-graph-affecting parameter path rather
// than a special case.
type ToggleFocusedFxModuleBypass struct{}

func (ToggleFocusedFxModuleBypass) Reduce(s *State) error {
	fxState := s.Fx.Get()
	boolID, ok := fxState.ActiveModules[s.FocusedModule]
	if !ok {
		return fmt.Errorf("state: no focused fx module")
	}
	slot := s.Params.Bools.At(boolID)
	slot.Set(!slot.Get())
	s.bumpAudioGraph()
	return nil
}

// ShowFxBrowser records which chain the GUI's fx browser targets:
// pure GUI-selection state, not audio-graph-affecting.
type ShowFxBrowser mixer.ChannelID

func (a ShowFxBrowser) Reduce(s *State) error {
	s.FocusedFxChain = mixer.ChannelID(a)
	return nil
}

// FocusFxModule records which fx module ToggleFocusedFxModuleBypass
// should act on — the store tracks no other notion of GUI selection,
// so the toggle needs somewhere to read from.
type FocusFxModule fx.ModuleID

func (a FocusFxModule) Reduce(s *State) error {
	s.FocusedModule = fx.ModuleID(a)
	return nil
}

// ReplaceMissingLadspaFxModule relinks an unavailable-LADSPA
// placeholder once the real plug-in becomes available: it transfers the active
// bit and parameter values from an unavailable-LADSPA placeholder
// into a freshly bound real instance and removes the placeholder
// bookkeeping, via [fx.ReplaceMissingLadspa].
type ReplaceMissingLadspaFxModule struct {
	ModuleID fx.ModuleID
	LadspaID fx.LadspaInstanceID

	// Module, when populated, is the freshly bound live instance with
	// its parameters already registered; the placeholder's saved
	// values are written into them during the swap. Left zero, the
	// swap keeps the placeholder's (empty) parameter set, which is
	// enough for callers that relink state without rebinding
	// parameters.
	Module fx.Module
}

func (a ReplaceMissingLadspaFxModule) Reduce(s *State) error {
	lock := s.Fx.Lock()
	defer lock.Close()
	st := lock.Value()

	old, ok := st.Modules[a.ModuleID]
	if !ok {
		return fmt.Errorf("state: unknown fx module %v", a.ModuleID.Raw())
	}
	if old.Instance.Kind != fx.InstanceUnavailableLadspa {
		return fmt.Errorf("state: fx module %v is not an unavailable-LADSPA placeholder", a.ModuleID.Raw())
	}

	replaced := fx.ReplaceMissingLadspa(old, a.LadspaID)
	if a.Module.Parameters != nil {
		replaced.Name = a.Module.Name
		replaced.BusType = a.Module.BusType
		replaced.Parameters = a.Module.Parameters
		replaced.Streams = a.Module.Streams
		for key, v := range old.SavedValues {
			pid, bound := replaced.Parameters[key]
			if !bound {
				continue
			}
			switch {
			case pid.Float.Valid():
				if slot := s.Params.Floats.Find(pid.Float); slot != nil && slot.Param().InRange(v) {
					slot.Set(v)
				}
			case pid.Bool.Valid():
				if slot := s.Params.Bools.Find(pid.Bool); slot != nil {
					slot.Set(v != 0)
				}
			case pid.Int.Valid():
				if slot := s.Params.Ints.Find(pid.Int); slot != nil && slot.Param().InRange(int(v)) {
					slot.Set(int(v))
				}
			case pid.Enum.Valid():
				if slot := s.Params.Enums.Find(pid.Enum); slot != nil && slot.Param().InRange(int(v)) {
					slot.Set(int(v))
				}
			}
		}
		replaced.SavedValues = nil
	}

	st.Modules = cloneMap(st.Modules)
	st.Modules[a.ModuleID] = replaced

	s.bumpAudioGraph()
	return nil
}

func newBypassDescriptor(active bool) param.Descriptor[bool] {
	return param.Descriptor[bool]{
		Name:    "active",
		Default: active,
		Flags:   param.AudioGraphAffecting,
	}
}
