package state

import (
	"fmt"

	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// Reducible is implemented by every action that mutates [State]
// directly, the terminal stage of the middleware chain.
// Actions that are instead callables (thunks) are handled by the
// thunk middleware in internal/store and never reach a Reducible
// type-switch.
type Reducible interface {
	Reduce(s *State) error
}

// --- Parameter mutation ---

// SetBoolParameterValue is the bool-parameter instance of
// "SetParameterValue(id, value)"; the action surface keeps one
// concrete type per value domain rather than a single any-typed
// action so the reducer never needs a runtime type assertion on the
// value itself, only on which field of the [param.AnyID] union was
// populated.
type SetBoolParameterValue struct {
	ID    param.BoolID
	Value bool
}

func (a SetBoolParameterValue) Reduce(s *State) error {
	slot := s.Params.Bools.Find(a.ID)
	if slot == nil {
		return fmt.Errorf("state: unknown bool parameter %v", a.ID.Raw())
	}
	if !slot.Param().InRange(a.Value) {
		return fmt.Errorf("state: bool parameter %v value out of range", a.ID.Raw())
	}
	slot.Set(a.Value)
	bumpFlagCounters(s, slot.Param().Flags)
	return nil
}

// SetIntParameterValue is the int-parameter instance.
type SetIntParameterValue struct {
	ID    param.IntID
	Value int
}

func (a SetIntParameterValue) Reduce(s *State) error {
	slot := s.Params.Ints.Find(a.ID)
	if slot == nil {
		return fmt.Errorf("state: unknown int parameter %v", a.ID.Raw())
	}
	if !slot.Param().InRange(a.Value) {
		return fmt.Errorf("state: int parameter %v value out of range", a.ID.Raw())
	}
	slot.Set(a.Value)
	bumpFlagCounters(s, slot.Param().Flags)
	return nil
}

// SetEnumParameterValue is the enum(int)-parameter instance.
type SetEnumParameterValue struct {
	ID    param.EnumID
	Value int
}

func (a SetEnumParameterValue) Reduce(s *State) error {
	slot := s.Params.Enums.Find(a.ID)
	if slot == nil {
		return fmt.Errorf("state: unknown enum parameter %v", a.ID.Raw())
	}
	if !slot.Param().InRange(a.Value) {
		return fmt.Errorf("state: enum parameter %v value out of range", a.ID.Raw())
	}
	slot.Set(a.Value)
	bumpFlagCounters(s, slot.Param().Flags)
	return nil
}

// SetFloatParameterValue is the float-parameter instance.
type SetFloatParameterValue struct {
	ID    param.FloatID
	Value float64
}

func (a SetFloatParameterValue) Reduce(s *State) error {
	slot := s.Params.Floats.Find(a.ID)
	if slot == nil {
		return fmt.Errorf("state: unknown float parameter %v", a.ID.Raw())
	}
	if !slot.Param().InRange(a.Value) {
		return fmt.Errorf("state: float parameter %v value out of range", a.ID.Raw())
	}
	slot.Set(a.Value)
	bumpFlagCounters(s, slot.Param().Flags)
	return nil
}

func bumpFlagCounters(s *State, flags param.Flags) {
	if flags.Has(param.AudioGraphAffecting) {
		s.bumpAudioGraph()
	}
	if flags.Has(param.SoloStateAffecting) {
		s.bumpSoloState()
	}
}

// --- Routing ---

// Socket selects which side of a channel's route an action targets.
type Socket int

const (
	SocketIn Socket = iota
	SocketOut
)

// SetMixerChannelRoute rewires one side of a channel's route. The
// reducer asserts the routing-acyclicity invariant via
// internal/state/mixer.ValidChannels/IsMixInputValid before
// committing — a rejected route leaves state unchanged.
type SetMixerChannelRoute struct {
	ChannelID mixer.ChannelID
	Socket    Socket
	Route     mixer.IOAddress
}

func (a SetMixerChannelRoute) Reduce(s *State) error {
	lock := s.Mixer.Lock()
	defer lock.Close()
	st := lock.Value()

	io, ok := st.IOMap[a.ChannelID]
	if !ok {
		return fmt.Errorf("state: unknown mixer channel %v", a.ChannelID.Raw())
	}

	if !a.routeIsValid(st, s.Params) {
		return fmt.Errorf("state: route for channel %v would create a routing cycle", a.ChannelID.Raw())
	}

	st.IOMap = cloneMap(st.IOMap)
	switch a.Socket {
	case SocketIn:
		io.In = a.Route
	case SocketOut:
		io.Out = a.Route
	}
	st.IOMap[a.ChannelID] = io

	s.bumpAudioGraph()
	return nil
}

func (a SetMixerChannelRoute) routeIsValid(st *mixer.State, params *param.Parameters) bool {
	if a.Route.Kind == mixer.IOMix {
		return mixer.IsMixInputValid(a.ChannelID, st.IOMap, st.AuxSends, params)
	}
	if a.Route.Kind != mixer.IOChannel {
		return true
	}
	dir := mixer.Input
	if a.Socket == SocketOut {
		dir = mixer.Output
	}
	for _, candidate := range mixer.ValidChannels(a.ChannelID, dir, st.Channels, st.IOMap, st.AuxSends, params) {
		if candidate == a.Route.Channel {
			return true
		}
	}
	return false
}
