package state

import (
	"fmt"

	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// AddMixerChannel registers a new channel with its five first-class
// parameters (volume, pan/balance, record, mute, solo) and appends it
// to the visible channel-strip order. Volume uses [param.FaderMapping]
// rather than a linear mapping.
type AddMixerChannel struct {
	Type mixer.ChannelType
	Name string
}

// newChannelStripParams registers the five first-class parameters
// every mixer channel carries, including the distinguished main
// channel minted by [New] — factored out so both share one
// registration order instead of drifting apart.
func newChannelStripParams(p *param.Parameters) mixer.Channel {
	toNorm, fromNorm := param.FaderMapping(-60)

	volume := p.AddFloat(param.Descriptor[float64]{
		Name: "volume", Min: 0, Max: 2, Default: 1,
		Flags:          param.AudioGraphAffecting,
		ToNormalized:   toNorm,
		FromNormalized: fromNorm,
	})
	pan := p.AddFloat(param.Descriptor[float64]{
		Name: "pan_balance", Min: -1, Max: 1, Default: 0,
		Flags: param.Bipolar | param.AudioGraphAffecting,
	})
	record := p.AddBool(param.Descriptor[bool]{Name: "record", Default: false})
	mute := p.AddBool(param.Descriptor[bool]{Name: "mute", Default: false, Flags: param.AudioGraphAffecting})
	solo := p.AddBool(param.Descriptor[bool]{Name: "solo", Default: false, Flags: param.SoloStateAffecting})

	return mixer.Channel{
		Volume:     volume,
		PanBalance: pan,
		Record:     record,
		Mute:       mute,
		Solo:       solo,
	}
}

func (a AddMixerChannel) Reduce(s *State) error {
	strip := newChannelStripParams(s.Params)

	chID := channelIDs.Next()

	lock := s.Mixer.Lock()
	defer lock.Close()
	st := lock.Value()

	strip.Type = a.Type
	strip.Name = a.Name

	st.Channels = cloneMap(st.Channels)
	st.Channels[chID] = strip

	st.Inputs = append(cloneSlice(st.Inputs), chID)

	st.IOMap = cloneMap(st.IOMap)
	in := mixer.NoInput()
	if a.Type == mixer.Aux {
		// An aux channel always sums whatever sends target it.
		in = mixer.MixInput()
	}
	st.IOMap[chID] = mixer.IOPair{In: in, Out: mixer.ToChannel(st.Main)}

	st.AuxSends = cloneMap(st.AuxSends)
	st.AuxSends[chID] = make(map[mixer.ChannelID]mixer.AuxSend)

	st.AuxChannels = cloneMap(st.AuxChannels)
	if a.Type == mixer.Aux {
		st.AuxChannels[chID] = mixer.AuxChannel{
			DefaultFaderTap: s.Params.AddInt(param.Descriptor[int]{
				Name: "default_fader_tap",
				Min:  int(mixer.AuxChannelTapPost), Max: int(mixer.AuxChannelTapPre),
				Default: int(mixer.AuxChannelTapPost),
				Flags:   param.AudioGraphAffecting,
			}),
		}
		// Every existing non-aux strip gets a send to the new bus,
		// each owning its own active/fader-tap/volume parameter
		// triple.
		for otherID, other := range st.Channels {
			if otherID == chID || otherID == st.Main || other.Type == mixer.Aux {
				continue
			}
			sends := cloneMap(st.AuxSends[otherID])
			sends[chID] = newAuxSendParams(s.Params)
			st.AuxSends[otherID] = sends
		}
	} else {
		for auxID := range st.AuxChannels {
			st.AuxSends[chID][auxID] = newAuxSendParams(s.Params)
		}
	}

	s.bumpAudioGraph()
	s.bumpSoloState()
	return nil
}

// newAuxSendParams registers the three parameters every aux send
// owns.
func newAuxSendParams(p *param.Parameters) mixer.AuxSend {
	toNorm, fromNorm := param.FaderMapping(-60)
	return mixer.AuxSend{
		Active: p.AddBool(param.Descriptor[bool]{
			Name: "aux_active", Default: false, Flags: param.AudioGraphAffecting,
		}),
		FaderTap: p.AddEnum(param.Descriptor[int]{
			Name: "fader_tap",
			Min:  int(mixer.AuxTapAuto), Max: int(mixer.AuxTapPre),
			Default: int(mixer.AuxTapAuto),
			Flags:   param.AudioGraphAffecting,
		}),
		Volume: p.AddFloat(param.Descriptor[float64]{
			Name: "aux_volume", Min: 0, Max: 2, Default: 1,
			Flags:          param.AudioGraphAffecting,
			ToNormalized:   toNorm,
			FromNormalized: fromNorm,
		}),
	}
}

// DeleteMixerChannel removes a channel outright. It also clears
// any routing, aux sends, or fx chain referencing the removed
// channel, which is itself an audio-graph-affecting structural
// change.
type DeleteMixerChannel mixer.ChannelID

func (a DeleteMixerChannel) Reduce(s *State) error {
	chID := mixer.ChannelID(a)

	lock := s.Mixer.Lock()
	defer lock.Close()
	st := lock.Value()

	ch, ok := st.Channels[chID]
	if !ok {
		return fmt.Errorf("state: unknown mixer channel %v", chID.Raw())
	}
	if chID == st.Main {
		return fmt.Errorf("state: cannot delete the main channel")
	}

	st.Channels = cloneMap(st.Channels)
	delete(st.Channels, chID)

	filtered := st.Inputs[:0:0]
	for _, id := range st.Inputs {
		if id != chID {
			filtered = append(filtered, id)
		}
	}
	st.Inputs = filtered

	st.IOMap = cloneMap(st.IOMap)
	delete(st.IOMap, chID)
	for otherID, io := range st.IOMap {
		if io.In.Kind == mixer.IOChannel && io.In.Channel == chID {
			io.In = mixer.NoInput()
			st.IOMap[otherID] = io
		}
		if io.Out.Kind == mixer.IOChannel && io.Out.Channel == chID {
			io.Out = mixer.NoInput()
			st.IOMap[otherID] = io
		}
	}

	removeAuxSendParams := func(send mixer.AuxSend) {
		s.Params.Bools.Remove(send.Active)
		s.Params.Enums.Remove(send.FaderTap)
		s.Params.Floats.Remove(send.Volume)
	}

	st.AuxSends = cloneMap(st.AuxSends)
	for _, send := range st.AuxSends[chID] {
		removeAuxSendParams(send)
	}
	delete(st.AuxSends, chID)
	for srcID, sends := range st.AuxSends {
		if send, ok := sends[chID]; ok {
			removeAuxSendParams(send)
			sends = cloneMap(sends)
			delete(sends, chID)
			st.AuxSends[srcID] = sends
		}
	}

	// The strip's own five parameters go with it; ids never recycle,
	// so a stale cached read in a not-yet-rebuilt graph just keeps
	// seeing the last written value.
	s.Params.Floats.Remove(ch.Volume)
	s.Params.Floats.Remove(ch.PanBalance)
	s.Params.Bools.Remove(ch.Record)
	s.Params.Bools.Remove(ch.Mute)
	s.Params.Bools.Remove(ch.Solo)

	if auxCh, isAux := st.AuxChannels[chID]; isAux {
		s.Params.Ints.Remove(auxCh.DefaultFaderTap)
	}
	st.AuxChannels = cloneMap(st.AuxChannels)
	delete(st.AuxChannels, chID)

	fxLock := s.Fx.Lock()
	defer fxLock.Close()
	fxSt := fxLock.Value()
	if chain := fxSt.Chains[chID]; len(chain) > 0 {
		fxSt.Modules = cloneMap(fxSt.Modules)
		fxSt.ActiveModules = cloneMap(fxSt.ActiveModules)
		for _, modID := range chain {
			if boolID, ok := fxSt.ActiveModules[modID]; ok {
				s.Params.Bools.Remove(boolID)
			}
			delete(fxSt.Modules, modID)
			delete(fxSt.ActiveModules, modID)
		}
	}
	fxSt.Chains = cloneMap(fxSt.Chains)
	delete(fxSt.Chains, chID)

	s.bumpAudioGraph()
	return nil
}

// ToggleAuxSend is the reducer behind the GUI's aux-send enable
// control; gated by [mixer.CanToggleAux] so an enable that would close
// a routing cycle is rejected the same way SetMixerChannelRoute is.
type ToggleAuxSend struct {
	From, To mixer.ChannelID
}

func (a ToggleAuxSend) Reduce(s *State) error {
	lock := s.Mixer.Lock()
	defer lock.Close()
	st := lock.Value()

	sends, ok := st.AuxSends[a.From]
	if !ok {
		return fmt.Errorf("state: channel %v has no aux sends", a.From.Raw())
	}
	send, ok := sends[a.To]
	if !ok {
		return fmt.Errorf("state: channel %v has no aux send to %v", a.From.Raw(), a.To.Raw())
	}
	if !mixer.CanToggleAux(a.From, a.To, st.IOMap, st.AuxSends, s.Params) {
		return fmt.Errorf("state: enabling aux send %v -> %v would create a routing cycle", a.From.Raw(), a.To.Raw())
	}

	activeSlot := s.Params.Bools.At(send.Active)
	activeSlot.Set(!activeSlot.Get())

	s.bumpAudioGraph()
	return nil
}
