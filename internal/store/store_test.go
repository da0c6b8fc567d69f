package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/fxmodule"
	"github.com/dkotrev/piejam-engine-go/internal/session"
	"github.com/dkotrev/piejam-engine-go/internal/state"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
	"github.com/dkotrev/piejam-engine-go/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *fxmodule.Registry) {
	t.Helper()
	st := state.New()
	reg := fxmodule.NewRegistry(st.Params)
	s := store.New(st, store.DefaultMiddlewares(
		store.PersistenceMiddleware(store.FileSessionIO{}, reg), nil)...)
	return s, reg
}

func channelByName(s *store.Store, name string) (mixer.ChannelID, mixer.Channel, bool) {
	mixSt := s.State().Mixer.Get()
	for id, ch := range mixSt.Channels {
		if ch.Name == name {
			return id, ch, true
		}
	}
	return mixer.ChannelID{}, mixer.Channel{}, false
}

func TestDispatch_ThunkDoesNotReenterReducer(t *testing.T) {
	s, _ := newTestStore(t)

	var observedInsideThunk int
	s.Dispatch(store.Thunk(func(get store.GetStateFunc, dispatch store.DispatchFunc) {
		dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "A"})
		// The inner dispatch is queued, not run inline: the channel
		// must not exist yet while the thunk is still on the stack.
		observedInsideThunk = len(get().Mixer.Get().Inputs)
	}))

	assert.Equal(t, 0, observedInsideThunk)
	assert.Len(t, s.State().Mixer.Get().Inputs, 1)
}

func TestDispatch_QueuedActionsRunInOrder(t *testing.T) {
	s, _ := newTestStore(t)

	s.Dispatch(store.Thunk(func(_ store.GetStateFunc, dispatch store.DispatchFunc) {
		dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "first"})
		dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "second"})
	}))

	mixSt := s.State().Mixer.Get()
	require.Len(t, mixSt.Inputs, 2)
	assert.Equal(t, "first", mixSt.Channels[mixSt.Inputs[0]].Name)
	assert.Equal(t, "second", mixSt.Channels[mixSt.Inputs[1]].Name)
}

func TestRebuildMiddleware_EdgeTriggersOnCounter(t *testing.T) {
	st := state.New()
	reg := fxmodule.NewRegistry(st.Params)

	rebuilds := 0
	s := store.New(st, store.DefaultMiddlewares(
		store.PersistenceMiddleware(store.FileSessionIO{}, reg),
		func(*state.State) { rebuilds++ },
	)...)

	s.Dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "A"})
	require.Equal(t, 1, rebuilds)

	// A pure GUI-selection action leaves the counter alone.
	id, _, ok := channelByName(s, "A")
	require.True(t, ok)
	s.Dispatch(state.ShowFxBrowser(id))
	assert.Equal(t, 1, rebuilds)
}

type midiAction struct {
	state.Reducible
}

func (midiAction) FromMIDI() bool { return true }

func TestMidiControlMiddleware_DropsDuringSuppression(t *testing.T) {
	s, _ := newTestStore(t)
	s.Dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "A"})
	_, ch, ok := channelByName(s, "A")
	require.True(t, ok)

	s.SuppressMIDI()
	s.Dispatch(midiAction{state.SetFloatParameterValue{ID: ch.Volume, Value: 0.25}})
	assert.InDelta(t, 1.0, s.State().Params.Floats.At(ch.Volume).Get(), 1e-9)

	s.ResumeMIDI()
	s.Dispatch(midiAction{state.SetFloatParameterValue{ID: ch.Volume, Value: 0.25}})
	assert.InDelta(t, 0.25, s.State().Params.Floats.At(ch.Volume).Get(), 1e-9)
}

func TestSubscribe_FiresOnSelectorChangeOnly(t *testing.T) {
	s, _ := newTestStore(t)

	var seen []int
	store.Subscribe(s, func(st *state.State) int {
		return len(st.Mixer.Get().Inputs)
	}, func(n int) { seen = append(seen, n) })

	s.Dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "A"})
	id, _, ok := channelByName(s, "A")
	require.True(t, ok)
	s.Dispatch(state.ShowFxBrowser(id)) // no strip-count change
	s.Dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "B"})

	assert.Equal(t, []int{1, 2}, seen)
}

func TestObserveOnce_ReturnsCurrentValue(t *testing.T) {
	s, _ := newTestStore(t)
	s.Dispatch(state.AddMixerChannel{Type: mixer.Mono, Name: "A"})

	n := store.ObserveOnce(s, func(st *state.State) int {
		return len(st.Mixer.Get().Inputs)
	})
	assert.Equal(t, 1, n)
}

func TestSession_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.yaml")

	s, reg := newTestStore(t)
	s.Dispatch(state.AddMixerChannel{Type: mixer.Stereo, Name: "Git"})
	chID, ch, ok := channelByName(s, "Git")
	require.True(t, ok)
	s.Dispatch(state.SetFloatParameterValue{ID: ch.Volume, Value: 0.5})

	mod := reg.NewUtility(mixer.Stereo)
	s.Dispatch(state.InsertInternalFxModule{
		ChainID: chID, Position: 0, ModuleID: reg.NextModuleID(), Module: mod, Active: true,
	})
	s.Dispatch(state.SetFloatParameterValue{ID: mod.Parameters["gain"].Float, Value: 1.5})

	s.Dispatch(store.SaveSessionRequested{Path: path})

	s2, _ := newTestStore(t)
	s2.Dispatch(store.LoadSessionRequested{Path: path})

	chID2, ch2, ok := channelByName(s2, "Git")
	require.True(t, ok)
	st2 := s2.State()
	assert.InDelta(t, 0.5, st2.Params.Floats.At(ch2.Volume).Get(), 1e-9)

	chain := st2.Fx.Get().Chains[chID2]
	require.Len(t, chain, 1)
	loaded := st2.Fx.Get().Modules[chain[0]]
	assert.Equal(t, fx.Utility, loaded.Instance.Internal)
	assert.InDelta(t, 1.5, st2.Params.Floats.At(loaded.Parameters["gain"].Float).Get(), 1e-9)
	assert.True(t, fx.IsActive(chain[0], st2.Fx.Get(), st2.Params))
}

func TestSession_MissingLadspaLoadsAsPlaceholder(t *testing.T) {
	// A session referring to an uninstalled plug-in loads as an
	// unavailable-LADSPA placeholder that preserves the stored values
	// and assignments; replacing it transfers them into the real
	// module.
	path := filepath.Join(t.TempDir(), "mix.yaml")
	require.NoError(t, session.Save(path, session.Session{
		Channels: []session.Channel{{
			Name: "Git", Type: "stereo",
			Values: session.ParameterValues{Volume: 1},
			In:     session.IORoute{Kind: "none"},
			Out:    session.IORoute{Kind: "channel", Name: "Main"},
			FxChain: []session.FxModule{{
				Kind: "ladspa", LadspaUID: 0xDEADBEEF, Active: true,
				Parameters:  map[string]float64{"gain": 0.5},
				MidiAssigns: map[string]int{"gain": 21},
			}},
		}},
	}))

	s, reg := newTestStore(t)
	s.Dispatch(store.LoadSessionRequested{Path: path})

	chID, _, ok := channelByName(s, "Git")
	require.True(t, ok)
	st := s.State()
	chain := st.Fx.Get().Chains[chID]
	require.Len(t, chain, 1)

	placeholder := st.Fx.Get().Modules[chain[0]]
	assert.Equal(t, fx.InstanceUnavailableLadspa, placeholder.Instance.Kind)
	assert.Equal(t, uint64(0xDEADBEEF), placeholder.Instance.UnavailablePluginUID)
	assert.Equal(t, 0.5, placeholder.SavedValues["gain"])
	assert.Equal(t, 21, placeholder.SavedMidiAssigns["gain"])
	assert.True(t, fx.IsActive(chain[0], st.Fx.Get(), st.Params))

	var ladspaIDs fx.LadspaInstanceIDGenerator
	live := reg.NewUtility(mixer.Stereo)
	s.Dispatch(state.ReplaceMissingLadspaFxModule{
		ModuleID: chain[0], LadspaID: ladspaIDs.Next(), Module: live,
	})

	replaced := s.State().Fx.Get().Modules[chain[0]]
	assert.Equal(t, fx.InstanceLadspa, replaced.Instance.Kind)
	assert.Equal(t, uint64(0xDEADBEEF), replaced.Instance.UnavailablePluginUID)
	assert.InDelta(t, 0.5, st.Params.Floats.At(live.Parameters["gain"].Float).Get(), 1e-9)
	assert.True(t, fx.IsActive(chain[0], s.State().Fx.Get(), st.Params))
	assert.Equal(t, 21, replaced.SavedMidiAssigns["gain"])
}

func TestSession_PlaceholderSurvivesResave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.yaml")
	require.NoError(t, session.Save(path, session.Session{
		Channels: []session.Channel{{
			Name: "Git", Type: "stereo",
			Values: session.ParameterValues{Volume: 1},
			Out:    session.IORoute{Kind: "channel", Name: "Main"},
			FxChain: []session.FxModule{{
				Kind: "ladspa", LadspaUID: 42, Active: false,
				Parameters: map[string]float64{"cutoff": 880},
			}},
		}},
	}))

	s, _ := newTestStore(t)
	s.Dispatch(store.LoadSessionRequested{Path: path})

	resaved := filepath.Join(t.TempDir(), "resaved.yaml")
	s.Dispatch(store.SaveSessionRequested{Path: resaved})

	sess, err := session.Load(resaved)
	require.NoError(t, err)
	require.Len(t, sess.Channels, 1)
	require.Len(t, sess.Channels[0].FxChain, 1)
	f := sess.Channels[0].FxChain[0]
	assert.Equal(t, "ladspa", f.Kind)
	assert.Equal(t, uint64(42), f.LadspaUID)
	assert.Equal(t, 880.0, f.Parameters["cutoff"])
	assert.False(t, f.Active)
}
