package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/state"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

func addChannel(t *testing.T, s *state.State, typ mixer.ChannelType, name string) mixer.ChannelID {
	t.Helper()
	before := s.Mixer.Get()
	err := state.Reduce(s, state.AddMixerChannel{Type: typ, Name: name})
	require.NoError(t, err)
	after := s.Mixer.Get()
	for id := range after.Channels {
		if _, existed := before.Channels[id]; !existed {
			return id
		}
	}
	t.Fatal("no channel added")
	return mixer.ChannelID{}
}

func TestAddMixerChannel_BumpsAudioGraphAndSoloCounters(t *testing.T) {
	s := state.New()
	before := s.AudioGraphUpdateCount
	beforeSolo := s.SoloStateUpdateCount

	addChannel(t, s, mixer.Stereo, "A")

	assert.Equal(t, before+1, s.AudioGraphUpdateCount)
	assert.Equal(t, beforeSolo+1, s.SoloStateUpdateCount)
}

func TestSetMixerChannelRoute_RejectsCycle(t *testing.T) {
	// A -> B -> C with mix inputs enabled; routing A.in = C must be
	// rejected and state must remain unchanged.
	s := state.New()
	a := addChannel(t, s, mixer.Stereo, "A")
	b := addChannel(t, s, mixer.Stereo, "B")
	c := addChannel(t, s, mixer.Stereo, "C")

	require.NoError(t, state.Reduce(s, state.SetMixerChannelRoute{
		ChannelID: b, Socket: state.SocketIn, Route: mixer.ToChannel(a),
	}))
	require.NoError(t, state.Reduce(s, state.SetMixerChannelRoute{
		ChannelID: c, Socket: state.SocketIn, Route: mixer.ToChannel(b),
	}))

	before := s.Mixer.Get()

	err := state.Reduce(s, state.SetMixerChannelRoute{
		ChannelID: a, Socket: state.SocketIn, Route: mixer.ToChannel(c),
	})

	assert.Error(t, err)
	after := s.Mixer.Get()
	assert.Equal(t, before.IOMap[a], after.IOMap[a])
}

func TestSetMixerChannelRoute_AcceptsAcyclicRewire(t *testing.T) {
	s := state.New()
	a := addChannel(t, s, mixer.Stereo, "A")
	b := addChannel(t, s, mixer.Stereo, "B")

	err := state.Reduce(s, state.SetMixerChannelRoute{
		ChannelID: b, Socket: state.SocketIn, Route: mixer.ToChannel(a),
	})

	require.NoError(t, err)
	assert.Equal(t, mixer.ToChannel(a), s.Mixer.Get().IOMap[b].In)
}

func TestDeleteMixerChannel_ClearsDanglingRoutes(t *testing.T) {
	s := state.New()
	a := addChannel(t, s, mixer.Stereo, "A")
	b := addChannel(t, s, mixer.Stereo, "B")
	require.NoError(t, state.Reduce(s, state.SetMixerChannelRoute{
		ChannelID: b, Socket: state.SocketIn, Route: mixer.ToChannel(a),
	}))

	require.NoError(t, state.Reduce(s, state.DeleteMixerChannel(a)))

	st := s.Mixer.Get()
	_, exists := st.Channels[a]
	assert.False(t, exists)
	assert.Equal(t, mixer.NoInput(), st.IOMap[b].In)
}

func TestSetFloatParameterValue_RejectsOutOfRange(t *testing.T) {
	s := state.New()
	a := addChannel(t, s, mixer.Stereo, "A")
	volumeID := s.Mixer.Get().Channels[a].Volume

	err := state.Reduce(s, state.SetFloatParameterValue{ID: volumeID, Value: 99})
	assert.Error(t, err)
}

func TestSetFloatParameterValue_BumpsAudioGraphCounter(t *testing.T) {
	s := state.New()
	a := addChannel(t, s, mixer.Stereo, "A")
	volumeID := s.Mixer.Get().Channels[a].Volume
	before := s.AudioGraphUpdateCount

	require.NoError(t, state.Reduce(s, state.SetFloatParameterValue{ID: volumeID, Value: 0.5}))

	assert.Equal(t, before+1, s.AudioGraphUpdateCount)
	assert.InDelta(t, 0.5, s.Params.Floats.At(volumeID).Get(), 1e-9)
}
