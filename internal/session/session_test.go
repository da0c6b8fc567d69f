package session_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/session"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

func TestSaveLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.yaml")

	in := session.Session{
		Channels: []session.Channel{{
			Name: "Guitar",
			Type: "mono",
			Values: session.ParameterValues{
				Volume: 0.8, PanBalance: -0.25, Mute: true,
			},
			In:  session.IORoute{Kind: "device", Name: "Mic"},
			Out: session.IORoute{Kind: "channel", Name: "Main"},
			FxChain: []session.FxModule{
				{Kind: "utility", Active: true, Parameters: map[string]float64{"gain": 1.2}},
				{Kind: "ladspa", LadspaUID: 1234, Active: false,
					MidiAssigns: map[string]int{"drive": 11}},
			},
		}},
		ExternalInputs: []session.Device{{Name: "Mic", Type: "mono", Left: 0, Right: 0}},
	}

	require.NoError(t, session.Save(path, in))
	out, err := session.Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := session.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestChannelTypeStrings(t *testing.T) {
	for _, typ := range []mixer.ChannelType{mixer.Mono, mixer.Stereo, mixer.Aux} {
		assert.Equal(t, typ, session.ParseChannelType(session.ChannelTypeString(typ)))
	}
	assert.Equal(t, mixer.Stereo, session.ParseChannelType("something-from-the-future"))
}
