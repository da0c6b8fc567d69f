package mixer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

func newActiveAuxSend(params *param.Parameters, active bool) mixer.AuxSend {
	id := params.AddBool(param.Descriptor[bool]{Name: "active", Default: active})
	return mixer.AuxSend{Active: id}
}

func TestIsMixInputValid_EmptyRoutingHasNoCycle(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	ch := gen.Next()

	assert.True(t, mixer.IsMixInputValid(ch, mixer.IOMap{}, mixer.AuxSends{}, &params))
}

func TestIsMixInputValid_RejectsSelfFeedingCycle(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	a := gen.Next()
	b := gen.Next()

	// a's output already feeds b, and b's output already feeds a:
	// switching a's input to "mixed" (which would also absorb b's
	// output) closes a 2-cycle.
	ioMap := mixer.IOMap{
		a: {In: mixer.NoInput(), Out: mixer.ToChannel(b)},
		b: {In: mixer.MixInput(), Out: mixer.ToChannel(a)},
	}

	assert.False(t, mixer.IsMixInputValid(a, ioMap, mixer.AuxSends{}, &params))
}

func TestValidChannels_MonoChannelCannotBeInputTarget(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	mono := gen.Next()

	channels := mixer.Channels{mono: {Type: mixer.Mono}}

	got := mixer.ValidChannels(mono, mixer.Input, channels, mixer.IOMap{}, mixer.AuxSends{}, &params)
	assert.Empty(t, got, "a mono channel must never be offered as its own input target")
}

func TestValidChannels_ExcludesSelfAndMonoOutputTargets(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	stereo := gen.Next()
	mono := gen.Next()

	channels := mixer.Channels{
		stereo: {Type: mixer.Stereo},
		mono:   {Type: mixer.Mono},
	}

	got := mixer.ValidChannels(stereo, mixer.Output, channels, mixer.IOMap{}, mixer.AuxSends{}, &params)
	assert.NotContains(t, got, stereo, "a channel is never its own valid output target")
	assert.NotContains(t, got, mono, "a mono channel can never be an output target")
}

func TestValidChannels_RejectsRouteThatWouldCreateACycle(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	a := gen.Next()
	b := gen.Next()

	channels := mixer.Channels{
		a: {Type: mixer.Stereo},
		b: {Type: mixer.Stereo},
	}
	ioMap := mixer.IOMap{
		a: {In: mixer.NoInput(), Out: mixer.NoInput()},
		b: {In: mixer.ToChannel(a), Out: mixer.NoInput()},
	}

	got := mixer.ValidChannels(a, mixer.Input, channels, ioMap, mixer.AuxSends{}, &params)
	assert.NotContains(t, got, b, "routing a's input from b would close a cycle since b already reads from a")
}

func TestCanToggleAux_UnknownChannelReturnsFalse(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	ch, aux := gen.Next(), gen.Next()

	assert.False(t, mixer.CanToggleAux(ch, aux, mixer.IOMap{}, mixer.AuxSends{}, &params))
}

func TestCanToggleAux_AlreadyActiveIsAlwaysToggleable(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	ch, aux := gen.Next(), gen.Next()

	send := newActiveAuxSend(&params, true)
	auxSends := mixer.AuxSends{ch: {aux: send}}

	assert.True(t, mixer.CanToggleAux(ch, aux, mixer.IOMap{}, auxSends, &params))
}

func TestCanToggleAux_InactiveEnableRejectedOnCycle(t *testing.T) {
	var params param.Parameters
	var gen mixer.ChannelIDGenerator
	ch, aux := gen.Next(), gen.Next()

	send := newActiveAuxSend(&params, false)
	auxSends := mixer.AuxSends{ch: {aux: send}}

	// aux is a mix bus whose output already feeds back into ch, so
	// adding the ch -> aux send would close a cycle.
	ioMap := mixer.IOMap{
		aux: {In: mixer.MixInput(), Out: mixer.ToChannel(ch)},
		ch:  {In: mixer.MixInput()},
	}

	assert.False(t, mixer.CanToggleAux(ch, aux, ioMap, auxSends, &params))
}
