package param_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dkotrev/piejam-engine-go/internal/param"
)

func TestParameters_AddFloat_DefaultIsInRange(t *testing.T) {
	var params param.Parameters

	pid := params.AddFloat(param.Descriptor[float64]{Name: "volume", Min: 0, Max: 2, Default: 1})

	slot := params.Floats.At(pid)
	assert.InDelta(t, 1.0, slot.Get(), 1e-9)
	assert.True(t, slot.Param().InRange(slot.Get()))
}

func TestCell_SetThenGet_ReflectsLatestWrite(t *testing.T) {
	var params param.Parameters
	pid := params.AddBool(param.Descriptor[bool]{Name: "mute", Default: false})

	slot := params.Bools.At(pid)
	slot.Set(true)

	assert.True(t, slot.Get())
}

func TestCachedRead_ObservesWritesAfterCapture(t *testing.T) {
	var params param.Parameters
	pid := params.AddFloat(param.Descriptor[float64]{Name: "pan", Min: -1, Max: 1, Default: 0})

	slot := params.Floats.At(pid)
	cached := slot.Cached() // as if captured by a processor at graph-build time

	slot.Set(0.5)

	assert.InDelta(t, 0.5, cached.Get(), 1e-9)
}

func TestStore_EmplaceDuplicate_Panics(t *testing.T) {
	var params param.Parameters
	pid := params.AddInt(param.Descriptor[int]{Name: "x", Min: 0, Max: 10})

	assert.Panics(t, func() {
		params.Ints.Emplace(pid, param.Descriptor[int]{Name: "y"})
	})
}

func TestStore_AtUnknownID_Panics(t *testing.T) {
	var owner param.Parameters
	unknown := owner.AddInt(param.Descriptor[int]{Name: "never emplaced elsewhere"})

	var other param.Parameters
	assert.Panics(t, func() {
		other.Ints.At(unknown)
	})
}

func TestLinearDomain_NormalizedRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		min := rapid.Float64Range(-1000, 0).Draw(t, "min")
		max := rapid.Float64Range(1, 1000).Draw(t, "max")
		v := rapid.Float64Range(min, max).Draw(t, "v")

		d := param.Descriptor[float64]{Min: min, Max: max, Default: min}

		var params param.Parameters
		pid := params.AddFloat(d)
		slot := params.Floats.At(pid)
		slot.Set(v)

		n := slot.Normalized()
		require.GreaterOrEqual(t, n, 0.0)
		require.LessOrEqual(t, n, 1.0)

		back := slot.FromNormalized(n)
		assert.InDelta(t, v, back, 1e-5*(max-min)+1e-9)
	})
}

func TestFaderMapping_RoundTrips(t *testing.T) {
	toNorm, fromNorm := param.FaderMapping(-60)
	d := param.Descriptor[float64]{Min: 0, Max: 2, Default: 1, ToNormalized: toNorm, FromNormalized: fromNorm}

	rapid.Check(t, func(t *rapid.T) {
		linear := rapid.Float64Range(0, 2).Draw(t, "linear")

		n := d.ToNormalized(d, linear)
		require.GreaterOrEqual(t, n, 0.0)
		require.LessOrEqual(t, n, 1.0)

		back := d.FromNormalized(d, n)
		assert.InDelta(t, linear, back, 1e-4+1e-5*linear)
	})
}

func TestFaderMapping_ZeroNormalizedIsSilence(t *testing.T) {
	toNorm, fromNorm := param.FaderMapping(-60)
	d := param.Descriptor[float64]{ToNormalized: toNorm, FromNormalized: fromNorm}

	assert.Equal(t, 0.0, d.ToNormalized(d, 0))
	assert.Equal(t, 0.0, d.FromNormalized(d, 0))
}
