package fxmodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/engine/graph"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

func TestRegistry_NewUtility_RegistersThreeParameters(t *testing.T) {
	params := &param.Parameters{}
	r := NewRegistry(params)

	mod := r.NewUtility(mixer.Stereo)

	assert.Equal(t, fx.InstanceInternal, mod.Instance.Kind)
	assert.Equal(t, fx.Utility, mod.Instance.Internal)
	assert.Len(t, mod.Parameters, 3)
	assert.Contains(t, mod.Parameters, fx.ParameterKey("gain"))
}

func TestGainProcessor_ScalesBuffer(t *testing.T) {
	params := &param.Parameters{}
	r := NewRegistry(params)
	mod := r.NewUtility(mixer.Mono)

	gainID := mod.Parameters["gain"].Float
	params.Floats.At(gainID).Set(0.5)

	proc := r.BuildProcessor(mod)

	in := []float32{1, 1, 1, 1}
	out := make([]float32, 4)
	ctx := &graph.ProcessContext{
		BufferSize: 4,
		Outputs:    [][]float32{out},
		Results:    []graph.Result{graph.BufferResult(in)},
	}

	proc.Process(ctx)

	require.False(t, ctx.Results[0].IsConstant())
	for _, v := range ctx.Results[0].Buffer() {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestGainProcessor_ConstantFastPath(t *testing.T) {
	params := &param.Parameters{}
	r := NewRegistry(params)
	mod := r.NewUtility(mixer.Mono)

	gainID := mod.Parameters["gain"].Float
	params.Floats.At(gainID).Set(2)

	proc := r.BuildProcessor(mod)

	ctx := &graph.ProcessContext{
		BufferSize: 4,
		Outputs:    [][]float32{make([]float32, 4)},
		Results:    []graph.Result{graph.ConstantResult(1)},
	}

	proc.Process(ctx)

	require.True(t, ctx.Results[0].IsConstant())
	assert.InDelta(t, 2, ctx.Results[0].Constant(), 1e-6)
}

func TestRegistry_NewTuner_BuildsStreamProcessor(t *testing.T) {
	params := &param.Parameters{}
	r := NewRegistry(params)
	mod := r.NewTuner()

	proc := r.BuildProcessor(mod)
	_, ok := proc.(*graph.StreamProcessor)
	assert.True(t, ok)
}

func TestRegistry_NextModuleID_MintsDistinctIDs(t *testing.T) {
	r := NewRegistry(&param.Parameters{})
	a := r.NextModuleID()
	b := r.NextModuleID()
	assert.NotEqual(t, a, b)
}
