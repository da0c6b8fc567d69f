package fx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
)

func TestIsActive_UnregisteredModuleIsInactive(t *testing.T) {
	var params param.Parameters
	st := fx.NewState()
	var gen fx.ModuleIDGenerator

	assert.False(t, fx.IsActive(gen.Next(), st, &params))
}

func TestIsActive_ReflectsBoolParameter(t *testing.T) {
	var params param.Parameters
	st := fx.NewState()
	var gen fx.ModuleIDGenerator

	mod := gen.Next()
	bypass := params.AddBool(param.Descriptor[bool]{Name: "active", Default: true})
	st.ActiveModules[mod] = bypass

	assert.True(t, fx.IsActive(mod, st, &params))

	params.Bools.At(bypass).Set(false)
	assert.False(t, fx.IsActive(mod, st, &params))
}

func TestMoveUp_SwapsWithPrevious(t *testing.T) {
	var gen fx.ModuleIDGenerator
	a, b, c := gen.Next(), gen.Next(), gen.Next()
	chain := []fx.ModuleID{a, b, c}

	chain = fx.MoveUp(chain, 1)

	assert.Equal(t, []fx.ModuleID{b, a, c}, chain)
}

func TestMoveUp_NoOpAtFront(t *testing.T) {
	var gen fx.ModuleIDGenerator
	a, b := gen.Next(), gen.Next()
	chain := []fx.ModuleID{a, b}

	chain = fx.MoveUp(chain, 0)

	assert.Equal(t, []fx.ModuleID{a, b}, chain)
}

func TestMoveDown_SwapsWithNext(t *testing.T) {
	var gen fx.ModuleIDGenerator
	a, b, c := gen.Next(), gen.Next(), gen.Next()
	chain := []fx.ModuleID{a, b, c}

	chain = fx.MoveDown(chain, 0)

	assert.Equal(t, []fx.ModuleID{b, a, c}, chain)
}

func TestReplaceMissingLadspa_TransfersIntoRealInstance(t *testing.T) {
	var ladspaGen fx.LadspaInstanceIDGenerator

	placeholder := fx.Module{
		Instance: fx.NewUnavailableLadspaInstance(0xDEADBEEF),
		Name:     "missing-plugin",
	}

	real := ladspaGen.Next()
	updated := fx.ReplaceMissingLadspa(placeholder, real)

	require.Equal(t, fx.InstanceLadspa, updated.Instance.Kind)
	assert.Equal(t, real, updated.Instance.Ladspa)
	assert.Equal(t, "missing-plugin", updated.Name, "module name and parameters must survive the relink")
}

func TestReplaceMissingLadspa_PanicsOnNonPlaceholder(t *testing.T) {
	var ladspaGen fx.LadspaInstanceIDGenerator

	mod := fx.Module{Instance: fx.NewInternalInstance(fx.Filter)}

	assert.Panics(t, func() {
		fx.ReplaceMissingLadspa(mod, ladspaGen.Next())
	})
}
