package external_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkotrev/piejam-engine-go/internal/state/external"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

func TestNewState_StartsWithEmptyDeviceTables(t *testing.T) {
	st := external.NewState()

	assert.Empty(t, st.Inputs)
	assert.Empty(t, st.Outputs)
}

func TestDevice_MonoDeviceLeavesRightUnassigned(t *testing.T) {
	var gen external.DeviceIDGenerator
	id := gen.Next()

	st := external.NewState()
	st.Inputs[id] = external.Device{
		Name: "mic",
		Type: mixer.Mono,
		Channels: external.ChannelAssignment{
			Left:  0,
			Right: external.NPos,
		},
	}

	assert.Equal(t, external.NPos, st.Inputs[id].Channels.Right)
}
