// Package external implements the external-audio-device
// state: named mono/stereo endpoints bound to a slice of the
// sound-card's physical channel index space.
package external

import "github.com/dkotrev/piejam-engine-go/internal/state/mixer"

// DeviceID identifies one external audio device endpoint, sharing its
// representation with [mixer.DeviceID] so a mixer channel's
// [mixer.IOAddress] can reference a device without this package and
// mixer importing each other.
type DeviceID = mixer.DeviceID

// DeviceIDGenerator mints fresh [DeviceID] values.
type DeviceIDGenerator = mixer.DeviceIDGenerator

// NPos is the reserved sentinel meaning "this side of the device is
// unassigned" (a mono input device has no right channel, for
// instance).
const NPos = -1

// ChannelAssignment is a device's (left, right) index pair into the
// sound-card's channel space; Right is NPos for a mono device.
type ChannelAssignment struct {
	Left  int
	Right int
}

// Device is one named mono/stereo external audio endpoint.
type Device struct {
	Name     string
	Type     mixer.ChannelType
	Channels ChannelAssignment
}

// Devices is a direction's device table (inputs or outputs are kept
// in separate tables since a device id space is direction-specific).
type Devices map[DeviceID]Device

// State is the external-audio-device state
type State struct {
	Inputs  Devices
	Outputs Devices
}

// NewState returns an empty external-audio-device state.
func NewState() State {
	return State{Inputs: make(Devices), Outputs: make(Devices)}
}
