package state

import (
	"fmt"

	"github.com/dkotrev/piejam-engine-go/internal/state/external"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// IODirection selects which of the external-device tables an action
// targets.
type IODirection = mixer.IODirection

const (
	DirectionInput  = mixer.Input
	DirectionOutput = mixer.Output
)

// AddExternalAudioDevice registers a new named endpoint with both
// channel-assignment slots unassigned ([external.NPos]); the GUI
// assigns indices afterwards via [SetExternalAudioDeviceBusChannel].
type AddExternalAudioDevice struct {
	Direction IODirection
	Type      mixer.ChannelType
	Name      string
}

func (a AddExternalAudioDevice) Reduce(s *State) error {
	devID := deviceIDs.Next()

	dev := external.Device{
		Name:     a.Name,
		Type:     a.Type,
		Channels: external.ChannelAssignment{Left: external.NPos, Right: external.NPos},
	}

	lock := s.External.Lock()
	defer lock.Close()
	st := lock.Value()

	if a.Direction == mixer.Input {
		st.Inputs = cloneMap(st.Inputs)
		st.Inputs[devID] = dev
	} else {
		st.Outputs = cloneMap(st.Outputs)
		st.Outputs[devID] = dev
	}

	return nil
}

// RemoveExternalAudioDevice drops a device endpoint. Any mixer
// channel routed to the removed device falls back to unrouted, an
// audio-graph-affecting structural change.
type RemoveExternalAudioDevice struct {
	ID        external.DeviceID
	Direction IODirection
}

func (a RemoveExternalAudioDevice) Reduce(s *State) error {
	extLock := s.External.Lock()
	defer extLock.Close()
	extSt := extLock.Value()

	table := extSt.Inputs
	if a.Direction == mixer.Output {
		table = extSt.Outputs
	}
	if _, ok := table[a.ID]; !ok {
		return fmt.Errorf("state: unknown external device %v", a.ID.Raw())
	}
	table = cloneMap(table)
	delete(table, a.ID)
	if a.Direction == mixer.Input {
		extSt.Inputs = table
	} else {
		extSt.Outputs = table
	}

	mixLock := s.Mixer.Lock()
	defer mixLock.Close()
	mixSt := mixLock.Value()
	mixSt.IOMap = cloneMap(mixSt.IOMap)
	for chID, io := range mixSt.IOMap {
		if a.Direction == mixer.Input && io.In.Kind == mixer.IODevice && io.In.Device == a.ID {
			io.In = mixer.NoInput()
			mixSt.IOMap[chID] = io
		}
		if a.Direction == mixer.Output && io.Out.Kind == mixer.IODevice && io.Out.Device == a.ID {
			io.Out = mixer.NoInput()
			mixSt.IOMap[chID] = io
		}
	}

	s.bumpAudioGraph()
	return nil
}

// SetExternalAudioDeviceBusChannel rebinds one side (left/right) of a
// device's channel-index assignment. Re-assigning the sound card's
// channel mapping is audio-graph-affecting since the engine
// orchestrator's I/O processors are built one per sound-card channel.
type SetExternalAudioDeviceBusChannel struct {
	ID        external.DeviceID
	Direction IODirection
	Right     bool
	Index     int
}

func (a SetExternalAudioDeviceBusChannel) Reduce(s *State) error {
	lock := s.External.Lock()
	defer lock.Close()
	st := lock.Value()

	table := st.Inputs
	if a.Direction == mixer.Output {
		table = st.Outputs
	}
	dev, ok := table[a.ID]
	if !ok {
		return fmt.Errorf("state: unknown external device %v", a.ID.Raw())
	}

	if a.Right {
		dev.Channels.Right = a.Index
	} else {
		dev.Channels.Left = a.Index
	}

	table = cloneMap(table)
	table[a.ID] = dev
	if a.Direction == mixer.Input {
		st.Inputs = table
	} else {
		st.Outputs = table
	}

	s.bumpAudioGraph()
	return nil
}
