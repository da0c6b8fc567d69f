package store

import (
	"github.com/charmbracelet/log"

	"github.com/dkotrev/piejam-engine-go/internal/state"
)

// SoundCardRefresher is the narrow interface internal/soundcard
// implements: rescan the system for available sound-card devices and
// report what's there. Kept here rather than importing
// internal/soundcard directly so internal/store never depends on a
// concrete hardware backend — the thunk only needs "can list
// devices", not PortAudio's own API surface.
type SoundCardRefresher interface {
	RefreshDevices() error
}

// MidiDeviceRefresher is internal/mididevice's equivalent for MIDI
// controller hotplug.
type MidiDeviceRefresher interface {
	RefreshDevices() error
}

// RefreshSoundCards asks the
// sound-card backend to rescan, dispatching an [ErrorAction] if that
// fails rather than returning an error synchronously — a thunk's
// signature has no return value.
func RefreshSoundCards(backend SoundCardRefresher) Thunk {
	return func(_ GetStateFunc, dispatch DispatchFunc) {
		if err := backend.RefreshDevices(); err != nil {
			log.Error("store: refresh sound cards", "err", err)
			dispatch(ErrorAction{Err: err})
		}
	}
}

// RefreshMidiDevices rescans for MIDI controller hotplug.
func RefreshMidiDevices(backend MidiDeviceRefresher) Thunk {
	return func(_ GetStateFunc, dispatch DispatchFunc) {
		if err := backend.RefreshDevices(); err != nil {
			log.Error("store: refresh midi devices", "err", err)
			dispatch(ErrorAction{Err: err})
		}
	}
}

// InitiateStartupSession loads
// the app's configured startup session if one is set, otherwise
// leaves the freshly constructed empty state (with just its main
// channel) in place. A missing or unreadable startup file is not
// fatal — "persistence / IO errors: logged; the originating
// action is dropped; state remains unchanged" policy applies here as
// much as to an explicit user-triggered load.
func InitiateStartupSession(path string) Thunk {
	return func(_ GetStateFunc, dispatch DispatchFunc) {
		if path == "" {
			return
		}
		dispatch(LoadSessionRequested{Path: path})
	}
}

// LoadSession requests a session load from path.
func LoadSession(path string) Thunk {
	return func(_ GetStateFunc, dispatch DispatchFunc) {
		dispatch(LoadSessionRequested{Path: path})
	}
}

// SaveSession requests a session save to path.
func SaveSession(path string) Thunk {
	return func(_ GetStateFunc, dispatch DispatchFunc) {
		dispatch(SaveSessionRequested{Path: path})
	}
}

// ShutdownHook is run synchronously by the [Shutdown] thunk, e.g. the
// engine orchestrator tearing down its worker pool and sound-card
// stream. Kept as a plain func rather than an interface since
// shutdown has exactly one step from the store's point of view.
type ShutdownHook func(s *state.State)

// Shutdown runs every hook in order on the
// control thread before the process exits, so each has a consistent
// view of final state (e.g. an auto-save-on-exit hook reading the
// live session before the engine tears down its graph).
func Shutdown(hooks ...ShutdownHook) Thunk {
	return func(get GetStateFunc, _ DispatchFunc) {
		st := get()
		for _, hook := range hooks {
			hook(st)
		}
	}
}
