// Package mididevice discovers MIDI controllers, backed by udev's
// view of the sound subsystem. The sequencer-level event stream
// itself comes from whatever source feeds [midi.Dispatcher.Run]; this
// package only answers "which controllers are plugged in right now,
// and tell me when that changes".
package mididevice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jochenvg/go-udev"
)

// EventKind distinguishes hotplug arrivals from removals.
type EventKind int

const (
	Added EventKind = iota
	Removed
)

// Device is one MIDI-capable endpoint.
type Device struct {
	Syspath string
	Name    string
}

// Event is one hotplug notification.
type Event struct {
	Kind   EventKind
	Device Device
}

// Monitor tracks MIDI-capable sound devices via udev: RefreshDevices
// enumerates synchronously (the RefreshMidiDevices action path) and
// Watch follows netlink hotplug events until its context is
// cancelled. Both feed the same diffed event stream.
type Monitor struct {
	u udev.Udev

	mu    sync.Mutex
	known map[string]Device

	events chan Event
}

// NewMonitor builds a monitor with an empty device table.
func NewMonitor() *Monitor {
	return &Monitor{
		known:  make(map[string]Device),
		events: make(chan Event, 16),
	}
}

// Events is the stream RefreshDevices and Watch publish into. The
// channel is buffered; if no one drains it, further notifications are
// dropped rather than blocking the udev thread.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// isMIDIPort reports whether a udev sound device is a raw MIDI
// endpoint rather than a PCM or card control node.
func isMIDIPort(d *udev.Device) bool {
	return strings.HasPrefix(d.Sysname(), "midi")
}

func deviceOf(d *udev.Device) Device {
	name := d.PropertyValue("ID_MODEL")
	if name == "" {
		name = d.Sysname()
	}
	return Device{Syspath: d.Syspath(), Name: name}
}

// RefreshDevices re-enumerates the sound subsystem and emits
// Added/Removed events for the delta against the last known table.
// It satisfies internal/store's MidiDeviceRefresher.
func (m *Monitor) RefreshDevices() error {
	e := m.u.NewEnumerate()
	if err := e.AddMatchSubsystem("sound"); err != nil {
		return fmt.Errorf("mididevice: match subsystem: %w", err)
	}
	devices, err := e.Devices()
	if err != nil {
		return fmt.Errorf("mididevice: enumerate: %w", err)
	}

	current := make(map[string]Device)
	for _, d := range devices {
		if isMIDIPort(d) {
			dev := deviceOf(d)
			current[dev.Syspath] = dev
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for path, dev := range current {
		if _, ok := m.known[path]; !ok {
			m.emit(Event{Kind: Added, Device: dev})
		}
	}
	for path, dev := range m.known {
		if _, ok := current[path]; !ok {
			m.emit(Event{Kind: Removed, Device: dev})
		}
	}
	m.known = current
	return nil
}

// Watch follows udev hotplug notifications until ctx is cancelled.
// Runs on its own goroutine; the emitted events land in the same
// stream RefreshDevices feeds.
func (m *Monitor) Watch(ctx context.Context) error {
	mon := m.u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("sound"); err != nil {
		return fmt.Errorf("mididevice: monitor filter: %w", err)
	}
	ch, err := mon.DeviceChan(ctx)
	if err != nil {
		return fmt.Errorf("mididevice: monitor: %w", err)
	}

	for d := range ch {
		if !isMIDIPort(d) {
			continue
		}
		dev := deviceOf(d)

		m.mu.Lock()
		switch d.Action() {
		case "add":
			m.known[dev.Syspath] = dev
			m.emit(Event{Kind: Added, Device: dev})
		case "remove":
			delete(m.known, dev.Syspath)
			m.emit(Event{Kind: Removed, Device: dev})
		}
		m.mu.Unlock()
	}
	return nil
}

func (m *Monitor) emit(e Event) {
	select {
	case m.events <- e:
	default:
		log.Warn("mididevice: event stream full, dropping", "device", e.Device.Name)
	}
}
