// Package gpio binds the carrier board's footswitch and status LED
// to the store: a falling edge on the footswitch line runs the
// callback the daemon supplies (cmd/piejamd toggles the main
// channel's mute), and the record LED follows a
// subscribed selector. Everything here runs on the control side;
// nothing touches the audio thread.
package gpio

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"
)

// Footswitch watches one input line and invokes onPress on each
// falling edge (the switch shorts the line to ground).
type Footswitch struct {
	line *gpiocdev.Line
}

// NewFootswitch requests offset on chip with pull-up and edge
// detection; onPress runs on go-gpiocdev's event goroutine, so it
// must only do thread-safe work (dispatching into the store is).
func NewFootswitch(chip string, offset int, onPress func()) (*Footswitch, error) {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventFallingEdge {
				onPress()
			}
		}))
	if err != nil {
		return nil, fmt.Errorf("gpio: request footswitch %s:%d: %w", chip, offset, err)
	}
	return &Footswitch{line: line}, nil
}

// Close releases the line.
func (f *Footswitch) Close() {
	if err := f.line.Close(); err != nil {
		log.Error("gpio: close footswitch", "err", err)
	}
}

// LED drives one output line, e.g. the record indicator wired to a
// Subscribe handler on the record parameter.
type LED struct {
	line *gpiocdev.Line
}

// NewLED requests offset on chip as an output, initially off.
func NewLED(chip string, offset int) (*LED, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("gpio: request led %s:%d: %w", chip, offset, err)
	}
	return &LED{line: line}, nil
}

// Set switches the LED on or off.
func (l *LED) Set(on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		log.Error("gpio: set led", "err", err)
	}
}

// Close releases the line.
func (l *LED) Close() {
	if err := l.line.Close(); err != nil {
		log.Error("gpio: close led", "err", err)
	}
}
