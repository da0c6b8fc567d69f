// Package soundcard puts a PortAudio full-duplex stream behind the
// narrow device interface the engine consumes: open, drive the engine's
// Process step once per period from the backend's callback, and
// report the device inventory for the RefreshSoundCards action.
//
// A single blocking input/output pair is assumed; the stream is
// opened non-interleaved so the callback's
// in/out slices line up one-to-one with the engine's physical
// channel indexing without a deinterleave copy.
package soundcard

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/dkotrev/piejam-engine-go/internal/rtthread"
)

// ProcessFunc is the engine's per-period entry point (the process
// step): in/out are indexed by physical channel, each slice one
// period long. The returned duration is the period's CPU cost, fed
// into the load estimate.
type ProcessFunc func(in, out [][]float32) time.Duration

// Config fixes the negotiated stream parameters for one open device.
type Config struct {
	SampleRate     float64
	FramesPerBuffer int
	InputChannels  int
	OutputChannels int

	// Thread is applied to the audio callback's OS thread on its
	// first wake, pinning and elevating it the same
	// way the worker pool's threads are configured.
	Thread rtthread.Config
}

// Device wraps one running full-duplex stream.
type Device struct {
	cfg    Config
	stream *portaudio.Stream

	process ProcessFunc

	configured bool

	// cpuLoad is the most recent period's fraction of the available
	// wall-clock budget, stored as load * 1e6.
	cpuLoad atomic.Int64
}

// Init initializes the PortAudio runtime; call once at startup,
// paired with [Terminate].
func Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("soundcard: initialize: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio runtime down.
func Terminate() {
	if err := portaudio.Terminate(); err != nil {
		log.Error("soundcard: terminate", "err", err)
	}
}

// Open creates (but does not start) a full-duplex stream on the
// default device pair.
func Open(cfg Config, process ProcessFunc) (*Device, error) {
	d := &Device{cfg: cfg, process: process}

	stream, err := portaudio.OpenDefaultStream(
		cfg.InputChannels, cfg.OutputChannels,
		cfg.SampleRate, cfg.FramesPerBuffer,
		d.callback,
	)
	if err != nil {
		return nil, fmt.Errorf("soundcard: open stream: %w", err)
	}
	d.stream = stream
	return d, nil
}

// Start begins servicing periods; the callback starts firing on the
// backend's audio thread.
func (d *Device) Start() error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("soundcard: start: %w", err)
	}
	return nil
}

// Stop halts the stream and releases it.
func (d *Device) Stop() error {
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("soundcard: stop: %w", err)
	}
	if err := d.stream.Close(); err != nil {
		return fmt.Errorf("soundcard: close: %w", err)
	}
	return nil
}

// CPULoad returns the most recent period's processing time as a
// fraction of the period budget.
func (d *Device) CPULoad() float64 {
	return float64(d.cpuLoad.Load()) / 1e6
}

// callback is the once-per-period entry PortAudio invokes on its own
// real-time thread. The first invocation applies the engine's thread
// configuration, so pinning and priority land on the thread that
// actually services periods.
func (d *Device) callback(in, out [][]float32) {
	if !d.configured {
		d.configured = true
		if err := d.cfg.Thread.Apply(); err != nil {
			// Missing privileges for affinity/priority are survivable;
			// there is no safe way to log from this thread, so the
			// degradation is silent by design of the thread contract.
			_ = err
		}
	}

	elapsed := d.process(in, out)

	budget := time.Duration(float64(d.cfg.FramesPerBuffer) / d.cfg.SampleRate * float64(time.Second))
	if budget > 0 {
		d.cpuLoad.Store(int64(float64(elapsed) / float64(budget) * 1e6))
	}
}

// Info describes one PortAudio device for the refresh action.
type Info struct {
	Name           string
	MaxInputs      int
	MaxOutputs     int
	DefaultSampleRate float64
}

// Devices lists the host's audio devices.
func Devices() ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("soundcard: list devices: %w", err)
	}
	out := make([]Info, 0, len(devices))
	for _, dev := range devices {
		out = append(out, Info{
			Name:              dev.Name,
			MaxInputs:         dev.MaxInputChannels,
			MaxOutputs:        dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
		})
	}
	return out, nil
}

// Refresher adapts Devices to internal/store's SoundCardRefresher.
type Refresher struct{}

// RefreshDevices rescans and logs the inventory; the construction
// errors surface through the returned error, leaving the engine idle
// until the user retries.
func (Refresher) RefreshDevices() error {
	devices, err := Devices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		log.Info("soundcard: device",
			"name", d.Name, "in", d.MaxInputs, "out", d.MaxOutputs, "rate", d.DefaultSampleRate)
	}
	return nil
}
