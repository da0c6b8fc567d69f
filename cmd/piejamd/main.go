// piejamd is the headless mixer daemon: it assembles the store, the
// engine orchestrator, and the hardware backends (sound card, MIDI,
// GPIO), then services audio until told to stop.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/dkotrev/piejam-engine-go/internal/config"
	"github.com/dkotrev/piejam-engine-go/internal/engine"
	"github.com/dkotrev/piejam-engine-go/internal/fxmodule"
	"github.com/dkotrev/piejam-engine-go/internal/gpio"
	"github.com/dkotrev/piejam-engine-go/internal/midi"
	"github.com/dkotrev/piejam-engine-go/internal/mididevice"
	"github.com/dkotrev/piejam-engine-go/internal/rtthread"
	"github.com/dkotrev/piejam-engine-go/internal/soundcard"
	"github.com/dkotrev/piejam-engine-go/internal/state"
	"github.com/dkotrev/piejam-engine-go/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the app config file (default: <config-dir>/piejam.yaml)")
		sessionPath = flag.String("session", "", "session file to load at startup, overriding the configured one")
		workers    = flag.Int("workers", -1, "real-time worker pool size, overriding the configured one")
		verbose    = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	dir, err := config.Dir()
	if err != nil {
		log.Fatal("piejamd: config dir", "err", err)
	}
	if *configPath == "" {
		*configPath = filepath.Join(dir, "piejam.yaml")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("piejamd: load config", "err", err)
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	startup := cfg.StartupSession
	if *sessionPath != "" {
		startup = *sessionPath
	}

	st := state.New()
	registry := fxmodule.NewRegistry(st.Params)

	eng := engine.New(engine.Config{
		BufferSize:     cfg.PeriodSize,
		InputChannels:  cfg.InputChannels,
		OutputChannels: cfg.OutputChannels,
		Workers:        cfg.Workers,
		NumCPU:         runtime.NumCPU(),
		WorkerPriority: 80,
	}, registry)
	defer eng.Close()

	midiQueue := midi.NewQueue(cfg.MIDIQueueCapacity)
	eng.SetMIDIInput(midiQueue)

	s := store.New(st, store.DefaultMiddlewares(
		store.PersistenceMiddleware(store.FileSessionIO{}, registry),
		eng.Rebuild,
	)...)

	midiDispatcher := midi.NewDispatcher(st.Params, midiQueue, s.Dispatch)
	_ = midiDispatcher // event source attachment happens per connected device

	midiMonitor := mididevice.NewMonitor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := midiMonitor.Watch(ctx); err != nil {
			log.Error("piejamd: midi monitor", "err", err)
		}
	}()
	go func() {
		for ev := range midiMonitor.Events() {
			switch ev.Kind {
			case mididevice.Added:
				log.Info("piejamd: midi device added", "name", ev.Device.Name)
			case mididevice.Removed:
				log.Info("piejamd: midi device removed", "name", ev.Device.Name)
			}
		}
	}()
	s.Dispatch(store.RefreshMidiDevices(midiMonitor))

	if err := soundcard.Init(); err != nil {
		log.Fatal("piejamd: soundcard", "err", err)
	}
	defer soundcard.Terminate()
	s.Dispatch(store.RefreshSoundCards(soundcard.Refresher{}))

	// The initial rebuild happens via the middleware once the startup
	// session (or just the bare main channel) is in place.
	s.Dispatch(store.InitiateStartupSession(startup))
	eng.Rebuild(s.State())

	device, err := soundcard.Open(soundcard.Config{
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.PeriodSize,
		InputChannels:   cfg.InputChannels,
		OutputChannels:  cfg.OutputChannels,
		Thread: rtthread.Config{
			CPU:      1,
			Priority: 80,
			Name:     "audio-main",
		},
	}, eng.Process)
	if err != nil {
		log.Fatal("piejamd: open stream", "err", err)
	}
	if err := device.Start(); err != nil {
		log.Fatal("piejamd: start stream", "err", err)
	}

	var footswitch *gpio.Footswitch
	var recordLED *gpio.LED
	if cfg.GPIO.Chip != "" {
		footswitch, err = gpio.NewFootswitch(cfg.GPIO.Chip, cfg.GPIO.Footswitch, func() {
			s.Dispatch(store.Thunk(func(get store.GetStateFunc, dispatch store.DispatchFunc) {
				stt := get()
				mixSt := stt.Mixer.Get()
				main, ok := mixSt.Channels[mixSt.Main]
				if !ok {
					return
				}
				dispatch(state.SetBoolParameterValue{
					ID:    main.Mute,
					Value: !stt.Params.Bools.At(main.Mute).Get(),
				})
			}))
		})
		if err != nil {
			log.Error("piejamd: footswitch unavailable", "err", err)
		}
		recordLED, err = gpio.NewLED(cfg.GPIO.Chip, cfg.GPIO.RecordLED)
		if err != nil {
			log.Error("piejamd: record led unavailable", "err", err)
		} else {
			store.Subscribe(s, func(stt *state.State) bool {
				mixSt := stt.Mixer.Get()
				main, ok := mixSt.Channels[mixSt.Main]
				if !ok {
					return false
				}
				return stt.Params.Bools.At(main.Record).Get()
			}, recordLED.Set)
		}
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Debug("piejamd: cpu load", "load", device.CPULoad())
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("piejamd: shutting down")

	s.Dispatch(store.Shutdown(func(stt *state.State) {
		if startup != "" {
			s.Dispatch(store.SaveSessionRequested{Path: startup})
		}
	}))

	if err := device.Stop(); err != nil {
		log.Error("piejamd: stop stream", "err", err)
	}
	if footswitch != nil {
		footswitch.Close()
	}
	if recordLED != nil {
		recordLED.Close()
	}
}
