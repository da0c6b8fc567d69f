package store

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dkotrev/piejam-engine-go/internal/fxmodule"
	"github.com/dkotrev/piejam-engine-go/internal/param"
	"github.com/dkotrev/piejam-engine-go/internal/session"
	"github.com/dkotrev/piejam-engine-go/internal/state"
	"github.com/dkotrev/piejam-engine-go/internal/state/external"
	"github.com/dkotrev/piejam-engine-go/internal/state/fx"
	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// SessionIO is the narrow interface the store consumes for session
// persistence; [session.Load]/[session.Save] satisfy it through
// [FileSessionIO].
type SessionIO interface {
	Load(path string) (session.Session, error)
	Save(path string, sess session.Session) error
}

// FileSessionIO is the production [SessionIO] backed by
// internal/session's YAML codec.
type FileSessionIO struct{}

func (FileSessionIO) Load(path string) (session.Session, error)      { return session.Load(path) }
func (FileSessionIO) Save(path string, sess session.Session) error { return session.Save(path, sess) }

// LoadSessionRequested asks for a session file to be loaded,
// intercepted by [PersistenceMiddleware] before it would otherwise
// reach the reducer — persistence/session actions are their own
// middleware stage, distinct from the generic reducer path.
type LoadSessionRequested struct{ Path string }

// SaveSessionRequested asks for the current state to be saved.
type SaveSessionRequested struct{ Path string }

// PersistenceMiddleware intercepts [LoadSessionRequested]/
// [SaveSessionRequested]; everything else falls through to the rest
// of the chain.
//
// Loading replaces state wholesale (a session describes the complete
// mixer configuration) but does so by replaying a sequence of the
// same reducer actions a live user session would dispatch — never a
// single opaque "replace state" action — so every transition still
// goes through a reducer. MIDI-to-parameter dispatch is suppressed
// for the duration of the replay so an in-flight MIDI-learn action
// can't land on half-loaded state.
func PersistenceMiddleware(io SessionIO, registry *fxmodule.Registry) Middleware {
	return func(s *Store, a Action, next NextFunc) error {
		switch act := a.(type) {
		case LoadSessionRequested:
			return loadSession(s, io, registry, act.Path)
		case SaveSessionRequested:
			return saveSession(s, io, act.Path)
		default:
			return next(a)
		}
	}
}


func loadSession(s *Store, io SessionIO, registry *fxmodule.Registry, path string) error {
	sess, err := io.Load(path)
	if err != nil {
		return fmt.Errorf("store: load session: %w", err)
	}

	s.SuppressMIDI()
	defer s.ResumeMIDI()

	// Replay into the live state rather than swapping in a freshly
	// built one: the engine's registry and every cached parameter
	// read are bound to this state's parameter store for the life of
	// the process, and a replayed reset keeps the "every transition
	// goes through a reducer" property intact.
	st := s.State()
	clearState(st)

	nameToChannel := make(map[string]mixer.ChannelID, len(sess.Channels))
	nameToChannel["Main"] = st.Mixer.Get().Main
	for _, ch := range sess.Channels {
		before := st.Mixer.Get().Channels
		if err := state.Reduce(st, state.AddMixerChannel{
			Type: session.ParseChannelType(ch.Type),
			Name: ch.Name,
		}); err != nil {
			log.Error("store: load session: add channel", "name", ch.Name, "err", err)
			continue
		}
		id := newestChannel(st, before)
		nameToChannel[ch.Name] = id
		applyChannelValues(st, id, ch.Values)
		applyFxChain(st, registry, id, ch)
	}

	nameToDevice := make(map[string]external.DeviceID)
	applyDevices(st, sess.ExternalInputs, mixer.Input, nameToDevice)
	applyDevices(st, sess.ExternalOutputs, mixer.Output, nameToDevice)

	for _, ch := range sess.Channels {
		chID, ok := nameToChannel[ch.Name]
		if !ok {
			continue
		}
		applyRoute(st, chID, state.SocketIn, ch.In, nameToChannel, nameToDevice)
		applyRoute(st, chID, state.SocketOut, ch.Out, nameToChannel, nameToDevice)
	}

	s.notifySubscribers()
	return nil
}

// clearState replays deletions until only the main channel remains,
// with its strip parameters back at their defaults.
func clearState(st *state.State) {
	for _, id := range st.Mixer.Get().Inputs {
		if err := state.Reduce(st, state.DeleteMixerChannel(id)); err != nil {
			log.Error("store: load session: clear channel", "err", err)
		}
	}
	for id := range st.External.Get().Inputs {
		_ = state.Reduce(st, state.RemoveExternalAudioDevice{ID: id, Direction: state.DirectionInput})
	}
	for id := range st.External.Get().Outputs {
		_ = state.Reduce(st, state.RemoveExternalAudioDevice{ID: id, Direction: state.DirectionOutput})
	}

	main := st.Mixer.Get().Main
	applyChannelValues(st, main, session.ParameterValues{Volume: 1})
}

// applyFxChain rebuilds a persisted fx chain: internal kinds come
// back through the registry; every LADSPA reference loads as an
// unavailable placeholder carrying the saved values and assignments,
// since plug-in hosting is out of scope and the placeholder path
// is how a reference to an uninstalled plug-in is recovered.
func applyFxChain(st *state.State, registry *fxmodule.Registry, chID mixer.ChannelID, ch session.Channel) {
	chType := session.ParseChannelType(ch.Type)
	for _, f := range ch.FxChain {
		if f.Kind == "ladspa" {
			mod := fx.Module{
				Instance:         fx.NewUnavailableLadspaInstance(f.LadspaUID),
				Name:             "LADSPA",
				BusType:          chType,
				Parameters:       map[fx.ParameterKey]param.AnyID{},
				SavedValues:      savedValues(f.Parameters),
				SavedMidiAssigns: savedAssigns(f.MidiAssigns),
			}
			if err := state.Reduce(st, state.InsertLadspaFxModule{
				ChainID: chID, Position: -1,
				ModuleID: registry.NextModuleID(), Module: mod, Active: f.Active,
			}); err != nil {
				log.Error("store: load session: ladspa placeholder", "err", err)
			}
			continue
		}

		mod, ok := registry.NewByKind(fx.InternalKind(f.Kind), chType)
		if !ok {
			log.Warn("store: load session: unknown fx kind, skipping", "kind", f.Kind)
			continue
		}
		if err := state.Reduce(st, state.InsertInternalFxModule{
			ChainID: chID, Position: -1,
			ModuleID: registry.NextModuleID(), Module: mod, Active: f.Active,
		}); err != nil {
			log.Error("store: load session: insert fx", "kind", f.Kind, "err", err)
			continue
		}
		for key, v := range f.Parameters {
			applyFxValue(st, mod, fx.ParameterKey(key), v)
		}
	}
}

func savedValues(values map[string]float64) map[fx.ParameterKey]float64 {
	out := make(map[fx.ParameterKey]float64, len(values))
	for k, v := range values {
		out[fx.ParameterKey(k)] = v
	}
	return out
}

func savedAssigns(assigns map[string]int) map[fx.ParameterKey]int {
	out := make(map[fx.ParameterKey]int, len(assigns))
	for k, v := range assigns {
		out[fx.ParameterKey(k)] = v
	}
	return out
}

func applyFxValue(st *state.State, mod fx.Module, key fx.ParameterKey, v float64) {
	pid, ok := mod.Parameters[key]
	if !ok {
		return
	}
	var err error
	switch {
	case pid.Float.Valid():
		err = state.Reduce(st, state.SetFloatParameterValue{ID: pid.Float, Value: v})
	case pid.Bool.Valid():
		err = state.Reduce(st, state.SetBoolParameterValue{ID: pid.Bool, Value: v != 0})
	case pid.Int.Valid():
		err = state.Reduce(st, state.SetIntParameterValue{ID: pid.Int, Value: int(v)})
	case pid.Enum.Valid():
		err = state.Reduce(st, state.SetEnumParameterValue{ID: pid.Enum, Value: int(v)})
	}
	if err != nil {
		log.Warn("store: load session: fx value rejected", "key", string(key), "err", err)
	}
}

// newestChannel returns the one channel id present in s's current
// mixer state that wasn't in before, the same before/after diff
// [newestDevice] uses — a freshly dispatched AddMixerChannel mints
// exactly one new id.
func newestChannel(s *state.State, before mixer.Channels) mixer.ChannelID {
	var latest mixer.ChannelID
	for id := range s.Mixer.Get().Channels {
		if _, existed := before[id]; !existed {
			latest = id
		}
	}
	return latest
}

func applyChannelValues(s *state.State, id mixer.ChannelID, v session.ParameterValues) {
	ch, ok := s.Mixer.Get().Channels[id]
	if !ok {
		return
	}
	_ = state.Reduce(s, state.SetFloatParameterValue{ID: ch.Volume, Value: v.Volume})
	_ = state.Reduce(s, state.SetFloatParameterValue{ID: ch.PanBalance, Value: v.PanBalance})
	_ = state.Reduce(s, state.SetBoolParameterValue{ID: ch.Mute, Value: v.Mute})
	_ = state.Reduce(s, state.SetBoolParameterValue{ID: ch.Solo, Value: v.Solo})
	_ = state.Reduce(s, state.SetBoolParameterValue{ID: ch.Record, Value: v.Record})
}

func applyDevices(s *state.State, devices []session.Device, dir mixer.IODirection, out map[string]external.DeviceID) {
	for _, d := range devices {
		direction := state.DirectionInput
		if dir == mixer.Output {
			direction = state.DirectionOutput
		}
		before := deviceTable(s, dir)
		_ = state.Reduce(s, state.AddExternalAudioDevice{
			Direction: direction,
			Type:      session.ParseChannelType(d.Type),
			Name:      d.Name,
		})
		id := newestDevice(deviceTable(s, dir), before)
		out[tableKey(dir, d.Name)] = id
		_ = state.Reduce(s, state.SetExternalAudioDeviceBusChannel{ID: id, Direction: direction, Right: false, Index: d.Left})
		_ = state.Reduce(s, state.SetExternalAudioDeviceBusChannel{ID: id, Direction: direction, Right: true, Index: d.Right})
	}
}

func deviceTable(s *state.State, dir mixer.IODirection) external.Devices {
	st := s.External.Get()
	if dir == mixer.Input {
		return st.Inputs
	}
	return st.Outputs
}

func newestDevice(table external.Devices, before external.Devices) external.DeviceID {
	var latest external.DeviceID
	for id := range table {
		if _, existed := before[id]; !existed {
			latest = id
		}
	}
	return latest
}

func tableKey(dir mixer.IODirection, name string) string {
	if dir == mixer.Input {
		return "in:" + name
	}
	return "out:" + name
}

func applyRoute(s *state.State, chID mixer.ChannelID, socket state.Socket, route session.IORoute, channels map[string]mixer.ChannelID, devices map[string]external.DeviceID) {
	var addr mixer.IOAddress
	switch route.Kind {
	case "mix":
		addr = mixer.MixInput()
	case "channel":
		if id, ok := channels[route.Name]; ok {
			addr = mixer.ToChannel(id)
		}
	case "device":
		dir := mixer.Input
		if socket == state.SocketOut {
			dir = mixer.Output
		}
		if id, ok := devices[tableKey(dir, route.Name)]; ok {
			addr = mixer.ToDevice(id)
		}
	default:
		addr = mixer.NoInput()
	}
	if err := state.Reduce(s, state.SetMixerChannelRoute{ChannelID: chID, Socket: socket, Route: addr}); err != nil {
		log.Warn("store: load session: route rejected", "channel", chID.Raw(), "err", err)
	}
}

func saveSession(s *Store, io SessionIO, path string) error {
	st := s.State()
	mixSt := st.Mixer.Get()
	fxSt := st.Fx.Get()
	extSt := st.External.Get()

	sess := session.Session{}
	for _, id := range mixSt.Inputs {
		ch := mixSt.Channels[id]
		sess.Channels = append(sess.Channels, session.Channel{
			Name: ch.Name,
			Type: session.ChannelTypeString(ch.Type),
			Values: session.ParameterValues{
				Volume:     st.Params.Floats.At(ch.Volume).Get(),
				PanBalance: st.Params.Floats.At(ch.PanBalance).Get(),
				Mute:       st.Params.Bools.At(ch.Mute).Get(),
				Solo:       st.Params.Bools.At(ch.Solo).Get(),
				Record:     st.Params.Bools.At(ch.Record).Get(),
			},
			In:      routeOf(mixSt.IOMap[id].In, mixSt, extSt),
			Out:     routeOf(mixSt.IOMap[id].Out, mixSt, extSt),
			FxChain: fxChainOf(st, fxSt, id),
		})
	}
	for _, d := range extSt.Inputs {
		sess.ExternalInputs = append(sess.ExternalInputs, session.Device{
			Name: d.Name, Type: session.ChannelTypeString(d.Type), Left: d.Channels.Left, Right: d.Channels.Right,
		})
	}
	for _, d := range extSt.Outputs {
		sess.ExternalOutputs = append(sess.ExternalOutputs, session.Device{
			Name: d.Name, Type: session.ChannelTypeString(d.Type), Left: d.Channels.Left, Right: d.Channels.Right,
		})
	}

	if err := io.Save(path, sess); err != nil {
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

// fxChainOf serializes one channel's fx chain: internal kinds by
// their kind tag plus live parameter values; LADSPA modules (live or
// placeholder) by plug-in UID plus whatever values they carry — a
// placeholder's saved list rides through a save/load cycle untouched.
func fxChainOf(st *state.State, fxSt fx.State, chID mixer.ChannelID) []session.FxModule {
	var out []session.FxModule
	for _, modID := range fxSt.Chains[chID] {
		mod, ok := fxSt.Modules[modID]
		if !ok {
			continue
		}
		f := session.FxModule{Active: fx.IsActive(modID, fxSt, st.Params)}
		switch mod.Instance.Kind {
		case fx.InstanceInternal:
			f.Kind = string(mod.Instance.Internal)
			f.Parameters = make(map[string]float64, len(mod.Parameters))
			for key, pid := range mod.Parameters {
				switch {
				case pid.Float.Valid():
					f.Parameters[string(key)] = st.Params.Floats.At(pid.Float).Get()
				case pid.Bool.Valid():
					if st.Params.Bools.At(pid.Bool).Get() {
						f.Parameters[string(key)] = 1
					} else {
						f.Parameters[string(key)] = 0
					}
				case pid.Int.Valid():
					f.Parameters[string(key)] = float64(st.Params.Ints.At(pid.Int).Get())
				case pid.Enum.Valid():
					f.Parameters[string(key)] = float64(st.Params.Enums.At(pid.Enum).Get())
				}
			}
		default:
			f.Kind = "ladspa"
			f.LadspaUID = mod.Instance.UnavailablePluginUID
			f.Parameters = make(map[string]float64, len(mod.SavedValues))
			for k, v := range mod.SavedValues {
				f.Parameters[string(k)] = v
			}
			if len(mod.SavedMidiAssigns) > 0 {
				f.MidiAssigns = make(map[string]int, len(mod.SavedMidiAssigns))
				for k, v := range mod.SavedMidiAssigns {
					f.MidiAssigns[string(k)] = v
				}
			}
		}
		out = append(out, f)
	}
	return out
}

func routeOf(addr mixer.IOAddress, mixSt mixer.State, extSt external.State) session.IORoute {
	switch addr.Kind {
	case mixer.IOMix:
		return session.IORoute{Kind: "mix"}
	case mixer.IOChannel:
		return session.IORoute{Kind: "channel", Name: mixSt.Channels[addr.Channel].Name}
	case mixer.IODevice:
		if d, ok := extSt.Inputs[addr.Device]; ok {
			return session.IORoute{Kind: "device", Name: d.Name}
		}
		if d, ok := extSt.Outputs[addr.Device]; ok {
			return session.IORoute{Kind: "device", Name: d.Name}
		}
		return session.IORoute{Kind: "none"}
	default:
		return session.IORoute{Kind: "none"}
	}
}
