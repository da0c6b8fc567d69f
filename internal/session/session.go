// Package session owns the on-disk session format: opaque Load and
// Save functions the rest of the engine calls without ever touching
// the file shape itself. The wire shape is a plain YAML document.
//
// Session is a flat, name-addressed snapshot rather than a replica of
// the live id-keyed state: ids are per-process and never recycle
// (internal/id), so persisting them verbatim would tie a saved
// session to one process's lifetime. internal/store's persistence
// middleware clears the live state and turns a loaded
// Session into a sequence of reducer actions replayed against it,
// re-minting ids as it goes, rather than replacing state
// wholesale.
package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dkotrev/piejam-engine-go/internal/state/mixer"
)

// ParameterValues is a named parameter's persisted value, keyed by a
// stable string rather than the runtime's [param.AnyID] (see the
// package doc).
type ParameterValues struct {
	Volume     float64 `yaml:"volume"`
	PanBalance float64 `yaml:"pan_balance"`
	Mute       bool    `yaml:"mute"`
	Solo       bool    `yaml:"solo"`
	Record     bool    `yaml:"record"`
}

// IORoute is a persisted routing endpoint, addressed by kind plus a
// name (channel/device name) rather than a live id.
type IORoute struct {
	Kind string `yaml:"kind"` // "none" | "mix" | "device" | "channel"
	Name string `yaml:"name,omitempty"`
}

// FxModule is a persisted fx-chain entry.
type FxModule struct {
	Kind       string            `yaml:"kind"` // internal kind name, or "ladspa"
	LadspaUID  uint64            `yaml:"ladspa_uid,omitempty"`
	Active     bool              `yaml:"active"`
	Parameters map[string]float64 `yaml:"parameters,omitempty"`
	MidiAssigns map[string]int   `yaml:"midi_assigns,omitempty"`
}

// Channel is a persisted mixer channel.
type Channel struct {
	Name       string           `yaml:"name"`
	Type       string           `yaml:"type"` // "mono" | "stereo" | "aux"
	Values     ParameterValues  `yaml:"values"`
	In         IORoute          `yaml:"in"`
	Out        IORoute          `yaml:"out"`
	FxChain    []FxModule       `yaml:"fx_chain,omitempty"`
}

// Device is a persisted external audio device endpoint.
type Device struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"` // "mono" | "stereo"
	Left  int    `yaml:"left"`
	Right int    `yaml:"right"`
}

// Session is the full persisted mixer configuration Load and Save
// exchange.
type Session struct {
	Channels        []Channel `yaml:"channels"`
	ExternalInputs  []Device  `yaml:"external_inputs,omitempty"`
	ExternalOutputs []Device  `yaml:"external_outputs,omitempty"`
}

// ChannelTypeString converts a [mixer.ChannelType] to its persisted
// name.
func ChannelTypeString(t mixer.ChannelType) string {
	switch t {
	case mixer.Mono:
		return "mono"
	case mixer.Aux:
		return "aux"
	default:
		return "stereo"
	}
}

// ParseChannelType is the inverse of [ChannelTypeString]; unknown
// values default to stereo so a forward-compatible session file with
// an unrecognized channel type still loads instead of aborting the
// whole load.
func ParseChannelType(s string) mixer.ChannelType {
	switch s {
	case "mono":
		return mixer.Mono
	case "aux":
		return mixer.Aux
	default:
		return mixer.Stereo
	}
}

// Load reads and parses a session file. The engine never inspects the
// returned value's shape beyond what internal/store's persistence
// middleware does — says the engine "never parses these itself"
// meaning its core packages don't, not that no package may; this is
// the one package that owns the format.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("session: read %s: %w", path, err)
	}
	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("session: parse %s: %w", path, err)
	}
	return sess, nil
}

// Save serializes sess to path as YAML, creating or truncating it.
func Save(path string, sess Session) error {
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	return nil
}
