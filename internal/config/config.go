// Package config loads the daemon's application configuration: a
// small YAML document parsed once at startup and handed to the pieces
// that need it. Persistent
// state lives under an OS-specific user config directory with
// sessions/ and recordings/ subdirectories.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GPIO configures the optional carrier-board bindings; a zero Chip
// disables them.
type GPIO struct {
	Chip       string `yaml:"chip"`
	Footswitch int    `yaml:"footswitch"`
	RecordLED  int    `yaml:"record_led"`
}

// Config is the full application configuration.
type Config struct {
	SampleRate     float64 `yaml:"sample_rate"`
	PeriodSize     int     `yaml:"period_size"`
	InputChannels  int     `yaml:"input_channels"`
	OutputChannels int     `yaml:"output_channels"`

	// Workers is the real-time worker pool size; 0 runs the scheduler
	// single-threaded on the audio thread.
	Workers int `yaml:"workers"`

	// StartupSession, when non-empty, is loaded by the
	// InitiateStartupSession action after the engine comes up.
	StartupSession string `yaml:"startup_session"`

	MIDIQueueCapacity int `yaml:"midi_queue_capacity"`

	GPIO GPIO `yaml:"gpio"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	return Config{
		SampleRate:        48000,
		PeriodSize:        256,
		InputChannels:     2,
		OutputChannels:    2,
		Workers:           0,
		MIDIQueueCapacity: 256,
	}
}

// Dir returns the application's config directory, creating it and the
// sessions/ and recordings/ subdirectories if missing.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: user config dir: %w", err)
	}
	dir := filepath.Join(base, "piejam")
	for _, sub := range []string{"", "sessions", "recordings"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("config: create %s: %w", filepath.Join(dir, sub), err)
		}
	}
	return dir, nil
}

// Load reads the config file at path, falling back to [Default] when
// the file doesn't exist yet.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
