package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/config"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "piejam.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestSaveLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "piejam.yaml")

	in := config.Default()
	in.PeriodSize = 128
	in.Workers = 3
	in.StartupSession = "/data/sessions/live.yaml"
	in.GPIO = config.GPIO{Chip: "gpiochip0", Footswitch: 17, RecordLED: 27}

	require.NoError(t, config.Save(path, in))
	out, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "piejam.yaml")
	require.NoError(t, os.WriteFile(path, []byte("period_size: 64\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.PeriodSize)
	assert.Equal(t, config.Default().SampleRate, cfg.SampleRate)
}
