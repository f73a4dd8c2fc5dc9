package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "tickfsm.yaml", `
log_level: debug
runtime:
  tick_rate: 5ms
door:
  toggle_period: 250ms
  fail_every: 3
metrics:
  enabled: true
  addr: 127.0.0.1:9100
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.LogLevel = "debug"
	want.Runtime.TickRate = 5 * time.Millisecond
	want.Door.TogglePeriod = 250 * time.Millisecond
	want.Door.FailEvery = 3
	want.Metrics = MetricsConfig{Enabled: true, Addr: "127.0.0.1:9100"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvironmentWins(t *testing.T) {
	path := writeFile(t, "tickfsm.yaml", "runtime:\n  tick_rate: 5ms\n")
	t.Setenv("TICKFSM_RUNTIME_TICK_RATE", "20ms")
	t.Setenv("TICKFSM_SCHEDULER_CAPACITY", "4")
	t.Setenv("TICKFSM_SNAPSHOT_FORMAT", "yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.Runtime.TickRate)
	assert.Equal(t, 4, cfg.Scheduler.Capacity)
	assert.Equal(t, "yaml", cfg.Snapshot.Format)
}

func TestDotenvFile(t *testing.T) {
	dotenv := writeFile(t, ".env", "TICKFSM_DOOR_AUTO_CLOSE=750ms\nTICKFSM_LOG_FORMAT=json\n")
	t.Cleanup(func() {
		os.Unsetenv("TICKFSM_DOOR_AUTO_CLOSE")
		os.Unsetenv("TICKFSM_LOG_FORMAT")
	})

	cfg, err := Load("", dotenv, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Door.AutoClose)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "runtime: [1, 2"))
		assert.ErrorIs(t, err, ErrParsingConfig)
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("TICKFSM_SCHEDULER_CAPACITY", "many")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrParsingConfig)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("TICKFSM_RUNTIME_TICK_RATE", "0s")
		t.Setenv("TICKFSM_SNAPSHOT_FORMAT", "xml")
		_, err := Load("")
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "tick_rate")
		assert.Contains(t, err.Error(), "snapshot.format")
	})
}

func TestValidateMetricsAddr(t *testing.T) {
	cfg := Default()
	cfg.Metrics = MetricsConfig{Enabled: true}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
