package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, 60, cfg.Poll.IntervalSec)
	require.Equal(t, "info", cfg.Log.Level)
	require.True(t, cfg.Notify.Desktop)
	require.Equal(t, "thread", cfg.GitHub.ReferrerStrategy)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Poll.IntervalSec = 15
	cfg.Log.Level = "debug"
	cfg.Metrics.Addr = "127.0.0.1:9300"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 15, loaded.Poll.IntervalSec)
	require.Equal(t, "debug", loaded.Log.Level)
	require.Equal(t, "127.0.0.1:9300", loaded.Metrics.Addr)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("FORGE_SPARKS_POLL_INTERVAL_SEC", "5")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Poll.IntervalSec)
}

func TestPollInterval(t *testing.T) {
	require.Equal(t, "1s", PollConfig{}.Interval().String())
	require.Equal(t, "1m0s", PollConfig{IntervalSec: 60}.Interval().String())
}
