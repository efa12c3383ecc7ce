package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akozyrev/marketlink/internal/config"
)

// The config path derives from os.UserConfigDir, which honors
// XDG_CONFIG_HOME on linux and darwin.
func isolateConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolateConfigDir(t)

	cfg := config.Default()
	cfg.Log.Level = "debug"
	cfg.Browser.Headless = false
	cfg.Linker.IdleTimeoutMinutes = 5
	cfg.API.WildberriesBaseURL = "http://localhost:9999"
	require.NoError(t, cfg.Save())

	loaded, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	isolateConfigDir(t)

	_, err := config.Load()
	require.Error(t, err)
}

func TestDefaultIsUsable(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, 1, cfg.Version)
	require.True(t, cfg.Browser.Headless)
	require.Positive(t, cfg.Browser.LoginBudgetSeconds)
	require.Positive(t, cfg.Browser.CheckoutBudgetSeconds)
	require.Positive(t, cfg.Linker.IdleTimeoutMinutes)
	require.Positive(t, cfg.Reconcile.EveryMinutes)
	require.NotEmpty(t, cfg.API.WildberriesBaseURL)
	require.NotEmpty(t, cfg.API.OzonBaseURL)
}

func TestPathsShareRoot(t *testing.T) {
	isolateConfigDir(t)

	dir, err := config.ConfigDir()
	require.NoError(t, err)

	path, err := config.ConfigPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "config.toml"), path)

	data, err := config.DataDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "data"), data)
}
