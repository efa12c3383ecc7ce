// Package config loads and saves the marketlink TOML configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Version   int             `toml:"version"`
	Log       LogConfig       `toml:"log"`
	Browser   BrowserConfig   `toml:"browser"`
	Linker    LinkerConfig    `toml:"linker"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	API       APIConfig       `toml:"api"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type BrowserConfig struct {
	Headless              bool   `toml:"headless"`
	ProfileDir            string `toml:"profile_dir"`
	DiagnosticsDir        string `toml:"diagnostics_dir"`
	NavTimeoutSeconds     int    `toml:"nav_timeout_seconds"`
	SelectorBudgetSeconds int    `toml:"selector_budget_seconds"`
	PerCandidateCapMillis int    `toml:"per_candidate_cap_millis"`
	LoginBudgetSeconds    int    `toml:"login_budget_seconds"`
	CheckoutBudgetSeconds int    `toml:"checkout_budget_seconds"`
}

type LinkerConfig struct {
	IdleTimeoutMinutes int `toml:"idle_timeout_minutes"`
	SweepEveryMinutes  int `toml:"sweep_every_minutes"`
}

type ReconcileConfig struct {
	EveryMinutes int `toml:"every_minutes"`
}

type APIConfig struct {
	WildberriesBaseURL string `toml:"wildberries_base_url"`
	OzonBaseURL        string `toml:"ozon_base_url"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Log: LogConfig{
			Level: "info",
		},
		Browser: BrowserConfig{
			Headless:              true,
			NavTimeoutSeconds:     30,
			SelectorBudgetSeconds: 10,
			PerCandidateCapMillis: 3000,
			LoginBudgetSeconds:    45,
			CheckoutBudgetSeconds: 60,
		},
		Linker: LinkerConfig{
			IdleTimeoutMinutes: 15,
			SweepEveryMinutes:  1,
		},
		Reconcile: ReconcileConfig{
			EveryMinutes: 10,
		},
		API: APIConfig{
			WildberriesBaseURL: "https://suppliers-api.wildberries.ru",
			OzonBaseURL:        "https://api-seller.ozon.ru",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "marketlink"), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory for the database and diagnostics.
func DataDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Load reads config from disk.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
