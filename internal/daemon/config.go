// Package daemon manages the battguard daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tutu-network/battguard/internal/domain"
)

// Config holds all daemon configuration.
type Config struct {
	Guard     domain.Config   `toml:"guard"`
	Monitor   MonitorConfig   `toml:"monitor"`
	API       APIConfig       `toml:"api"`
	Journal   JournalConfig   `toml:"journal"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// MonitorConfig controls power sampling.
type MonitorConfig struct {
	PollInterval string `toml:"poll_interval"`
}

// APIConfig controls the local control API.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// JournalConfig controls the SQLite event journal.
type JournalConfig struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	File string `toml:"file"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Guard: domain.DefaultConfig(),
		Monitor: MonitorConfig{
			PollInterval: "2s",
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7878,
			CORSOrigins: []string{"http://localhost", "http://127.0.0.1"},
		},
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// PollInterval returns the parsed sampling interval.
func (c Config) PollInterval() time.Duration {
	return parseDuration(c.Monitor.PollInterval, 2*time.Second)
}

// Addr returns the control API listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// LoadConfig reads config from $BATTGUARD_HOME/config.toml, falling back to
// defaults for the file and for any missing key. Guard values are clamped
// into range.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}

	cfg.Guard = cfg.Guard.Normalize()
	return cfg, nil
}

// SaveConfig writes the config to $BATTGUARD_HOME/config.toml. The file is
// replaced atomically so a crash never leaves it half-written.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Home returns the battguard data directory.
func Home() string {
	if env := os.Getenv("BATTGUARD_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".battguard")
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
