// Package config loads and validates skim's YAML configuration file.
// Command-line flags and SKIM_* environment variables are layered on top by
// the command layer; this package only knows the file and its defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/skim/internal/db"
	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/scanning"
	"github.com/anstrom/skim/internal/target"
)

// Config represents the complete configuration.
type Config struct {
	// Scanning configuration
	Scanning ScanningConfig `yaml:"scanning" json:"scanning"`

	// Target resolution
	Resolver target.Config `yaml:"resolver" json:"resolver"`

	// Report outputs
	Output OutputConfig `yaml:"output" json:"output"`

	// Report store
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Metrics endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Recurring scans
	Watch WatchConfig `yaml:"watch" json:"watch"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging"`
}

// ScanningConfig holds scanning-related settings.
type ScanningConfig struct {
	// Ports to probe when none are given on the command line. Empty means
	// the built-in well-known list.
	Ports string `yaml:"ports" json:"ports"`

	// Per-operation timeout for connect, banner read and TLS handshake
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Maximum probes in flight
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Connect attempts per port
	Retries int `yaml:"retries" json:"retries"`

	// Bytes read per banner probe
	BannerSize int `yaml:"banner_size" json:"banner_size"`

	// Pause after a resource-exhausted connect
	ExhaustionBackoff time.Duration `yaml:"exhaustion_backoff" json:"exhaustion_backoff"`

	// Run an nmap ping before scanning
	Ping bool `yaml:"ping" json:"ping"`

	// Ping timeout
	PingTimeout time.Duration `yaml:"ping_timeout" json:"ping_timeout"`
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	// JSON report path. Empty disables the file.
	Path string `yaml:"path" json:"path"`
}

// DatabaseConfig enables the PostgreSQL report store.
type DatabaseConfig struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	db.Config `yaml:",inline"`
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// WatchConfig holds settings for recurring scans.
type WatchConfig struct {
	// Standard five-field cron expression, or a descriptor such as "@hourly".
	Schedule string `yaml:"schedule" json:"schedule"`

	// Run once immediately instead of waiting for the first tick
	RunOnStart bool `yaml:"run_on_start" json:"run_on_start"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Ports:             "",
			Timeout:           scanning.DefaultTimeout,
			Concurrency:       scanning.DefaultMaxConcurrency,
			Retries:           scanning.DefaultRetries,
			BannerSize:        scanning.DefaultBannerSize,
			ExhaustionBackoff: scanning.DefaultExhaustionBackoff,
			Ping:              true,
			PingTimeout:       10 * time.Second,
		},
		Resolver: target.Config{
			Nameserver: "",
			Timeout:    5 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled: false,
			Config:  db.DefaultConfig(),
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
		Watch: WatchConfig{
			Schedule:   "@hourly",
			RunOnStart: true,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// JSON is a subset of YAML, so one decoder serves both.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config file %s", filepath.Base(path)), err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ScanConfig().Validate(); err != nil {
		return err
	}

	if c.Scanning.Ports != "" {
		if _, err := scanning.ParsePortSpec(c.Scanning.Ports); err != nil {
			return err
		}
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return errors.NewConfigFieldError(errors.CodeConfiguration, "database host is required", "database.host", "")
		}
		if c.Database.Database == "" {
			return errors.NewConfigFieldError(errors.CodeConfiguration, "database name is required", "database.database", "")
		}
		if c.Database.Username == "" {
			return errors.NewConfigFieldError(errors.CodeConfiguration, "database username is required", "database.username", "")
		}
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"metrics listen address is required when metrics are enabled", "metrics.listen_addr", "")
	}

	if c.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
			return errors.NewConfigFieldError(errors.CodeConfiguration,
				fmt.Sprintf("invalid watch schedule: %v", err), "watch.schedule", c.Watch.Schedule)
		}
	}

	validLogLevels := map[logging.LogLevel]bool{
		logging.LevelDebug: true,
		logging.LevelInfo:  true,
		logging.LevelWarn:  true,
		logging.LevelError: true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.NewConfigFieldError(errors.CodeConfiguration, "invalid log level", "logging.level", c.Logging.Level)
	}

	if c.Logging.Format != logging.FormatText && c.Logging.Format != logging.FormatJSON {
		return errors.NewConfigFieldError(errors.CodeConfiguration, "invalid log format", "logging.format", c.Logging.Format)
	}

	return nil
}

// ScanConfig returns the scanning section as a ScanConfig. Debug logging
// turns on per-port verbosity.
func (c *Config) ScanConfig() scanning.ScanConfig {
	return scanning.ScanConfig{
		Timeout:           c.Scanning.Timeout,
		MaxConcurrency:    c.Scanning.Concurrency,
		Retries:           c.Scanning.Retries,
		BannerSize:        c.Scanning.BannerSize,
		ExhaustionBackoff: c.Scanning.ExhaustionBackoff,
		Verbose:           c.Logging.Level == logging.LevelDebug,
		OutputPath:        c.Output.Path,
	}
}
