// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Arbiter ArbiterConfig `yaml:"arbiter"`
	Bus     BusConfig     `yaml:"bus"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
}

// ArbiterConfig represents arbitration engine configuration.
type ArbiterConfig struct {
	Enabled *bool `yaml:"enabled" default:"true"`
	// Pointer so an explicit 0 (synchronous resume) survives defaulting.
	ResumeDelayMs    *int  `yaml:"resume_delay_ms" default:"600" validate:"omitempty,gte=0,lte=10000"`
	StartupReconcile *bool `yaml:"startup_reconcile" default:"true"`
}

// BusConfig represents session bus configuration.
type BusConfig struct {
	CommandTimeoutMs int            `yaml:"command_timeout_ms" default:"2000" validate:"gte=100,lte=30000"`
	Settings         map[string]any `yaml:"settings"`
}

// MPRISSettings represents MPRIS backend settings, decoded from the
// free-form bus settings map.
type MPRISSettings struct {
	IgnoredPrefixes []string `mapstructure:"ignored_prefixes"`
}

// NotifyConfig represents desktop notification configuration.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig represents logger configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info"`
	File   string `yaml:"file"`
}

// DefaultPath returns the default config file location under the XDG config
// home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "onair", "onair.yaml")
}

// Load loads configuration from a YAML file. A missing file is not an error:
// the daemon runs on defaults alone. Environment variables take precedence
// over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("ONAIR_DISABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			enabled := !b
			c.Arbiter.Enabled = &enabled
		}
	}
	if v := os.Getenv("ONAIR_RESUME_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Arbiter.ResumeDelayMs = &n
		}
	}
	if v := os.Getenv("ONAIR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// Enabled reports whether arbitration starts enabled.
func (c *Config) Enabled() bool {
	return c.Arbiter.Enabled == nil || *c.Arbiter.Enabled
}

// StartupReconcile reports whether existing players are reconciled at startup.
func (c *Config) StartupReconcile() bool {
	return c.Arbiter.StartupReconcile == nil || *c.Arbiter.StartupReconcile
}

// ResumeDelay returns the resume debounce as a duration.
func (c *Config) ResumeDelay() time.Duration {
	if c.Arbiter.ResumeDelayMs == nil {
		return 600 * time.Millisecond
	}
	return time.Duration(*c.Arbiter.ResumeDelayMs) * time.Millisecond
}

// CommandTimeout returns the per-command timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Bus.CommandTimeoutMs) * time.Millisecond
}

// MPRISSettings decodes the bus settings map into MPRIS backend settings.
func (c *Config) MPRISSettings() (MPRISSettings, error) {
	var s MPRISSettings
	if len(c.Bus.Settings) == 0 {
		return s, nil
	}
	if err := mapstructure.Decode(c.Bus.Settings, &s); err != nil {
		return s, errors.Wrap(err, "failed to decode bus settings")
	}
	return s, nil
}
