// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// LogLevelDebug logs everything.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"

	// DefaultPortalURL is the official mod portal.
	DefaultPortalURL = "https://mods.factorio.com"
	// DefaultModsDir is relative to the working directory.
	DefaultModsDir = "./mods"
	// DefaultCacheExpiry is in seconds.
	DefaultCacheExpiry = 3600
	// DefaultConcurrency bounds concurrent loads and downloads.
	DefaultConcurrency = 8
)

var (
	// ErrInvalidLogLevel is returned for unknown log levels.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is wrapped by every *InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level logged.
	LogLevel string

	// Config is modtorio's configuration.
	Config struct {
		Portal    PortalConfig  `json:"portal" mapstructure:"portal"`
		ModsDir   string        `json:"mods_dir" mapstructure:"mods_dir"`
		StorePath string        `json:"store_path" mapstructure:"store_path"`
		// CacheExpiry is in seconds.
		CacheExpiry int           `json:"cache_expiry" mapstructure:"cache_expiry"`
		Concurrency int           `json:"concurrency" mapstructure:"concurrency"`
		LogLevel    LogLevel      `json:"log_level" mapstructure:"log_level"`
		Metrics     MetricsConfig `json:"metrics" mapstructure:"metrics"`

		// Source is the file the configuration was read from, empty when
		// only defaults and the environment apply.
		Source string `json:"-" mapstructure:"-"`
	}

	// PortalConfig locates and authenticates against the mod portal.
	PortalConfig struct {
		URL      string `json:"url" mapstructure:"url"`
		Username string `json:"username" mapstructure:"username"`
		Token    string `json:"token" mapstructure:"token"`
	}

	// MetricsConfig controls the Prometheus textfile export.
	MetricsConfig struct {
		Textfile string `json:"textfile" mapstructure:"textfile"`
	}

	// InvalidConfigError reports a configuration value that loaded but is
	// unusable.
	InvalidConfigError struct {
		Field string
		Err   error
	}
)

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Portal:      PortalConfig{URL: DefaultPortalURL},
		ModsDir:     DefaultModsDir,
		StorePath:   DefaultStorePath(),
		CacheExpiry: DefaultCacheExpiry,
		Concurrency: DefaultConcurrency,
		LogLevel:    LogLevelInfo,
	}
}

// Validate reports the first unusable value.
func (c *Config) Validate() error {
	switch {
	case c.ModsDir == "":
		return &InvalidConfigError{Field: "mods_dir", Err: errors.New("must not be empty")}
	case c.StorePath == "":
		return &InvalidConfigError{Field: "store_path", Err: errors.New("must not be empty")}
	case c.CacheExpiry < 0:
		return &InvalidConfigError{Field: "cache_expiry", Err: fmt.Errorf("must not be negative, got %d", c.CacheExpiry)}
	case c.Concurrency < 1:
		return &InvalidConfigError{Field: "concurrency", Err: fmt.Errorf("must be at least 1, got %d", c.Concurrency)}
	}
	if err := c.LogLevel.Validate(); err != nil {
		return &InvalidConfigError{Field: "log_level", Err: err}
	}
	return nil
}

// CacheExpiryDuration returns CacheExpiry as a duration.
func (c *Config) CacheExpiryDuration() time.Duration {
	return time.Duration(c.CacheExpiry) * time.Second
}

// HasCredentials reports whether portal downloads can be authenticated.
func (c *Config) HasCredentials() bool {
	return c.Portal.Username != "" && c.Portal.Token != ""
}

// Validate returns ErrInvalidLogLevel for unknown levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: debug, info, warn, error)", ErrInvalidLogLevel, string(l))
	}
}

// Level converts l for charmbracelet/log. Unknown levels map to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InvalidConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }
