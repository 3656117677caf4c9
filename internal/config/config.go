// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"

	"github.com/Spanfile/Modtorio-sub000/internal/issue"
	"github.com/Spanfile/Modtorio-sub000/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "modtorio"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, as in MODTORIO_MODS_DIR.
	EnvPrefix = "MODTORIO"

	storeFileName = "modtorio.db"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the modtorio configuration directory: %APPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_CONFIG_HOME
// (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	return platformDir("APPDATA", "XDG_CONFIG_HOME", ".config")
}

// DataDir returns the directory holding the store: %LOCALAPPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_DATA_HOME
// (defaulting to ~/.local/share) elsewhere.
func DataDir() (string, error) {
	if dataDirOverride != "" {
		return dataDirOverride, nil
	}
	return platformDir("LOCALAPPDATA", "XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platformDir(windowsEnv, xdgEnv, xdgFallback string) (string, error) {
	var base string

	switch runtime.GOOS {
	case "windows":
		base = os.Getenv(windowsEnv)
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv(xdgEnv)
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, xdgFallback)
		}
	}

	return filepath.Join(base, AppName), nil
}

// DefaultStorePath is modtorio.db in DataDir, or in the working directory
// when DataDir cannot be determined.
func DefaultStorePath() string {
	dir, err := DataDir()
	if err != nil {
		return storeFileName
	}
	return filepath.Join(dir, storeFileName)
}

// DefaultConfigPath is config.cue in ConfigDir.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("portal.url", defaults.Portal.URL)
	v.SetDefault("portal.username", defaults.Portal.Username)
	v.SetDefault("portal.token", defaults.Portal.Token)
	v.SetDefault("mods_dir", defaults.ModsDir)
	v.SetDefault("store_path", defaults.StorePath)
	v.SetDefault("cache_expiry", defaults.CacheExpiry)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolveConfigFile(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Compare it with the output of 'modtorio config dump'").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = path

	if err := expandPaths(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(displaySource(path)).
			WithSuggestion("Fix the value in the config file or the matching " + EnvPrefix + "_ variable").
			Wrap(err).
			BuildError()
	}

	return &cfg, nil
}

// resolveConfigFile returns the file to read, or "" when none exists. An
// explicitly requested file must exist.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'modtorio config init' to create a default config file").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	name := ConfigFileName + "." + ConfigFileExt
	for _, candidate := range []string{filepath.Join(cfgDir, name), name} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// v. Fields stay optional, so the document is decoded into a map rather
// than a Config.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoded, err := cueutil.Decode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(decoded.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// expandPaths expands environment references such as $HOME in path values.
func expandPaths(cfg *Config) error {
	for _, p := range []struct {
		field string
		value *string
	}{
		{"mods_dir", &cfg.ModsDir},
		{"store_path", &cfg.StorePath},
		{"metrics.textfile", &cfg.Metrics.Textfile},
	} {
		expanded, err := shell.Expand(*p.value, nil)
		if err != nil {
			return &InvalidConfigError{Field: p.field, Err: fmt.Errorf("expanding %q: %w", *p.value, err)}
		}
		*p.value = expanded
	}
	return nil
}

func displaySource(path string) string {
	if path == "" {
		return "defaults and environment"
	}
	return path
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to path unless a
// file already exists there. It reports whether the file was created.
func CreateDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	if err := Save(DefaultConfig(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as CUE.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config.cue document. The portal token is
// written only when set.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modtorio configuration\n\n")

	sb.WriteString("portal: {\n")
	fmt.Fprintf(&sb, "\turl: %q\n", cfg.Portal.URL)
	if cfg.Portal.Username != "" {
		fmt.Fprintf(&sb, "\tusername: %q\n", cfg.Portal.Username)
	}
	if cfg.Portal.Token != "" {
		fmt.Fprintf(&sb, "\ttoken: %q\n", cfg.Portal.Token)
	}
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "mods_dir: %q\n", cfg.ModsDir)
	fmt.Fprintf(&sb, "store_path: %q\n", cfg.StorePath)
	fmt.Fprintf(&sb, "cache_expiry: %d\n", cfg.CacheExpiry)
	fmt.Fprintf(&sb, "concurrency: %d\n", cfg.Concurrency)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	if cfg.Metrics.Textfile != "" {
		sb.WriteString("\nmetrics: {\n")
		fmt.Fprintf(&sb, "\ttextfile: %q\n", cfg.Metrics.Textfile)
		sb.WriteString("}\n")
	}

	return sb.String()
}
