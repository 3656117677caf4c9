// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Spanfile/Modtorio-sub000/internal/issue"
	"github.com/Spanfile/Modtorio-sub000/internal/testutil"
	"github.com/Spanfile/Modtorio-sub000/pkg/cueutil"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	testutil.MustWriteFile(t, path, []byte(content))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Portal.URL != DefaultPortalURL || cfg.ModsDir != DefaultModsDir {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheExpiryDuration() != time.Hour || cfg.Concurrency != 8 || cfg.LogLevel != LogLevelInfo {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if filepath.Base(cfg.StorePath) != "modtorio.db" {
		t.Errorf("StorePath = %q", cfg.StorePath)
	}
	if cfg.HasCredentials() {
		t.Error("defaults should carry no credentials")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if cfg.ModsDir != DefaultModsDir || cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
portal: {
	username: "engineer"
	token:    "abc123"
}
mods_dir:     "/srv/factorio/mods"
cache_expiry: 60
log_level:    "debug"
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if !cfg.HasCredentials() || cfg.Portal.Username != "engineer" {
		t.Errorf("Portal = %+v", cfg.Portal)
	}
	if cfg.Portal.URL != DefaultPortalURL {
		t.Errorf("unset portal.url = %q, want the default", cfg.Portal.URL)
	}
	if cfg.ModsDir != "/srv/factorio/mods" || cfg.CacheExpiryDuration() != time.Minute || cfg.LogLevel.Level() != log.DebugLevel {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("unset concurrency = %d, want the default", cfg.Concurrency)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), `concurrency: 2`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path, ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Concurrency != 2 || cfg.Source != path {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
	}
	if ae.Resource != missing || !ae.HasSuggestions() {
		t.Errorf("ActionableError = %+v", ae)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"unknown log level", `log_level: "loud"`, "log_level"},
		{"concurrency out of range", `concurrency: 0`, "concurrency"},
		{"portal url scheme", `portal: url: "ftp://mods"`, "portal.url"},
		{"unknown key", `mod_dir: "./mods"`, "mod_dir"},
		{"wrong type", `cache_expiry: "1h"`, "cache_expiry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if !errors.Is(err, cueutil.ErrInvalid) {
				t.Fatalf("Load() error = %v, want a schema error", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	writeConfig(t, dir, `concurrency: 2`)

	t.Setenv("MODTORIO_TEST_ROOT", root)
	t.Setenv("MODTORIO_MODS_DIR", "$MODTORIO_TEST_ROOT/mods")
	t.Setenv("MODTORIO_PORTAL_TOKEN", "from-env")
	t.Setenv("MODTORIO_CONCURRENCY", "12")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ModsDir != filepath.Join(root, "mods") {
		t.Errorf("ModsDir = %q, want the expanded environment value", cfg.ModsDir)
	}
	if cfg.Portal.Token != "from-env" {
		t.Errorf("Portal.Token = %q", cfg.Portal.Token)
	}
	if cfg.Concurrency != 12 {
		t.Errorf("Concurrency = %d, want the environment to win over the file", cfg.Concurrency)
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("MODTORIO_LOG_LEVEL", "chatty")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidLogLevel) || !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidLogLevel", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty mods dir", func(c *Config) { c.ModsDir = "" }, "mods_dir"},
		{"empty store path", func(c *Config) { c.StorePath = "" }, "store_path"},
		{"negative expiry", func(c *Config) { c.CacheExpiry = -1 }, "cache_expiry"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			var invalid *InvalidConfigError
			if !errors.As(err, &invalid) || invalid.Field != tt.field || !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestLogLevel_Level(t *testing.T) {
	t.Parallel()

	tests := map[LogLevel]log.Level{
		LogLevelDebug: log.DebugLevel,
		LogLevelInfo:  log.InfoLevel,
		LogLevelWarn:  log.WarnLevel,
		LogLevelError: log.ErrorLevel,
		"bogus":       log.InfoLevel,
	}
	for in, want := range tests {
		if got := in.Level(); got != want {
			t.Errorf("LogLevel(%q).Level() = %v, want %v", in, got, want)
		}
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Portal.Username = "engineer"
	cfg.Portal.Token = "abc123"
	cfg.ModsDir = "/srv/mods"
	cfg.StorePath = "/srv/modtorio.db"
	cfg.Concurrency = 4
	cfg.LogLevel = LogLevelWarn
	cfg.Metrics.Textfile = "/var/lib/node_exporter/modtorio.prom"

	path := filepath.Join(t.TempDir(), "nested", "config.cue")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() of generated config error: %v\n%s", err, GenerateCUE(cfg))
	}
	loaded.Source = ""
	if *loaded != *cfg {
		t.Errorf("round trip = %+v, want %+v", loaded, cfg)
	}
}

func TestGenerateCUE_OmitsEmptySecrets(t *testing.T) {
	t.Parallel()

	out := GenerateCUE(DefaultConfig())
	if strings.Contains(out, "token") || strings.Contains(out, "metrics") {
		t.Errorf("GenerateCUE() wrote unset fields:\n%s", out)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modtorio", "config.cue")

	created, err := CreateDefaultConfig(path)
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %v, %v", created, err)
	}

	testutil.MustWriteFile(t, path, []byte(`concurrency: 3`))
	created, err = CreateDefaultConfig(path)
	if err != nil || created {
		t.Fatalf("second CreateDefaultConfig() = %v, %v", created, err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != `concurrency: 3` {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

func TestDirOverrides(t *testing.T) {
	cfgDir, dataDir := t.TempDir(), t.TempDir()
	SetConfigDirOverride(cfgDir)
	SetDataDirOverride(dataDir)
	t.Cleanup(Reset)

	if got, err := ConfigDir(); err != nil || got != cfgDir {
		t.Errorf("ConfigDir() = %q, %v", got, err)
	}
	if got, err := DefaultConfigPath(); err != nil || got != filepath.Join(cfgDir, "config.cue") {
		t.Errorf("DefaultConfigPath() = %q, %v", got, err)
	}
	if got := DefaultStorePath(); got != filepath.Join(dataDir, "modtorio.db") {
		t.Errorf("DefaultStorePath() = %q", got)
	}
}

func TestPlatformDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG lookup applies to other platforms")
	}

	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", base)

	got, err := DataDir()
	if err != nil || got != filepath.Join(base, "modtorio") {
		t.Errorf("DataDir() = %q, %v", got, err)
	}
}

func TestLoad_WorkingDirectoryFallback(t *testing.T) {
	// Not parallel: changes the working directory.
	wd := t.TempDir()
	writeConfig(t, wd, `concurrency: 3`)
	t.Cleanup(testutil.MustChdir(t, wd))

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3 from ./config.cue", cfg.Concurrency)
	}
	if cfg.Source != ConfigFileName+"."+ConfigFileExt {
		t.Errorf("Source = %q", cfg.Source)
	}
}

func TestPlatformDir_HomeFallback(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG lookup applies to other platforms")
	}

	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))
	t.Setenv("XDG_DATA_HOME", "")

	got, err := DataDir()
	if err != nil || got != filepath.Join(home, ".local", "share", "modtorio") {
		t.Errorf("DataDir() = %q, %v", got, err)
	}

	cfgDir, err := ConfigDir()
	if err != nil || cfgDir != filepath.Join(home, ".config", "modtorio") {
		t.Errorf("ConfigDir() = %q, %v", cfgDir, err)
	}
}
