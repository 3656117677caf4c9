// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Spanfile/Modtorio-sub000/internal/config"
	"github.com/Spanfile/Modtorio-sub000/internal/issue"
	"github.com/Spanfile/Modtorio-sub000/internal/metrics"
	"github.com/Spanfile/Modtorio-sub000/internal/mods"
	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/internal/store"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer; every command handler receives it and opens a session through it.
	App struct {
		Config      ConfigProvider
		newRegistry RegistryFactory
		stdout      io.Writer
		stderr      io.Writer

		flags globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Registry RegistryFactory
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// RegistryFactory builds the mod portal client for a loaded configuration.
	RegistryFactory func(cfg *config.Config, logger *log.Logger, m *metrics.Metrics) mods.Registry

	globalFlags struct {
		configPath string
		modsDir    string
		verbose    bool
	}

	// session holds everything a mods command works with. Close it when done.
	session struct {
		cfg      *config.Config
		logger   *log.Logger
		store    *store.Store
		host     store.HostID
		mods     *mods.Mods
		registry mods.Registry
		gather   prometheus.Gatherer
		metrics  *metrics.Metrics
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Registry == nil {
		deps.Registry = defaultRegistry
	}

	return &App{
		Config:      deps.Config,
		newRegistry: deps.Registry,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
	}, nil
}

func defaultRegistry(cfg *config.Config, logger *log.Logger, m *metrics.Metrics) mods.Registry {
	return portal.NewClient(
		portal.WithBaseURL(cfg.Portal.URL),
		portal.WithCredentials(cfg.Portal.Username, cfg.Portal.Token),
		portal.WithUserAgent("modtorio/"+Version),
		portal.WithLogger(logger),
		portal.WithMetrics(m),
	)
}

// loadConfig loads configuration and applies command-line overrides.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.Issue == 0 {
			ae.Issue = issue.ConfigLoadFailedId
		}
		return nil, err
	}
	if a.flags.modsDir != "" {
		cfg.ModsDir = a.flags.modsDir
	}
	return cfg, nil
}

func (a *App) newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "modtorio",
		ReportTimestamp: true,
	})
	logger.SetLevel(cfg.LogLevel.Level())
	if a.flags.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// openSession loads configuration, opens the store and builds the mods
// collection. A mods directory the store has records for is built from
// those records; any other is scanned from its archives.
func (a *App) openSession(ctx context.Context) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger := a.newLogger(cfg)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	modsDir, err := filepath.Abs(cfg.ModsDir)
	if err != nil {
		return nil, fmt.Errorf("resolving mods directory: %w", err)
	}

	st, err := openStore(ctx, cfg.StorePath, logger)
	if err != nil {
		return nil, err
	}

	host, known, err := st.EnsureHost(ctx, modsDir)
	if err != nil {
		_ = st.Close()
		return nil, storeError(cfg.StorePath, err)
	}

	registry := a.newRegistry(cfg, logger, m)
	opts := []mods.Option{
		mods.WithRegistry(registry),
		mods.WithStore(st),
		mods.WithLogger(logger),
		mods.WithMetrics(m),
		mods.WithConcurrency(cfg.Concurrency),
		mods.WithCacheExpiry(cfg.CacheExpiryDuration()),
	}
	if known {
		opts = append(opts, mods.WithHostID(host))
	}
	logger.Debug("building mods collection", "dir", modsDir, "cached", known)

	collection, err := mods.NewBuilder(modsDir, opts...).Build(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("loading mods: %w", err)
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		host:     host,
		mods:     collection,
		registry: registry,
		gather:   reg,
		metrics:  m,
	}, nil
}

func openStore(ctx context.Context, path string, logger *log.Logger) (*store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storeError(path, err)
		}
	}
	st, err := store.Open(ctx, store.Config{Path: path, EnableWAL: true, Logger: logger})
	if err != nil {
		return nil, storeError(path, err)
	}
	return st, nil
}

func storeError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("open the mod store").
		WithResource(path).
		WithSuggestion("Check that the directory of store_path is writable").
		WithSuggestion("Remove the file to rebuild the cache from the mods directory").
		WithIssue(issue.StoreUnavailableId).
		Wrap(err).
		BuildError()
}

// persist writes the collection's records to the store without refreshing
// registry metadata.
func (s *session) persist(ctx context.Context) error {
	return s.mods.UpdateStore(ctx, s.host, true)
}

// Close writes the metrics textfile when configured and closes the store.
func (s *session) Close() error {
	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path, s.gather); err != nil {
			s.logger.Warn("failed to write metrics", "path", path, "err", err)
		}
	}
	return s.store.Close()
}
