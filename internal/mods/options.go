// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Spanfile/Modtorio-sub000/internal/metrics"
	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/internal/store"
)

const (
	// DefaultConcurrency bounds concurrent archive loads and downloads.
	DefaultConcurrency = 8

	// DefaultCacheExpiry is how long cached registry metadata stays fresh.
	DefaultCacheExpiry = time.Hour
)

type (
	// Registry is the mod portal client.
	Registry interface {
		FetchMod(ctx context.Context, name string) (*portal.Metadata, error)
		FetchBatch(ctx context.Context, names []string) ([]portal.Metadata, error)
		Download(ctx context.Context, name, locator, fileName, destDir string) (string, int64, error)
	}

	// Store persists cached records and registry metadata.
	Store interface {
		GetCachedMods(ctx context.Context, host store.HostID) ([]store.Record, error)
		ReplaceCachedMods(ctx context.Context, host store.HostID, records []store.Record) error
		GetRegistryCache(ctx context.Context, name string) (*store.CachedMetadata, error)
		SetRegistryCache(ctx context.Context, name string, meta store.CachedMetadata) error
	}

	// Clock tells the time. Tests substitute a fake.
	Clock interface {
		Now() time.Time
		Since(t time.Time) time.Duration
	}

	// Option configures mods, builders, collections and batchers.
	Option func(*options)

	options struct {
		registry    Registry
		store       Store
		logger      *log.Logger
		metrics     *metrics.Metrics
		clock       Clock
		cacheExpiry time.Duration
		concurrency int
		hostID      store.HostID
		hasHost     bool
	}

	realClock struct{}
)

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }

// WithRegistry sets the mod portal client.
func WithRegistry(r Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithStore sets the persistent store.
func WithStore(s Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records loads, failures, duplicates and downloads in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCacheExpiry sets how long cached registry metadata stays fresh.
func WithCacheExpiry(d time.Duration) Option {
	return func(o *options) { o.cacheExpiry = d }
}

// WithConcurrency bounds concurrent per-mod work. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithHostID makes a Builder start from the cached records of host.
func WithHostID(id store.HostID) Option {
	return func(o *options) {
		o.hostID = id
		o.hasHost = true
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      log.New(io.Discard),
		clock:       realClock{},
		cacheExpiry: DefaultCacheExpiry,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
