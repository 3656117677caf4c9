// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Spanfile/Modtorio-sub000/internal/metrics"
	"github.com/Spanfile/Modtorio-sub000/internal/store"
)

const archiveExt = ".zip"

// Builder builds the Mods collection of a mods directory.
//
// With WithHostID the build starts from the host's cached records: each is
// verified against its archive and failures are skipped. Archives no
// surviving record accounts for are then loaded from disk. Without a host
// every archive is loaded from disk. Loads run concurrently; merging into the
// collection happens on a single goroutine and keeps the highest version of
// each mod, so the result does not depend on completion order.
type Builder struct {
	dir  string
	opts *options
}

// NewBuilder returns a Builder for the mods directory dir.
func NewBuilder(dir string, opts ...Option) *Builder {
	return &Builder{dir: dir, opts: newOptions(opts)}
}

// Build builds the collection. Mods that fail to load are logged and left
// out. If ctx is canceled, mods loaded so far are still returned.
func (b *Builder) Build(ctx context.Context) (*Mods, error) {
	logger := b.opts.logger.WithPrefix("builder")
	c := newMods(b.dir, b.opts)
	claimed := make(map[string]string) // archive -> mod name

	if b.opts.hasHost {
		if b.opts.store == nil {
			return nil, ErrNoStore
		}

		records, err := b.opts.store.GetCachedMods(ctx, b.opts.hostID)
		if err != nil {
			return nil, fmt.Errorf("reading cached mods: %w", err)
		}
		logger.Debug("loading cached mods", "count", len(records))

		loadConcurrently(ctx, b.opts, records, metrics.SourceCache,
			func(r store.Record) string { return r.Archive },
			func(ctx context.Context, r store.Record) (*Mod, error) {
				return fromCacheRecord(ctx, r, b.dir, b.opts)
			},
			func(m *Mod) {
				archive, _ := m.Archive()
				if owner, ok := claimed[archive]; ok {
					logger.Error("skipping cached record", "mod", m.Name(), "archive", archive,
						"err", fmt.Errorf("%w by %s", ErrDuplicateArchive, owner))
					b.opts.metrics.ModLoadFailed(metrics.SourceCache)
					return
				}
				claimed[archive] = m.Name()
				c.merge(m)
			})
	}

	archives, err := listArchives(b.dir)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, archive := range archives {
		if _, ok := claimed[archive]; !ok {
			pending = append(pending, archive)
		}
	}
	logger.Debug("loading archives", "count", len(pending), "cached", len(claimed))

	loadConcurrently(ctx, b.opts, pending, metrics.SourceArchive,
		func(archive string) string { return archive },
		func(ctx context.Context, archive string) (*Mod, error) {
			return fromArchive(ctx, filepath.Join(b.dir, archive), b.opts)
		},
		c.merge)

	if err := ctx.Err(); err != nil {
		logger.Warn("build interrupted, collection is partial", "loaded", c.Count(), "err", err)
	}

	b.opts.metrics.CollectionSize(c.Count())
	logger.Info("mods loaded", "count", c.Count())
	return c, nil
}

// loadConcurrently runs load for every item on at most o.concurrency
// goroutines and hands each loaded mod to merge, one at a time, on the
// calling goroutine. Failed items are logged and counted.
func loadConcurrently[T any](
	ctx context.Context,
	o *options,
	items []T,
	source string,
	describe func(T) string,
	load func(context.Context, T) (*Mod, error),
	merge func(*Mod),
) {
	if len(items) == 0 {
		return
	}

	loaded := make(chan *Mod)

	go func() {
		var g errgroup.Group
		g.SetLimit(o.concurrency)

		for _, item := range items {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}

				m, err := load(ctx, item)
				if err != nil {
					o.logger.Error("failed to load mod", "source", source, "archive", describe(item), "err", err)
					o.metrics.ModLoadFailed(source)
					return nil
				}

				o.metrics.ModLoaded(source)
				loaded <- m
				return nil
			})
		}

		_ = g.Wait() // workers never return errors
		close(loaded)
	}()

	for m := range loaded {
		merge(m)
	}
}

// listArchives returns the names of the *.zip files directly in dir. A
// missing directory holds no archives.
func listArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing mods directory: %w", err)
	}

	var archives []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), archiveExt) {
			archives = append(archives, e.Name())
		}
	}
	return archives, nil
}
