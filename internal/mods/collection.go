// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/Spanfile/Modtorio-sub000/internal/store"
	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

type (
	// Mods is the collection of mods installed in a mods directory, one Mod
	// per name. Build it with a Builder. It is safe for concurrent use.
	Mods struct {
		dir    string
		opts   *options
		logger *log.Logger

		mu   sync.RWMutex
		mods map[string]*Mod

		listMu sync.Mutex // serializes mod-list.json read-modify-write
	}

	// Update describes a newer release of an installed mod.
	Update struct {
		Name       string
		Title      string
		Current    version.Version
		Latest     version.Version
		ReleasedOn time.Time
	}
)

func newMods(dir string, o *options) *Mods {
	return &Mods{
		dir:    dir,
		opts:   o,
		logger: o.logger.WithPrefix("mods"),
		mods:   make(map[string]*Mod),
	}
}

// Dir returns the mods directory.
func (c *Mods) Dir() string { return c.dir }

// Count returns the number of mods.
func (c *Mods) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mods)
}

// Names returns the mod names in sorted order.
func (c *Mods) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.mods))
}

// Get returns the mod called name.
func (c *Mods) Get(name string) (*Mod, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.mods[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoSuchMod)
	}
	return m, nil
}

// snapshot returns a copy of the name to mod map.
func (c *Mods) snapshot() map[string]*Mod {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.mods)
}

// merge inserts m, keeping whichever of m and an existing mod of the same
// name has the strictly higher version. On a tie the existing mod stays.
func (c *Mods) merge(m *Mod) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := m.Name()
	existing, ok := c.mods[name]
	if !ok {
		c.mods[name] = m
		return
	}

	c.opts.metrics.DuplicateDropped()

	newVer, newErr := m.OwnVersion()
	oldVer, oldErr := existing.OwnVersion()
	if newErr == nil && (oldErr != nil || newVer.Compare(oldVer) > 0) {
		c.logger.Warn("dropping duplicate mod", "mod", name, "dropped", existing.Display(), "kept", m.Display())
		c.mods[name] = m
		return
	}
	c.logger.Warn("dropping duplicate mod", "mod", name, "dropped", m.Display(), "kept", existing.Display())
}

// Add installs name at version ver, or at the latest release when ver is
// nil. An installed mod is updated in place and its replaced archive
// deleted; a new mod is looked up in the registry first.
func (c *Mods) Add(ctx context.Context, name string, ver *version.Version) (DownloadResult, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return DownloadResult{}, fmt.Errorf("creating mods directory: %w", err)
	}

	c.mu.RLock()
	m, installed := c.mods[name]
	c.mu.RUnlock()

	if !installed {
		var err error
		if m, err = fromRegistry(ctx, name, c.opts); err != nil {
			return DownloadResult{}, err
		}
	} else if !m.registryFresh() {
		if err := m.EnsureRegistryInfo(ctx); err != nil {
			return DownloadResult{}, err
		}
	}

	res, err := m.Download(ctx, ver, c.dir)
	if err != nil {
		return DownloadResult{}, err
	}

	if res.Outcome == DownloadReplaced && filepath.Base(res.OldArchive) != filepath.Base(res.Path) {
		if err := os.Remove(res.OldArchive); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to remove replaced archive", "mod", name, "archive", res.OldArchive, "err", err)
		} else {
			c.logger.Debug("removed replaced archive", "mod", name, "archive", filepath.Base(res.OldArchive))
		}
	}

	if !installed {
		c.merge(m)
	}
	return res, nil
}

// Remove deletes the archive of name and drops it from the collection.
func (c *Mods) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.mods[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoSuchMod)
	}

	if path, err := m.ArchivePath(); err == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing archive of %s: %w", name, err)
		}
	}

	delete(c.mods, name)
	c.logger.Info("removed mod", "mod", name)
	return nil
}

// Enabled reports whether name is enabled in mod-list.json. Mods the list
// does not mention are enabled, as the game treats them.
func (c *Mods) Enabled(name string) (bool, error) {
	if err := c.known(name); err != nil {
		return false, err
	}

	c.listMu.Lock()
	defer c.listMu.Unlock()

	list, err := LoadModList(c.dir)
	if err != nil {
		return false, err
	}
	enabled, listed := list.Enabled(name)
	return enabled || !listed, nil
}

// SetEnabled enables or disables name in mod-list.json.
func (c *Mods) SetEnabled(name string, enabled bool) error {
	if err := c.known(name); err != nil {
		return err
	}

	c.listMu.Lock()
	defer c.listMu.Unlock()

	list, err := LoadModList(c.dir)
	if err != nil {
		return err
	}
	changed, err := list.SetEnabled(name, enabled)
	if err != nil || !changed {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating mods directory: %w", err)
	}
	return list.Save(c.dir)
}

// EnabledStatus returns the enabled flag of base and every mod.
func (c *Mods) EnabledStatus() (map[string]bool, error) {
	c.listMu.Lock()
	list, err := LoadModList(c.dir)
	c.listMu.Unlock()
	if err != nil {
		return nil, err
	}

	status := map[string]bool{dependency.BaseMod: true}
	for _, name := range c.Names() {
		enabled, listed := list.Enabled(name)
		status[name] = enabled || !listed
	}
	return status, nil
}

func (c *Mods) known(name string) error {
	if name == dependency.BaseMod {
		return nil
	}
	_, err := c.Get(name)
	return err
}

// CheckDependencies runs CheckDependencies over the collection.
func (c *Mods) CheckDependencies() ([]string, error) {
	return CheckDependencies(c.snapshot())
}

// EnsureDependencies installs the latest release of every missing
// dependency and returns the names installed. Failed installs are logged
// and reported together in the returned error. Only one level is resolved;
// call again to cover the new mods' dependencies.
func (c *Mods) EnsureDependencies(ctx context.Context) ([]string, error) {
	missing, err := c.CheckDependencies()
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return nil, nil
	}

	c.logger.Info("installing missing dependencies", "mods", missing)
	return c.addAll(ctx, missing)
}

// addAll installs the latest release of each name concurrently.
func (c *Mods) addAll(ctx context.Context, names []string) ([]string, error) {
	var (
		mu        sync.Mutex
		installed []string
		failures  []error
	)

	var g errgroup.Group
	g.SetLimit(c.opts.concurrency)
	for _, name := range names {
		g.Go(func() error {
			_, err := c.Add(ctx, name, nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Error("failed to install mod", "mod", name, "err", err)
				failures = append(failures, fmt.Errorf("%s: %w", name, err))
				return nil
			}
			installed = append(installed, name)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	slices.Sort(installed)
	return installed, errors.Join(failures...)
}

// CheckUpdates refreshes each mod's registry data through the cache and
// returns the mods with newer releases, sorted by name. Mods whose refresh
// fails are logged and skipped.
func (c *Mods) CheckUpdates(ctx context.Context) ([]Update, error) {
	var (
		mu      sync.Mutex
		updates []Update
	)

	var g errgroup.Group
	g.SetLimit(c.opts.concurrency)
	for _, m := range c.snapshot() {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := m.EnsureRegistryInfo(ctx); err != nil {
				c.logger.Error("failed to refresh registry info", "mod", m.Name(), "err", err)
				return nil
			}

			u, ok := pendingUpdate(m)
			if ok {
				mu.Lock()
				updates = append(updates, u)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	slices.SortFunc(updates, func(a, b Update) int { return cmp.Compare(a.Name, b.Name) })
	return updates, ctx.Err()
}

func pendingUpdate(m *Mod) (Update, bool) {
	current, err := m.OwnVersion()
	if err != nil {
		return Update{}, false
	}
	latest, err := m.LatestRelease()
	if err != nil || latest.Version.Compare(current) <= 0 {
		return Update{}, false
	}
	return Update{
		Name:       m.Name(),
		Title:      m.Title(),
		Current:    current,
		Latest:     latest.Version,
		ReleasedOn: latest.ReleasedAt,
	}, true
}

// Update refreshes every mod with one batched registry request and installs
// the latest release of each mod that has a newer one. Mods that fail to
// update are logged and skipped; the applied updates are returned.
func (c *Mods) Update(ctx context.Context) ([]Update, error) {
	batcher := NewUpdateBatcher(c.opts.registry, WithLogger(c.opts.logger))
	snapshot := c.snapshot()
	for _, m := range snapshot {
		batcher.Register(m)
	}

	if err := batcher.Refresh(ctx); err != nil {
		return nil, err
	}
	candidates, err := batcher.UpgradeCandidates()
	if err != nil {
		return nil, err
	}

	pending := make(map[string]Update, len(candidates))
	for _, name := range candidates {
		if u, ok := pendingUpdate(snapshot[name]); ok {
			pending[name] = u
		}
	}

	installed, err := c.addAll(ctx, candidates)
	if err != nil {
		c.logger.Warn("some updates failed", "err", err)
	}

	applied := make([]Update, 0, len(installed))
	for _, name := range installed {
		applied = append(applied, pending[name])
	}
	return applied, ctx.Err()
}

// UpdateStore persists the collection for host. Unless skipInfoUpdate is
// set, registry data is refreshed in one batch first. Every mod gets its
// registry cache written, fetching registry data for mods that have neither
// registry data nor a cache row. The host's records are replaced with one
// per mod that has an archive and a registry cache row, since a record
// without one cannot be loaded back.
func (c *Mods) UpdateStore(ctx context.Context, host store.HostID, skipInfoUpdate bool) error {
	if c.opts.store == nil {
		return ErrNoStore
	}

	snapshot := c.snapshot()

	if !skipInfoUpdate {
		batcher := NewUpdateBatcher(c.opts.registry, WithLogger(c.opts.logger))
		for _, m := range snapshot {
			batcher.Register(m)
		}
		if err := batcher.Refresh(ctx); err != nil {
			return err
		}
	}

	var (
		g        errgroup.Group
		mu       sync.Mutex
		uncached = make(map[string]bool)
	)
	g.SetLimit(c.opts.concurrency)
	for _, m := range snapshot {
		g.Go(func() error {
			if m.registryPopulated() {
				if err := m.UpdateCache(ctx); err != nil {
					c.logger.Error("failed to update registry cache", "mod", m.Name(), "err", err)
				}
				return nil
			}

			if cached, err := c.opts.store.GetRegistryCache(ctx, m.Name()); err == nil && cached != nil {
				return nil
			}
			if err := m.UpdateCache(ctx); err != nil {
				c.logger.Warn("not caching mod without registry data", "mod", m.Name(), "err", err)
				mu.Lock()
				uncached[m.Name()] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	records := make([]store.Record, 0, len(snapshot))
	for _, name := range slices.Sorted(maps.Keys(snapshot)) {
		if uncached[name] {
			continue
		}
		rec, err := snapshot[name].record()
		if err != nil {
			c.logger.Error("not caching mod", "mod", name, "err", err)
			continue
		}
		records = append(records, rec)
	}

	if err := c.opts.store.ReplaceCachedMods(ctx, host, records); err != nil {
		return fmt.Errorf("storing cached mods: %w", err)
	}
	c.logger.Debug("store updated", "records", len(records))
	return nil
}
