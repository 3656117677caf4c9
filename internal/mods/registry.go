// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"fmt"

	"github.com/Spanfile/Modtorio-sub000/internal/portal"
)

// EnsureRegistryInfo populates the mod's registry data, from the cache when
// the cached copy is younger than the cache expiry and from the registry
// otherwise. Fresh registry data is written back to the cache.
func (m *Mod) EnsureRegistryInfo(ctx context.Context) error {
	if m.opts.store != nil {
		cached, err := m.opts.store.GetRegistryCache(ctx, m.name)
		switch {
		case err != nil:
			m.logger.Warn("registry cache lookup failed, asking the registry", "err", err)
		case cached != nil && m.opts.clock.Since(cached.LastUpdated) < m.opts.cacheExpiry:
			m.logger.Debug("registry cache is fresh", "age", m.opts.clock.Since(cached.LastUpdated))
			m.mu.Lock()
			m.info.applyCached(cached)
			m.mu.Unlock()
			return nil
		}
	}

	if err := m.FetchRegistryInfo(ctx); err != nil {
		return err
	}

	if m.opts.store != nil {
		if err := m.UpdateCache(ctx); err != nil {
			m.logger.Warn("failed to refresh registry cache", "err", err)
		}
	}
	return nil
}

// FetchRegistryInfo populates the mod from the registry unconditionally.
func (m *Mod) FetchRegistryInfo(ctx context.Context) error {
	if m.opts.registry == nil {
		return ErrNoRegistry
	}

	m.logger.Debug("fetching registry info")
	meta, err := m.opts.registry.FetchMod(ctx, m.name)
	if err != nil {
		return fmt.Errorf("fetching registry info of %s: %w", m.name, err)
	}

	m.PopulateFromRegistry(meta)
	return nil
}

// PopulateFromRegistry applies registry metadata to the mod.
func (m *Mod) PopulateFromRegistry(meta *portal.Metadata) {
	now := m.opts.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.info.applyMetadata(meta, now)
}

// UpdateCache writes the mod's registry data to the store, fetching it
// first if the mod was never populated from the registry.
func (m *Mod) UpdateCache(ctx context.Context) error {
	if m.opts.store == nil {
		return ErrNoStore
	}

	m.mu.Lock()
	populated := !m.info.fetchedAt.IsZero()
	m.mu.Unlock()

	if !populated {
		if err := m.FetchRegistryInfo(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	cached := m.info.toCached()
	m.mu.Unlock()

	if err := m.opts.store.SetRegistryCache(ctx, m.name, cached); err != nil {
		return fmt.Errorf("updating registry cache of %s: %w", m.name, err)
	}
	return nil
}

// registryFresh reports whether registry data younger than the cache expiry
// has been applied.
func (m *Mod) registryFresh() bool {
	m.mu.Lock()
	fetchedAt := m.info.fetchedAt
	m.mu.Unlock()
	return !fetchedAt.IsZero() && m.opts.clock.Since(fetchedAt) < m.opts.cacheExpiry
}

// registryPopulated reports whether registry data has been applied.
func (m *Mod) registryPopulated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.info.fetchedAt.IsZero()
}
