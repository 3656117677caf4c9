// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
)

// UpdateBatcher refreshes the registry data of many mods with one batched
// request and reports which of them have newer releases.
type UpdateBatcher struct {
	registry Registry
	logger   *log.Logger

	mu       sync.Mutex
	mods     map[string]*Mod
	consumed bool
}

// NewUpdateBatcher returns an empty batcher using registry.
func NewUpdateBatcher(registry Registry, opts ...Option) *UpdateBatcher {
	o := newOptions(opts)
	return &UpdateBatcher{
		registry: registry,
		logger:   o.logger.WithPrefix("batcher"),
		mods:     make(map[string]*Mod),
	}
}

// Register adds m. A later registration under the same name replaces an
// earlier one.
func (b *UpdateBatcher) Register(m *Mod) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mods[m.Name()] = m
}

// Refresh fetches the registry data of every registered mod in one batched
// request and applies it. A response for a mod that was not registered
// fails the refresh before anything is applied.
func (b *UpdateBatcher) Refresh(ctx context.Context) error {
	b.mu.Lock()
	if b.consumed {
		b.mu.Unlock()
		return ErrBatcherConsumed
	}
	names := slices.Sorted(maps.Keys(b.mods))
	b.mu.Unlock()

	if len(names) == 0 {
		return nil
	}
	if b.registry == nil {
		return ErrNoRegistry
	}

	b.logger.Debug("refreshing", "mods", len(names))
	metas, err := b.registry.FetchBatch(ctx, names)
	if err != nil {
		return fmt.Errorf("refreshing registry info: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, meta := range metas {
		if _, ok := b.mods[meta.Name]; !ok {
			return &UnknownModError{Name: meta.Name}
		}
	}
	for i := range metas {
		b.mods[metas[i].Name].PopulateFromRegistry(&metas[i])
	}
	return nil
}

// UpgradeCandidates returns the sorted names of registered mods whose latest
// release is newer than the installed version. It consumes the batcher.
func (b *UpdateBatcher) UpgradeCandidates() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumed {
		return nil, ErrBatcherConsumed
	}
	b.consumed = true

	var candidates []string
	for _, name := range slices.Sorted(maps.Keys(b.mods)) {
		m := b.mods[name]

		current, err := m.OwnVersion()
		if err != nil {
			b.logger.Debug("skipping mod without installed version", "mod", name)
			continue
		}
		latest, err := m.LatestRelease()
		if err != nil {
			b.logger.Debug("skipping mod without releases", "mod", name)
			continue
		}

		if latest.Version.Compare(current) > 0 {
			candidates = append(candidates, name)
		}
	}

	b.mods = nil
	return candidates, nil
}
