// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/internal/store"
	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

type (
	// Mod is everything known about one mod. Its name is fixed at
	// construction; every other field is guarded by a single mutex and only
	// changes through the Mod's own methods. A Mod is safe for concurrent use.
	Mod struct {
		name   string
		opts   *options
		logger *log.Logger

		mu       sync.Mutex
		info     info
		archive  string // full path, empty when the mod has no archive
		checksum string // BLAKE2b of archive, computed lazily
	}

	info struct {
		author      string
		contact     string
		homepage    string
		title       string
		summary     string
		description string
		changelog   string

		versions     *versions
		dependencies []dependency.Dependency

		releases []portal.Release
		// fetchedAt is when the registry data was fetched; zero until the
		// registry (or the cache) populated the mod.
		fetchedAt time.Time
	}

	versions struct {
		own      version.Version
		platform version.Version
	}
)

func newMod(name string, o *options) *Mod {
	return &Mod{
		name:   name,
		opts:   o,
		logger: o.logger.With("mod", name),
	}
}

// FromArchive loads a mod from its archive's info.json.
func FromArchive(ctx context.Context, path string, opts ...Option) (*Mod, error) {
	return fromArchive(ctx, path, newOptions(opts))
}

func fromArchive(ctx context.Context, path string, o *options) (*Mod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	man, err := readManifest(path)
	if err != nil {
		return nil, err
	}

	m := newMod(man.Name, o)
	m.info.applyManifest(man)
	m.archive = path
	return m, nil
}

// FromRegistry creates a mod from its registry metadata. The result has
// releases but no versions, dependencies or archive until it is downloaded.
func FromRegistry(ctx context.Context, name string, opts ...Option) (*Mod, error) {
	return fromRegistry(ctx, name, newOptions(opts))
}

func fromRegistry(ctx context.Context, name string, o *options) (*Mod, error) {
	m := newMod(name, o)
	if err := m.FetchRegistryInfo(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// FromCacheRecord rebuilds a mod from a cached record and the registry
// metadata cached for it, then verifies that the recorded archive still
// exists in dir with the recorded checksum.
func FromCacheRecord(ctx context.Context, rec store.Record, dir string, opts ...Option) (*Mod, error) {
	return fromCacheRecord(ctx, rec, dir, newOptions(opts))
}

func fromCacheRecord(ctx context.Context, rec store.Record, dir string, o *options) (*Mod, error) {
	if o.store == nil {
		return nil, ErrNoStore
	}

	cached, err := o.store.GetRegistryCache(ctx, rec.Name)
	if err != nil {
		return nil, fmt.Errorf("reading registry cache of %s: %w", rec.Name, err)
	}
	if cached == nil {
		return nil, fmt.Errorf("%s: %w", rec.Name, ErrModNotInCache)
	}

	path := filepath.Join(dir, rec.Archive)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingArchiveError{Path: path}
		}
		return nil, fmt.Errorf("checking archive of %s: %w", rec.Name, err)
	}

	sum, err := ArchiveChecksum(path)
	if err != nil {
		return nil, err
	}
	if sum != rec.Checksum {
		return nil, &ChecksumError{Archive: path, Found: sum, Expected: rec.Checksum}
	}

	m := newMod(rec.Name, o)
	m.info.applyCached(cached)
	m.archive = path
	m.checksum = sum

	meta := portal.Metadata{Releases: cached.Releases}
	if rel, ok := meta.Release(rec.Version); ok {
		m.info.versions = &versions{own: rec.Version, platform: rel.FactorioVersion}
		m.info.dependencies = rel.Dependencies
		return m, nil
	}

	// The cached registry data predates this release; fall back to the
	// archive itself.
	man, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	m.info.versions = &versions{own: rec.Version, platform: man.FactorioVersion}
	m.info.dependencies = man.Dependencies
	return m, nil
}

// Name returns the mod's name.
func (m *Mod) Name() string { return m.name }

// Title returns the mod's title.
func (m *Mod) Title() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.title
}

// Author returns the mod's author.
func (m *Mod) Author() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.author
}

// Summary returns the registry summary, which may be empty.
func (m *Mod) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.summary
}

// Description returns the mod's description.
func (m *Mod) Description() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.description
}

// Changelog returns the registry changelog, which may be empty.
func (m *Mod) Changelog() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.changelog
}

// Homepage returns the mod's homepage, which may be empty.
func (m *Mod) Homepage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.homepage
}

// Contact returns the author's contact, which may be empty.
func (m *Mod) Contact() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.contact
}

// OwnVersion returns the installed version of the mod.
func (m *Mod) OwnVersion() (version.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.info.versions == nil {
		return version.Version{}, ErrVersionsUnknown
	}
	return m.info.versions.own, nil
}

// PlatformVersion returns the Factorio version the installed release targets.
func (m *Mod) PlatformVersion() (version.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.info.versions == nil {
		return version.Version{}, ErrVersionsUnknown
	}
	return m.info.versions.platform, nil
}

// Dependencies returns the dependencies of the installed release.
func (m *Mod) Dependencies() ([]dependency.Dependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.info.versions == nil {
		return nil, ErrVersionsUnknown
	}
	return append([]dependency.Dependency(nil), m.info.dependencies...), nil
}

// Releases returns the releases the registry reported.
func (m *Mod) Releases() ([]portal.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.info.releases) == 0 {
		return nil, ErrNoReleases
	}
	return append([]portal.Release(nil), m.info.releases...), nil
}

// LatestRelease returns the release with the highest version.
func (m *Mod) LatestRelease() (portal.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.latestRelease()
}

// Release returns the release with exactly version v.
func (m *Mod) Release(v version.Version) (portal.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.release(m.name, v)
}

// Archive returns the archive's file name within the mods directory.
func (m *Mod) Archive() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.archive == "" {
		return "", ErrMissingArchivePath
	}
	return filepath.Base(m.archive), nil
}

// ArchivePath returns the archive's full path.
func (m *Mod) ArchivePath() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.archive == "" {
		return "", ErrMissingArchivePath
	}
	return m.archive, nil
}

// ArchiveChecksum returns the archive's BLAKE2b-512 digest, computing and
// remembering it on first use.
func (m *Mod) ArchiveChecksum() (string, error) {
	m.mu.Lock()
	path, sum := m.archive, m.checksum
	m.mu.Unlock()

	if path == "" {
		return "", ErrMissingArchivePath
	}
	if sum != "" {
		return sum, nil
	}

	sum, err := ArchiveChecksum(path)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// A download may have swapped the archive meanwhile.
	if m.archive == path {
		m.checksum = sum
	}
	return sum, nil
}

// Display renders the mod as 'Title' ('name') ver. 1.2.3.
func (m *Mod) Display() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ver := "unknown"
	if m.info.versions != nil {
		ver = m.info.versions.own.String()
	}
	return fmt.Sprintf("'%s' ('%s') ver. %s", m.info.title, m.name, ver)
}

func (m *Mod) String() string { return m.Display() }

// record returns the cache record of the mod.
func (m *Mod) record() (store.Record, error) {
	ver, err := m.OwnVersion()
	if err != nil {
		return store.Record{}, err
	}
	archive, err := m.Archive()
	if err != nil {
		return store.Record{}, err
	}
	sum, err := m.ArchiveChecksum()
	if err != nil {
		return store.Record{}, err
	}
	return store.Record{Name: m.name, Version: ver, Archive: archive, Checksum: sum}, nil
}

func (i *info) applyManifest(man *manifest) {
	i.author = man.Author
	i.contact = man.Contact
	i.homepage = man.Homepage
	i.title = man.Title
	i.description = man.Description
	i.versions = &versions{own: man.Version, platform: man.FactorioVersion}
	i.dependencies = man.Dependencies
}

func (i *info) applyMetadata(meta *portal.Metadata, fetchedAt time.Time) {
	if i.author == "" {
		i.author = meta.Owner
	}
	if meta.Homepage != "" {
		i.homepage = meta.Homepage
	}
	i.title = meta.Title
	i.summary = meta.Summary
	if meta.Description != "" {
		i.description = meta.Description
	}
	i.changelog = meta.Changelog
	i.releases = meta.Releases
	i.fetchedAt = fetchedAt
}

func (i *info) applyCached(c *store.CachedMetadata) {
	i.author = c.Author
	i.contact = c.Contact
	i.homepage = c.Homepage
	i.title = c.Title
	i.summary = c.Summary
	i.description = c.Description
	i.changelog = c.Changelog
	i.releases = c.Releases
	i.fetchedAt = c.LastUpdated
}

func (i *info) toCached() store.CachedMetadata {
	return store.CachedMetadata{
		Author:      i.author,
		Contact:     i.contact,
		Homepage:    i.homepage,
		Title:       i.title,
		Summary:     i.summary,
		Description: i.description,
		Changelog:   i.changelog,
		LastUpdated: i.fetchedAt,
		Releases:    append([]portal.Release(nil), i.releases...),
	}
}

func (i *info) latestRelease() (portal.Release, error) {
	meta := portal.Metadata{Releases: i.releases}
	rel, ok := meta.LatestRelease()
	if !ok {
		return portal.Release{}, ErrNoReleases
	}
	return rel, nil
}

func (i *info) release(name string, v version.Version) (portal.Release, error) {
	if len(i.releases) == 0 {
		return portal.Release{}, ErrNoReleases
	}
	meta := portal.Metadata{Releases: i.releases}
	rel, ok := meta.Release(v)
	if !ok {
		return portal.Release{}, &NoSuchReleaseError{Name: name, Version: v}
	}
	return rel, nil
}
