// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// CachedMetadata is the registry information cached for one mod, along with
// when it was last refreshed.
type CachedMetadata struct {
	Author      string
	Contact     string
	Homepage    string
	Title       string
	Summary     string
	Description string
	Changelog   string
	LastUpdated time.Time
	Releases    []portal.Release
}

// GetRegistryCache returns the cached metadata of name, or nil if nothing is
// cached.
func (s *Store) GetRegistryCache(ctx context.Context, name string) (*CachedMetadata, error) {
	var meta *CachedMetadata

	err := s.read(func() error {
		var (
			m                                    CachedMetadata
			contact, homepage, summary, changelog sql.NullString
			lastUpdated                          string
		)
		err := s.db.QueryRowContext(ctx, `
			SELECT author, contact, homepage, title, summary, description, changelog, last_updated
			FROM registry_mods WHERE name = ?`, name).
			Scan(&m.Author, &contact, &homepage, &m.Title, &summary, &m.Description, &changelog, &lastUpdated)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query registry cache of %s: %w", name, err)
		}

		m.Contact, m.Homepage, m.Summary, m.Changelog = contact.String, homepage.String, summary.String, changelog.String
		if m.LastUpdated, err = time.Parse(time.RFC3339Nano, lastUpdated); err != nil {
			return fmt.Errorf("registry cache of %s: bad timestamp: %w", name, err)
		}

		if m.Releases, err = s.releases(ctx, name); err != nil {
			return err
		}
		meta = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *Store) releases(ctx context.Context, name string) ([]portal.Release, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, locator, file_name, released_on, sha1, factorio_version
		FROM registry_releases WHERE mod = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases of %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var releases []portal.Release
	for rows.Next() {
		var (
			rel                     portal.Release
			ver, released, factorio string
		)
		if err := rows.Scan(&ver, &rel.Locator, &rel.FileName, &released, &rel.SHA1, &factorio); err != nil {
			return nil, fmt.Errorf("failed to scan release of %s: %w", name, err)
		}
		if rel.Version, err = version.Parse(ver); err != nil {
			return nil, fmt.Errorf("release of %s: %w", name, err)
		}
		if rel.FactorioVersion, err = version.Parse(factorio); err != nil {
			return nil, fmt.Errorf("release %s of %s: %w", ver, name, err)
		}
		if rel.ReleasedAt, err = time.Parse(time.RFC3339Nano, released); err != nil {
			return nil, fmt.Errorf("release %s of %s: bad timestamp: %w", ver, name, err)
		}
		releases = append(releases, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range releases {
		deps, err := s.dependencies(ctx, name, releases[i].Version)
		if err != nil {
			return nil, err
		}
		releases[i].Dependencies = deps
	}

	sortReleases(releases)
	return releases, nil
}

func (s *Store) dependencies(ctx context.Context, name string, ver version.Version) ([]dependency.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT declaration FROM release_dependencies
		WHERE mod = ? AND version = ? ORDER BY position`, name, ver.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies of %s %s: %w", name, ver, err)
	}
	defer func() { _ = rows.Close() }()

	var deps []dependency.Dependency
	for rows.Next() {
		var declaration string
		if err := rows.Scan(&declaration); err != nil {
			return nil, fmt.Errorf("failed to scan dependency of %s %s: %w", name, ver, err)
		}
		dep, err := dependency.Parse(declaration)
		if err != nil {
			return nil, fmt.Errorf("dependency of %s %s: %w", name, ver, err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// SetRegistryCache replaces the cached metadata of name, including all its
// releases and their dependencies, in a single transaction.
func (s *Store) SetRegistryCache(ctx context.Context, name string, meta CachedMetadata) error {
	err := s.write(ctx, func(tx *sql.Tx) error {
		// Releases and dependencies go with the mod row through ON DELETE CASCADE.
		if _, err := tx.ExecContext(ctx, `DELETE FROM registry_mods WHERE name = ?`, name); err != nil {
			return fmt.Errorf("failed to clear registry cache of %s: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registry_mods (name, author, contact, homepage, title, summary, description, changelog, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			name, meta.Author, nullable(meta.Contact), nullable(meta.Homepage), meta.Title,
			nullable(meta.Summary), meta.Description, nullable(meta.Changelog),
			meta.LastUpdated.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to insert registry cache of %s: %w", name, err)
		}

		for _, rel := range meta.Releases {
			if err := insertRelease(ctx, tx, name, rel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("registry cache updated", "mod", name, "releases", len(meta.Releases))
	return nil
}

func insertRelease(ctx context.Context, tx *sql.Tx, name string, rel portal.Release) error {
	ver := rel.Version.String()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO registry_releases (mod, version, locator, file_name, released_on, sha1, factorio_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, ver, rel.Locator, rel.FileName, rel.ReleasedAt.UTC().Format(time.RFC3339Nano),
		rel.SHA1, rel.FactorioVersion.String(),
	); err != nil {
		return fmt.Errorf("failed to insert release %s of %s: %w", ver, name, err)
	}

	for i, dep := range rel.Dependencies {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO release_dependencies (mod, version, position, declaration)
			VALUES (?, ?, ?, ?)`,
			name, ver, i, dep.String(),
		); err != nil {
			return fmt.Errorf("failed to insert dependency %s of %s %s: %w", dep.Name, name, ver, err)
		}
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func sortReleases(releases []portal.Release) {
	slices.SortFunc(releases, func(a, b portal.Release) int {
		return a.Version.Compare(b.Version)
	})
}
