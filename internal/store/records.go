// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// Record is what the store remembers about one installed mod of a host.
type Record struct {
	Name    string
	Version version.Version
	// Archive is the archive's file name relative to the mods directory.
	Archive string
	// Checksum is the archive's BLAKE2b-512 hex digest.
	Checksum string
}

// GetCachedMods returns the records stored for host, ordered by name.
func (s *Store) GetCachedMods(ctx context.Context, host HostID) ([]Record, error) {
	var records []Record

	err := s.read(func() error {
		if err := s.hostExists(ctx, host); err != nil {
			return err
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT name, version, archive, checksum FROM host_mods WHERE host_id = ? ORDER BY name`, host)
		if err != nil {
			return fmt.Errorf("failed to query cached mods: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var (
				rec Record
				ver string
			)
			if err := rows.Scan(&rec.Name, &ver, &rec.Archive, &rec.Checksum); err != nil {
				return fmt.Errorf("failed to scan cached mod: %w", err)
			}
			if rec.Version, err = version.Parse(ver); err != nil {
				return fmt.Errorf("cached mod %s: %w", rec.Name, err)
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReplaceCachedMods replaces every record of host with records in a single
// transaction.
func (s *Store) ReplaceCachedMods(ctx context.Context, host HostID, records []Record) error {
	err := s.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM host_mods WHERE host_id = ?`, host); err != nil {
			return fmt.Errorf("failed to clear cached mods: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO host_mods (host_id, name, version, archive, checksum) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, host, rec.Name, rec.Version.String(), rec.Archive, rec.Checksum); err != nil {
				return fmt.Errorf("failed to insert cached mod %s: %w", rec.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("cached mods replaced", "host", host, "count", len(records))
	return nil
}

func (s *Store) hostExists(ctx context.Context, host HostID) error {
	var id HostID
	err := s.db.QueryRowContext(ctx, `SELECT id FROM hosts WHERE id = ?`, host).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("host %d: %w", host, ErrHostNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up host: %w", err)
	}
	return nil
}
