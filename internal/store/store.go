// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("store is closed")

	// ErrHostNotFound is returned when a host ID has no row.
	ErrHostNotFound = errors.New("host not found")

	//go:embed schema.sql
	schema string
)

type (
	// HostID identifies a mods directory known to the store.
	HostID int64

	// Config configures Open.
	Config struct {
		// Path is the database file. ":memory:" opens an in-memory database,
		// which only works with a single connection.
		Path string
		// EnableWAL turns on write-ahead logging. Ignored for in-memory
		// databases.
		EnableWAL bool
		// MaxOpenConns bounds the connection pool. Defaults to 1 so all
		// writes go through a single connection.
		MaxOpenConns int
		// BusyTimeout is how long SQLite waits on a locked database.
		BusyTimeout time.Duration
		// Logger defaults to discarding everything.
		Logger *log.Logger
	}

	// Store is a SQLite-backed cache. It is safe for concurrent use; writes
	// are serialized and each runs in its own transaction.
	Store struct {
		db     *sql.DB
		mu     sync.RWMutex
		closed bool
		logger *log.Logger
	}
)

func (c *Config) setDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 1
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
}

func (c *Config) dataSourceName() string {
	params := []string{
		"_foreign_keys=on",
		fmt.Sprintf("_busy_timeout=%d", c.BusyTimeout.Milliseconds()),
	}

	if c.Path == ":memory:" {
		return "file::memory:?" + strings.Join(params, "&")
	}
	if c.EnableWAL {
		params = append(params, "_journal_mode=WAL")
	}
	return "file:" + c.Path + "?" + strings.Join(params, "&")
}

// Open opens (creating if needed) the database described by cfg and applies
// the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("store path is required")
	}
	cfg.setDefaults()

	logger := cfg.Logger.WithPrefix("store")
	logger.Debug("opening database", "path", cfg.Path, "wal", cfg.EnableWAL)

	db, err := sql.Open("sqlite3", cfg.dataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database. Further calls return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// read runs fn holding the read lock.
func (s *Store) read(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	return fn()
}

// write runs fn inside a transaction holding the write lock.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "err", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureHost returns the ID of the host for modsDir, creating it if needed.
// known reports whether the host already existed.
func (s *Store) EnsureHost(ctx context.Context, modsDir string) (id HostID, known bool, err error) {
	err = s.write(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT id FROM hosts WHERE mods_dir = ?`, modsDir).Scan(&id)
		switch {
		case err == nil:
			known = true
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up host: %w", err)
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO hosts (mods_dir) VALUES (?)`, modsDir)
		if err != nil {
			return fmt.Errorf("failed to insert host: %w", err)
		}
		n, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read host id: %w", err)
		}
		id = HostID(n)
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	s.logger.Debug("host resolved", "mods_dir", modsDir, "id", id, "known", known)
	return id, known, nil
}
