// Package sqlite stores journal entries in an embedded SQLite database.
//
// It implements the same port as the directory adapter: blank content
// deletes, reads and deletes degrade instead of failing, and the listing
// comes back most recent first.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/daybook/pkg/core"
)

// DefaultFile is the database file name used inside a journal directory.
const DefaultFile = "daybook.db"

// Repository implements core.Repository on SQLite.
type Repository struct {
	config Config

	mu sync.RWMutex
	db *sql.DB
}

// Config holds the configuration for the SQLite repository.
type Config struct {
	// Path is the database file, or ":memory:".
	Path     string
	ReadOnly bool
	Logger   *slog.Logger
	// Clock stamps updated_at. Defaults to time.Now.
	Clock func() time.Time
}

// NewRepository creates a repository. Nothing is opened until Initialize.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Repository{config: config}
}

// Initialize opens the database, applies pragmas and creates the schema.
// In read-only mode the file must already exist and is never written.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return nil
	}

	dsn := r.config.Path
	memory := dsn == ":memory:"
	switch {
	case memory:
	case r.config.ReadOnly:
		if _, err := os.Stat(dsn); err != nil {
			return fmt.Errorf("database not found: %w", err)
		}
		dsn = "file:" + filepath.ToSlash(dsn) + "?mode=ro"
	default:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas are per connection, and every connection to :memory: is a
	// separate database.
	db.SetMaxOpenConns(1)

	if err := configurePragmas(ctx, db, r.config.ReadOnly); err != nil {
		db.Close()
		return err
	}
	if !r.config.ReadOnly {
		if err := migrate(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	r.db = db
	return nil
}

func configurePragmas(ctx context.Context, db *sql.DB, readOnly bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
	}
	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=FULL",
		)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entries (
			date       TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	return err
}

func (r *Repository) handle() (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, core.ErrClosed
	}
	return r.db, nil
}

// Get retrieves an entry. Missing, empty and unreadable rows are absent.
func (r *Repository) Get(ctx context.Context, d core.Date) (core.Entry, bool) {
	db, err := r.handle()
	if err != nil {
		r.config.Logger.Debug("get on closed database", "date", d)
		return core.Entry{Date: d}, false
	}

	var content string
	err = db.QueryRowContext(ctx, `SELECT content FROM entries WHERE date = ?`, d.String()).Scan(&content)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.config.Logger.Warn("failed to read entry", "date", d, "error", err)
		}
		return core.Entry{Date: d}, false
	}
	if content == "" {
		return core.Entry{Date: d}, false
	}
	return core.Entry{Date: d, Content: content}, true
}

// Put upserts an entry in one statement. Blank content deletes the row.
func (r *Repository) Put(ctx context.Context, e core.Entry) (core.Durability, error) {
	if e.Date.IsZero() {
		return core.DurabilityAtomic, fmt.Errorf("put: %w", core.ErrInvalidDate)
	}
	if r.config.ReadOnly {
		return core.DurabilityAtomic, fmt.Errorf("put %s: %w", e.Date, core.ErrReadOnly)
	}
	db, err := r.handle()
	if err != nil {
		return core.DurabilityAtomic, fmt.Errorf("put %s: %w", e.Date, err)
	}

	if e.IsBlank() {
		if _, err := db.ExecContext(ctx, `DELETE FROM entries WHERE date = ?`, e.Date.String()); err != nil {
			return core.DurabilityRemoved, fmt.Errorf("delete %s: %w", e.Date, err)
		}
		return core.DurabilityRemoved, nil
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO entries (date, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
	`, e.Date.String(), e.Content, r.config.Clock().UnixMilli())
	if err != nil {
		return core.DurabilityAtomic, fmt.Errorf("upsert %s: %w", e.Date, err)
	}
	return core.DurabilityAtomic, nil
}

// Delete removes the row for d. Failures are logged, not returned.
func (r *Repository) Delete(ctx context.Context, d core.Date) {
	if r.config.ReadOnly {
		r.config.Logger.Debug("delete ignored in read-only mode", "date", d)
		return
	}
	db, err := r.handle()
	if err != nil {
		r.config.Logger.Debug("delete on closed database", "date", d)
		return
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM entries WHERE date = ?`, d.String()); err != nil {
		r.config.Logger.Warn("failed to delete entry", "date", d, "error", err)
	}
}

// ListKeys returns the dates with content, most recent first. Rows whose key
// does not parse as a date are skipped.
func (r *Repository) ListKeys(ctx context.Context) []core.Date {
	keys := []core.Date{}

	db, err := r.handle()
	if err != nil {
		return keys
	}

	rows, err := db.QueryContext(ctx, `SELECT date FROM entries WHERE length(content) > 0 ORDER BY date DESC`)
	if err != nil {
		r.config.Logger.Warn("failed to list entries", "error", err)
		return keys
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			r.config.Logger.Debug("skipping unreadable row", "error", err)
			continue
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			r.config.Logger.Debug("skipping row with invalid date", "key", raw)
			continue
		}
		keys = append(keys, d)
	}
	if err := rows.Err(); err != nil {
		r.config.Logger.Warn("listing interrupted", "error", err)
	}

	// Canonical keys sort lexically; re-sort in case a row was written by hand.
	core.SortDescending(keys)
	return keys
}

// Close releases the database handle.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

var (
	_ core.Repository = (*Repository)(nil)
	_ core.Closer     = (*Repository)(nil)
)
