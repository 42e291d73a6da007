package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/daybook/pkg/core"
)

const (
	// DefaultSuffix is the extension given to record files.
	DefaultSuffix = ".txt"

	filePerm = 0644
	dirPerm  = 0755

	datePattern = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]"
)

// Repository implements core.Repository on a flat directory holding one
// file per date.
type Repository struct {
	Path   string
	config Config
	locks  *keyLock
	rename renameFunc
	glob   string

	mu             sync.RWMutex
	watcherActive  bool
	degradedWrites int
	lastSweep      *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path         string
	Suffix       string // e.g. ".txt"; empty means DefaultSuffix
	MustExist    bool
	ReadOnly     bool
	Logger       *slog.Logger
	ErrorHandler func(error) // receives watcher failures
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Suffix == "" {
		config.Suffix = DefaultSuffix
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	return &Repository{
		Path:   config.Path,
		config: config,
		locks:  newKeyLock(),
		rename: os.Rename,
		glob:   datePattern + escapeGlob(config.Suffix),
	}
}

// Initialize prepares the directory and removes staging files left behind by
// writes that never completed.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.ReadOnly {
		return nil
	}

	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("journal path does not exist: %s", r.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat journal path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("journal path is not a directory: %s", r.Path)
		}
	} else {
		if err := os.MkdirAll(r.Path, dirPerm); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	return r.sweepStaging()
}

// sweepStaging deletes orphaned staging files.
func (r *Repository) sweepStaging() error {
	matches, err := doublestar.Glob(os.DirFS(r.Path), r.glob+escapeGlob(StagingSuffix))
	if err != nil {
		return fmt.Errorf("failed to scan staging files: %w", err)
	}

	for _, name := range matches {
		if err := os.Remove(filepath.Join(r.Path, name)); err != nil && !os.IsNotExist(err) {
			r.config.Logger.Warn("failed to remove staging file", "file", name, "error", err)
			continue
		}
		r.config.Logger.Info("removed orphaned staging file", "file", name)
	}

	r.mu.Lock()
	now := time.Now()
	r.lastSweep = &now
	r.mu.Unlock()

	return nil
}

// Get reads the record for d.
// Missing, empty and unreadable records are all reported as absent.
func (r *Repository) Get(ctx context.Context, d core.Date) (core.Entry, bool) {
	unlock := r.locks.Lock(d)
	defer unlock()

	data, err := os.ReadFile(r.pathFor(d))
	if err != nil {
		if !os.IsNotExist(err) {
			r.config.Logger.Warn("failed to read entry", "date", d, "error", err)
		}
		return core.Entry{}, false
	}

	if len(data) == 0 {
		r.config.Logger.Debug("ignoring empty record", "date", d)
		return core.Entry{}, false
	}

	return core.Entry{Date: d, Content: string(data)}, true
}

// Put persists the entry.
//
// Workflow:
//  1. Reject writes in read-only mode.
//  2. Blank content removes the record (DurabilityRemoved).
//  3. Otherwise write a staging file and rename it over the record.
//  4. If the rename fails, overwrite in place and report DurabilityDegraded.
func (r *Repository) Put(ctx context.Context, e core.Entry) (core.Durability, error) {
	if e.Date.IsZero() {
		return core.DurabilityAtomic, fmt.Errorf("%w: entry has no date", core.ErrInvalidDate)
	}
	if r.config.ReadOnly {
		return core.DurabilityAtomic, core.ErrReadOnly
	}

	unlock := r.locks.Lock(e.Date)
	defer unlock()

	path := r.pathFor(e.Date)

	if e.IsBlank() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return core.DurabilityRemoved, fmt.Errorf("failed to remove blank entry %s: %w", e.Date, err)
		}
		return core.DurabilityRemoved, nil
	}

	durability, err := writeFileAtomic(path, []byte(e.Content), filePerm, r.rename)
	if err != nil {
		return durability, fmt.Errorf("failed to write entry %s: %w", e.Date, err)
	}

	if durability == core.DurabilityDegraded {
		r.mu.Lock()
		r.degradedWrites++
		r.mu.Unlock()
		r.config.Logger.Warn("atomic rename failed, entry overwritten in place (degraded durability)", "date", e.Date)
	}

	return durability, nil
}

// Delete removes the record for d. Absent records and I/O failures are no-ops.
func (r *Repository) Delete(ctx context.Context, d core.Date) {
	if r.config.ReadOnly {
		r.config.Logger.Debug("delete ignored in read-only mode", "date", d)
		return
	}

	unlock := r.locks.Lock(d)
	defer unlock()

	if err := os.Remove(r.pathFor(d)); err != nil && !os.IsNotExist(err) {
		r.config.Logger.Warn("failed to delete entry", "date", d, "error", err)
	}
}

// ListKeys scans the directory and returns the dates of non-empty records,
// most recent first. Names that are not canonical dates are skipped.
func (r *Repository) ListKeys(ctx context.Context) []core.Date {
	dates := []core.Date{}

	items, err := os.ReadDir(r.Path)
	if err != nil {
		r.config.Logger.Warn("failed to list journal directory", "path", r.Path, "error", err)
		return dates
	}

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		d, ok := r.recordDate(item.Name())
		if !ok {
			continue
		}

		info, err := item.Info()
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			continue
		}

		dates = append(dates, d)
	}

	core.SortDescending(dates)
	return dates
}

// recordDate maps a file name back to its date.
func (r *Repository) recordDate(name string) (core.Date, bool) {
	ok, err := doublestar.Match(r.glob, name)
	if err != nil || !ok {
		return core.Date{}, false
	}

	d, err := core.ParseDate(strings.TrimSuffix(name, r.config.Suffix))
	if err != nil {
		return core.Date{}, false
	}
	return d, true
}

func (r *Repository) pathFor(d core.Date) string {
	return filepath.Join(r.Path, d.String()+r.config.Suffix)
}

// escapeGlob quotes the glob metacharacters of a literal suffix.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

var _ core.Repository = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
