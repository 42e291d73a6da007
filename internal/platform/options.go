package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/daybook/pkg/autosave"
	"github.com/aretw0/daybook/pkg/core"
)

// options holds the internal configuration for a journal.
type options struct {
	repository  core.Repository
	logger      *slog.Logger
	adapter     string
	workers     int
	autosave    autosave.Kind
	debounce    time.Duration
	clock       func() time.Time
	location    *time.Location
	protectPast bool
	config      map[string]interface{}
}

// Option defines a functional option for configuring a journal.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:  "fs",
		autosave: autosave.KindDebounced,
		debounce: autosave.DefaultDebounce,
		clock:    time.Now,
		location: time.Local,
		config:   make(map[string]interface{}),
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository allows injecting a custom storage adapter.
// If provided, adapter selection and initialization are skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default) or "sqlite".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithSuffix sets the record file suffix of the fs adapter. Defaults to ".txt".
func WithSuffix(suffix string) Option {
	return func(o *options) {
		o.config["suffix"] = suffix
	}
}

// WithMustExist ensures the journal directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Saves return ErrReadOnly and deletes are refused.
// 2. Initialization (Mkdir, staging sweep, schema) is skipped.
// 3. Dev Safety Lock (go run temp dir) is BYPASSED (uses real path).
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run`.
// By default (true), a temporary directory replaces the real journal so a
// development build never touches real entries.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithWorkers sets the size of the background storage pool.
// Zero means default (4).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithAutosave sets the policy used by editing sessions. A zero debounce
// keeps the default (500ms).
func WithAutosave(kind autosave.Kind, debounce time.Duration) Option {
	return func(o *options) {
		o.autosave = kind
		if debounce > 0 {
			o.debounce = debounce
		}
	}
}

// WithClock sets the time source deciding which date is today.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLocation sets the time zone today is computed in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithProtectPast refuses to delete entries older than today.
func WithProtectPast(enabled bool) Option {
	return func(o *options) {
		o.protectPast = enabled
	}
}
