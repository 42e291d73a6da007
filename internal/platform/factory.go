package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/daybook/pkg/adapters/fs"
	"github.com/aretw0/daybook/pkg/adapters/sqlite"
	"github.com/aretw0/daybook/pkg/autosave"
	"github.com/aretw0/daybook/pkg/cache"
	"github.com/aretw0/daybook/pkg/core"
	"github.com/aretw0/daybook/pkg/dispatch"
)

// Runtime is a wired journal: storage, background executor and projection.
type Runtime struct {
	Repository core.Repository
	Executor   *dispatch.Executor
	Cache      *cache.Cache
	Logger     *slog.Logger

	ReadOnly    bool
	ProtectPast bool
	Autosave    autosave.Kind
	Debounce    time.Duration
}

// New initializes the storage named by uri and wires the executor and cache
// on top of it.
//
//	rt, err := platform.New("~/journal", platform.WithAdapter("sqlite"))
func New(uri string, opts ...Option) (*Runtime, error) {
	o := buildOptions(opts)

	repo, err := initRepository(uri, o)
	if err != nil {
		return nil, err
	}

	exec := dispatch.New(o.workers, o.logger)
	c := cache.New(repo, exec,
		cache.WithClock(o.clock),
		cache.WithLocation(o.location),
		cache.WithLogger(o.logger),
	)

	readOnly, _ := o.config["read_only"].(bool)

	return &Runtime{
		Repository:  repo,
		Executor:    exec,
		Cache:       c,
		Logger:      o.logger,
		ReadOnly:    readOnly,
		ProtectPast: o.protectPast,
		Autosave:    o.autosave,
		Debounce:    o.debounce,
	}, nil
}

// Close ends subscriptions, waits for queued storage work and releases the
// repository.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.Cache.Close()
	err := rt.Executor.Close(ctx)
	if closer, ok := rt.Repository.(core.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// Init initializes a repository based on the provided configuration.
// The 'uri' argument is adapter-specific (a directory for 'fs', a database
// file or directory for 'sqlite').
func Init(uri string, opts ...Option) (core.Repository, error) {
	return initRepository(uri, buildOptions(opts))
}

func initRepository(uri string, o *options) (core.Repository, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	var repo core.Repository
	switch o.adapter {
	case "fs", "":
		repo = initFS(uri, o)
	case "sqlite":
		repo = initSQLite(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}

	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// resolvePath applies the dev sandbox rules to path.
func resolvePath(path string, o *options) string {
	tempDir, _ := o.config["temp_dir"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}

	// Read-only access is inherently safe.
	bypassSafety := isReadOnly || !devSafety
	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolved := ResolveJournalPath(path, useTemp)

	if useTemp {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolved)
	} else if IsDevRun() && bypassSafety {
		if isReadOnly {
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		} else {
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		}
	}
	return resolved
}

func initFS(path string, o *options) core.Repository {
	suffix, _ := o.config["suffix"].(string)
	mustExist, _ := o.config["must_exist"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	return fs.NewRepository(fs.Config{
		Path:         resolvePath(path, o),
		Suffix:       suffix,
		MustExist:    mustExist,
		ReadOnly:     isReadOnly,
		Logger:       o.logger,
		ErrorHandler: errorHandler,
	})
}

func initSQLite(uri string, o *options) core.Repository {
	isReadOnly, _ := o.config["read_only"].(bool)

	path := uri
	if path != ":memory:" {
		path = resolvePath(uri, o)
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, sqlite.DefaultFile)
		}
	}

	return sqlite.NewRepository(sqlite.Config{
		Path:     path,
		ReadOnly: isReadOnly,
		Logger:   o.logger,
		Clock:    o.clock,
	})
}
