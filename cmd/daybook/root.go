package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
	"github.com/aretw0/daybook/internal/config"
)

var (
	verbose     bool
	configPath  string
	journalDir  string
	adapterName string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "A journal with one plain-text entry per day",
	Long: `Daybook keeps one free-text entry per calendar date, stored as one file
per date. Writes are atomic, blank entries are deleted, and the most recent
day always comes first.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			fatal("Failed to load config", err)
		}

		level, _ := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/daybook/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&journalDir, "dir", "d", "", "Journal directory")
	rootCmd.PersistentFlags().StringVar(&adapterName, "adapter", "", "Storage adapter (fs or sqlite)")
}

// resolveDir picks the journal directory: --dir, then the config file, then
// an enclosing journal root, then the default data directory. For an
// enclosing root it also returns the adapter its marker implies.
func resolveDir() (dir, adapter string, err error) {
	if journalDir != "" {
		dir, err = config.ExpandPath(journalDir)
		return dir, "", err
	}
	if cfg.Dir != "" {
		dir, err = cfg.JournalDir()
		return dir, "", err
	}
	if wd, err := os.Getwd(); err == nil {
		if root, err := daybook.FindJournalRoot(wd); err == nil {
			return root.Dir, root.Adapter, nil
		}
	}
	dir, err = config.DataDir()
	return dir, "", err
}

// openJournal opens the configured journal. extra options override the
// config file.
func openJournal(extra ...daybook.Option) *daybook.Journal {
	dir, found, err := resolveDir()
	if err != nil {
		fatal("Failed to resolve journal directory", err)
	}

	opts, err := cfg.Options()
	if err != nil {
		fatal("Invalid config", err)
	}
	opts = append(opts, daybook.WithLogger(slog.Default()))
	switch {
	case adapterName != "":
		opts = append(opts, daybook.WithAdapter(adapterName))
	case cfg.Adapter == "" && found != "":
		opts = append(opts, daybook.WithAdapter(found))
	}
	opts = append(opts, extra...)

	j, err := daybook.Open(dir, opts...)
	if err != nil {
		fatal("Failed to open journal", err)
	}
	return j
}

// parseDateArg accepts YYYY-MM-DD, "today" and "yesterday".
// No argument means today.
func parseDateArg(j *daybook.Journal, args []string) daybook.Date {
	if len(args) == 0 {
		return j.Today()
	}
	switch strings.ToLower(args[0]) {
	case "today":
		return j.Today()
	case "yesterday":
		return j.Today().AddDays(-1)
	}
	d, err := daybook.ParseDate(args[0])
	if err != nil {
		fatal("Invalid date", err)
	}
	return d
}

// closeTimeout bounds how long a command waits for queued writes on exit.
const closeTimeout = 5 * time.Second

func closeJournal(j *daybook.Journal) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := j.Close(ctx); err != nil {
		slog.Warn("failed to close journal", "error", err)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
