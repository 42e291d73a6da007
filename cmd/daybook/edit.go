package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
	"github.com/aretw0/daybook/pkg/autosave"
)

var (
	editPolicy   string
	editDebounce string
	editReplace  bool
)

var editCmd = &cobra.Command{
	Use:   "edit [date]",
	Short: "Type an entry line by line with autosave",
	Long: `Open an editing session on a date (default today). Each line read from
standard input is appended to the entry and handed to the autosave policy.
End of input or Ctrl-C closes the session, which saves whatever is pending.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var extra []daybook.Option
		if editPolicy != "" {
			kind, err := autosave.ParseKind(editPolicy)
			if err != nil {
				fatal("Invalid policy", err)
			}
			debounce, err := parseDuration(editDebounce)
			if err != nil {
				fatal("Invalid debounce", err)
			}
			extra = append(extra, daybook.WithAutosave(kind, debounce))
		}

		j := openJournal(extra...)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		d := parseDateArg(j, args)

		err := editEntry(ctx, j, d, os.Stdin, editReplace)
		stop()
		// Close before exiting so queued saves reach storage.
		closeJournal(j)
		if err != nil {
			fatal("Failed to edit entry", err)
		}
		fmt.Fprintf(os.Stderr, "Saved %s.\n", d)
	},
}

// editEntry appends each line of in to the entry for d through a session.
// The session is closed, and its pending text saved, on every return path.
func editEntry(ctx context.Context, j *daybook.Journal, d daybook.Date, in io.Reader, replace bool) (err error) {
	var text string
	if !replace {
		entry, _, err := j.ReadEntry(ctx, d)
		if err != nil {
			return fmt.Errorf("read entry: %w", err)
		}
		text = entry.Content
	}

	s, err := j.OpenSession(context.Background(), d)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if closeErr := s.Close(context.Background()); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("save entry: %w", closeErr))
		}
	}()
	fmt.Fprintf(os.Stderr, "Editing %s (%s autosave). End with Ctrl-D.\n", d, s.Kind())

	quit := make(chan struct{})
	defer close(quit)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if text != "" && !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			text += line + "\n"
			if err := s.Mutate(ctx, text); err != nil {
				return fmt.Errorf("update entry: %w", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editPolicy, "policy", "", "Autosave policy: immediate, debounced or explicit (default from config)")
	editCmd.Flags().StringVar(&editDebounce, "debounce", "", "Debounce window for the debounced policy, e.g. 500ms")
	editCmd.Flags().BoolVar(&editReplace, "replace", false, "Start from an empty entry instead of appending")
}
