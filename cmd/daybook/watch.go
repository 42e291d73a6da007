package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the date list whenever the journal changes",
	Long:  `Watch the journal directory and print the date list each time entries are added or removed, including by other programs.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		j := openJournal(daybook.WithReadOnly(true))
		defer closeJournal(j)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := j.Follow(ctx); err != nil {
			fatal("Failed to watch journal", err)
		}

		list := j.ObserveList(ctx)
		hasToday := j.ObserveHasToday(ctx)

		for {
			select {
			case dates, ok := <-list:
				if !ok {
					return
				}
				names := make([]string, len(dates))
				for i, d := range dates {
					names[i] = d.String()
				}
				fmt.Printf("[%s] %d entries: %s\n", time.Now().Format(time.TimeOnly), len(dates), strings.Join(names, " "))
			case v, ok := <-hasToday:
				if !ok {
					return
				}
				fmt.Printf("[%s] today has an entry: %t\n", time.Now().Format(time.TimeOnly), v)
			case <-ctx.Done():
				return
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
