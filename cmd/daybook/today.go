package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's date and entry",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		j := openJournal(daybook.WithReadOnly(true))
		defer closeJournal(j)

		entry, found, err := j.ReadToday(context.Background())
		if err != nil {
			fatal("Failed to read today's entry", err)
		}
		if !found {
			fmt.Printf("%s: no entry yet\n", entry.Date)
			return
		}
		fmt.Printf("%s\n\n%s\n", entry.Date, entry.Content)
	},
}

func init() {
	rootCmd.AddCommand(todayCmd)
}
