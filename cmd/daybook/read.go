package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var (
	readJSON bool
)

var readCmd = &cobra.Command{
	Use:   "read [date]",
	Short: "Read an entry",
	Long:  `Read the entry for a date (YYYY-MM-DD, "today" or "yesterday"; default today). Outputs raw text by default, or a JSON object with --json.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		j := openJournal(daybook.WithReadOnly(true))
		defer closeJournal(j)

		d := parseDateArg(j, args)
		entry, found, err := j.ReadEntry(context.Background(), d)
		if err != nil {
			fatal("Failed to read entry", err)
		}
		if !found {
			fmt.Fprintf(os.Stderr, "No entry for %s\n", d)
			closeJournal(j)
			os.Exit(1)
		}

		if readJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(entry); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		fmt.Print(entry.Content)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readJSON, "json", false, "Output in JSON format")
}
