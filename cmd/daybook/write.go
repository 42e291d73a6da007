package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var (
	writeContent string
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write [date]",
	Short: "Write an entry",
	Long: `Replace the entry for a date (default today) with --content, or with
standard input when --content is not given. Blank content deletes the entry.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content := writeContent
		if !cmd.Flags().Changed("content") {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatal("Failed to read standard input", err)
			}
			content = string(data)
		}

		j := openJournal()
		defer closeJournal(j)

		d := parseDateArg(j, args)
		durability, err := j.SaveEntry(context.Background(), d, content)
		if err != nil {
			fatal("Failed to save entry", err)
		}

		switch durability {
		case daybook.DurabilityRemoved:
			fmt.Printf("Entry %s removed (blank content).\n", d)
		case daybook.DurabilityDegraded:
			fmt.Printf("Entry %s saved without an atomic replace (see logs).\n", d)
		default:
			fmt.Printf("Entry %s saved.\n", d)
		}
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVarP(&writeContent, "content", "c", "", "Entry content")
}
