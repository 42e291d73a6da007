package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <date>",
	Short: "Delete an entry",
	Long:  `Delete the entry for a date. Entries before today are kept unless --force is given.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		j := openJournal(daybook.WithProtectPast(!deleteForce))
		d := parseDateArg(j, args)
		err := j.DeleteEntry(context.Background(), d)
		closeJournal(j)
		if err != nil {
			if errors.Is(err, daybook.ErrPastEntry) {
				fatal("Refusing to delete", fmt.Errorf("%w (use --force)", err))
			}
			fatal("Failed to delete entry", err)
		}

		fmt.Printf("Entry %s deleted.\n", d)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Allow deleting entries before today")
}
