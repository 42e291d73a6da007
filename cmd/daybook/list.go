package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var (
	listJSON     bool
	listPreviews bool
	listLimit    int
)

type listItem struct {
	Date    daybook.Date `json:"date"`
	Preview string       `json:"preview,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the dates that have an entry, most recent first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		j := openJournal(daybook.WithReadOnly(true))
		defer closeJournal(j)
		ctx := context.Background()

		dates, err := j.ListDatesDescending(ctx)
		if err != nil {
			fatal("Failed to list entries", err)
		}
		if listLimit > 0 && len(dates) > listLimit {
			dates = dates[:listLimit]
		}

		var previews map[daybook.Date]string
		if listPreviews {
			previews, err = j.Previews(ctx, dates)
			if err != nil {
				fatal("Failed to load previews", err)
			}
		}

		items := make([]listItem, 0, len(dates))
		for _, d := range dates {
			items = append(items, listItem{Date: d, Preview: previews[d]})
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(items); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, item := range items {
			fmt.Println(item.Date)
			if item.Preview != "" {
				fmt.Printf("    %s\n", strings.ReplaceAll(item.Preview, "\n", "\n    "))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVarP(&listPreviews, "previews", "p", false, "Show the first lines of each entry")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Show at most n dates")
}
