package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/daybook"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of daybook",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("daybook version %s\n", strings.TrimSpace(daybook.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
