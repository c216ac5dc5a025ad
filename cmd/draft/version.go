package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/draft"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of draft",
	// Skip config loading.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("draft version %s\n", strings.TrimSpace(draft.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
