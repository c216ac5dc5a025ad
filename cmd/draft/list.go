package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/draft/pkg/core"
)

var (
	listJSON  bool
	filterTag string
	listMatch string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx, false)
		if err != nil {
			fatal("Error opening notes", err)
		}
		defer closeSession(ctx, s)

		notes := s.Editor.Notes()
		if listMatch != "" {
			if notes, err = s.Editor.Filter(listMatch); err != nil {
				fatal("Error filtering notes", err)
			}
		}

		var filtered []core.Summary
		for _, n := range notes {
			if filterTag != "" && !slices.Contains(n.Tags, filterTag) {
				continue
			}
			filtered = append(filtered, n)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, n := range filtered {
			line := fmt.Sprintf("%s  %s", n.ID, n.Title)
			if len(n.Tags) > 0 {
				line += "  [" + strings.Join(n.Tags, ", ") + "]"
			}
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterTag, "tag", "", "Filter notes by tag")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Filter by title or ID glob (e.g. \"*meeting*\")")
}
