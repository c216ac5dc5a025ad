package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	showJSON bool
	showHTML bool
)

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a note",
	Long:  `Print a note's raw Markdown, its HTML preview with --html, or the whole note with --json.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx, false)
		if err != nil {
			fatal("Error opening notes", err)
		}
		defer closeSession(ctx, s)

		note, err := s.Editor.SelectNote(ctx, args[0])
		if err != nil {
			fatal("Error reading note", err)
		}

		switch {
		case showJSON:
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(note); err != nil {
				fatal("Error encoding JSON", err)
			}
		case showHTML:
			html, err := s.Editor.Preview()
			if err != nil {
				fatal("Error rendering note", err)
			}
			fmt.Print(html)
		default:
			fmt.Print(note.Content)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVar(&showHTML, "html", false, "Render the Markdown preview")
}
