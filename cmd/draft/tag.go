package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag [id] [tags...]",
	Short: "Replace a note's tags",
	Long:  `Replace a note's tags. No tags clears them.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx, false)
		if err != nil {
			fatal("Error opening notes", err)
		}
		defer closeSession(ctx, s)

		id := args[0]
		if _, err := s.Editor.SelectNote(ctx, id); err != nil {
			fatal("Error opening note", err)
		}
		if _, err := s.Editor.SetTags(ctx, id, args[1:]); err != nil {
			fatal("Error setting tags", err)
		}

		note, _ := s.Editor.Active()
		fmt.Printf("%s [%s]\n", note.ID, strings.Join(note.Tags, ", "))
	},
}

func init() {
	rootCmd.AddCommand(tagCmd)
}
