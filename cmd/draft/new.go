package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	newTitle string
	newTags  []string
)

var newCmd = &cobra.Command{
	Use:   "new [content...]",
	Short: "Create a note",
	Long:  `Create a note and print its ID. Pass "-" to read the content from stdin.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx, false)
		if err != nil {
			fatal("Error opening notes", err)
		}
		defer closeSession(ctx, s)

		// Opening empty storage already made a blank note; fill that one.
		note, ok := s.Editor.Active()
		if !ok || note.Content != "" || note.TitleOverride || len(note.Tags) > 0 {
			if note, err = s.Editor.CreateNote(ctx); err != nil {
				fatal("Error creating note", err)
			}
		}

		content, err := readContent(args)
		if err != nil {
			fatal("Error reading content", err)
		}
		if content != "" {
			if _, err := s.Editor.UpdateContent(note.ID, content); err != nil {
				fatal("Error writing note", err)
			}
		}
		if newTitle != "" {
			if _, err := s.Editor.SetTitle(note.ID, newTitle); err != nil {
				fatal("Error setting title", err)
			}
		}
		if len(newTags) > 0 {
			if _, err := s.Editor.SetTags(ctx, note.ID, newTags); err != nil {
				fatal("Error setting tags", err)
			}
		}
		fmt.Println(note.ID)
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Set the title instead of deriving it")
	newCmd.Flags().StringSliceVar(&newTags, "tag", nil, "Tags (repeatable or comma separated)")
}
