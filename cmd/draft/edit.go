package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var editTitle string

var editCmd = &cobra.Command{
	Use:   "edit [id] [content...]",
	Short: "Replace a note's content or title",
	Long:  `Replace a note's content and save it. Pass "-" to read the content from stdin.`,
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

		if len(args) > 1 {
			content, err := readContent(args[1:])
			if err != nil {
				fatal("Error reading content", err)
			}
			if _, err := s.Editor.UpdateContent(id, content); err != nil {
				fatal("Error writing note", err)
			}
		}
		if cmd.Flags().Changed("title") {
			if _, err := s.Editor.SetTitle(id, editTitle); err != nil {
				fatal("Error setting title", err)
			}
		}

		state, err := s.Editor.ManualSave(ctx, id)
		if err != nil {
			fatal("Error saving note", err)
		}
		fmt.Println(state)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "Set the title; empty derives it from content again")
}
