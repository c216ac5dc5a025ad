package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx, false)
		if err != nil {
			fatal("Error opening notes", err)
		}
		defer closeSession(ctx, s)

		if err := s.Editor.DeleteNote(ctx, args[0]); err != nil {
			fatal("Error deleting note", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
