package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"

	bridge "github.com/aretw0/draft/pkg/adapters/lifecycle"
	"github.com/aretw0/draft/pkg/core"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print storage and editor events until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx, true)
		if err != nil {
			fatal("Error opening notes", err)
		}
		defer closeSession(context.Background(), s)

		editorEvents, unsubscribe := s.Editor.Subscribe()
		defer unsubscribe()
		sources := []lifecycle.Source{bridge.NewSource(editorEvents)}

		if w, ok := s.Storage.(core.Watchable); ok {
			storageEvents, err := w.Watch(ctx, watchPattern)
			if err != nil {
				fatal("Error watching storage", err)
			}
			sources = append(sources, bridge.NewSource(storageEvents))
		}

		events, err := bridge.Merge(ctx, sources...)
		if err != nil {
			fatal("Error starting watch", err)
		}
		fmt.Fprintln(os.Stderr, "Watching for changes. Press Ctrl+C to stop.")
		for ev := range events {
			fmt.Println(ev.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "*", "Only report notes whose ID matches this glob")
}
