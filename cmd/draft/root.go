package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/draft/internal/config"
)

var (
	verbose    bool
	configPath string
	notesPath  string
	adapter    string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "draft",
	Short: "A note editor core with auto-save",
	Long: `Draft keeps a list of Markdown notes, one of them active, and saves
edits after a quiet period, on demand and whenever you switch notes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if notesPath != "" {
			loaded.Storage.Path = notesPath
		}
		if adapter != "" {
			loaded.Storage.Adapter = adapter
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		cfg = loaded

		level, _ := cfg.Log.SlogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}

		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.Log.Format == "json" {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $DRAFT_CONFIG or ./draft.yaml)")
	rootCmd.PersistentFlags().StringVarP(&notesPath, "path", "p", "", "Notes location (directory or database file)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs, sqlite or memory")
}
