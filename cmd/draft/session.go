package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/draft"
)

// openSession starts an editing session from the loaded configuration. An
// unset path resolves to the enclosing notes root when there is one.
func openSession(ctx context.Context, watch bool) (*draft.Session, error) {
	path := cfg.Storage.Path
	if notesPath == "" && path == "." {
		if root, err := draft.FindRoot("."); err == nil {
			path = root
		}
	}

	return draft.New(ctx, path,
		draft.WithAdapter(cfg.Storage.Adapter),
		draft.WithSystemDir(cfg.Storage.SystemDir),
		draft.WithAutoSaveDelay(cfg.AutoSave.Delay),
		draft.WithFlushTimeout(cfg.AutoSave.FlushTimeout),
		draft.WithSwitchTimeout(cfg.AutoSave.SwitchTimeout),
		draft.WithEventBuffer(cfg.AutoSave.EventBuffer),
		draft.WithDevSafety(!cfg.Storage.DisableDevSafety),
		draft.WithWatch(watch || cfg.Storage.Watch),
		draft.WithLogger(slog.Default()),
	)
}

// closeSession flushes pending edits; failures are fatal.
func closeSession(ctx context.Context, s *draft.Session) {
	if err := s.Close(ctx); err != nil {
		fatal("Error saving notes", err)
	}
}

// readContent joins args, or reads stdin when the only arg is "-".
func readContent(args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
