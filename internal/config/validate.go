package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Storage.Adapter {
	case "fs", "sqlite", "memory":
	default:
		return fmt.Errorf("storage.adapter must be fs, sqlite or memory (got %q)", c.Storage.Adapter)
	}
	if c.AutoSave.Delay <= 0 {
		return fmt.Errorf("autosave.delay must be > 0 (got %s)", c.AutoSave.Delay)
	}
	if c.AutoSave.FlushTimeout <= 0 {
		return fmt.Errorf("autosave.flush_timeout must be > 0 (got %s)", c.AutoSave.FlushTimeout)
	}
	if c.AutoSave.SwitchTimeout <= 0 {
		return fmt.Errorf("autosave.switch_timeout must be > 0 (got %s)", c.AutoSave.SwitchTimeout)
	}
	if c.AutoSave.EventBuffer < 0 {
		return fmt.Errorf("autosave.event_buffer must be >= 0 (got %d)", c.AutoSave.EventBuffer)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(l.Level))); err != nil {
		return 0, err
	}
	return level, nil
}
