// Package config loads the command line configuration from a YAML file and
// DRAFT_* environment variables.
package config

import "time"

// Config is the root CLI configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	AutoSave AutoSaveConfig `yaml:"autosave"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig selects where notes live.
type StorageConfig struct {
	Adapter   string `yaml:"adapter"    env:"DRAFT_ADAPTER"    env-default:"fs"`
	Path      string `yaml:"path"       env:"DRAFT_PATH"       env-default:"."`
	SystemDir string `yaml:"system_dir" env:"DRAFT_SYSTEM_DIR" env-default:".draft"`
	Watch     bool   `yaml:"watch"      env:"DRAFT_WATCH"`

	// Zero values fall back to env-default, so the safe setting is false.
	DisableDevSafety bool `yaml:"disable_dev_safety" env:"DRAFT_DISABLE_DEV_SAFETY"`
}

// AutoSaveConfig tunes the auto-save engine.
type AutoSaveConfig struct {
	Delay         time.Duration `yaml:"delay"          env:"DRAFT_AUTOSAVE_DELAY"  env-default:"5s"`
	FlushTimeout  time.Duration `yaml:"flush_timeout"  env:"DRAFT_FLUSH_TIMEOUT"   env-default:"3s"`
	SwitchTimeout time.Duration `yaml:"switch_timeout" env:"DRAFT_SWITCH_TIMEOUT"  env-default:"2s"`
	EventBuffer   int           `yaml:"event_buffer"   env:"DRAFT_EVENT_BUFFER"    env-default:"64"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"DRAFT_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"DRAFT_LOG_FORMAT" env-default:"text"`
}
