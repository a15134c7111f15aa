package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilianp07/vpp/core/factory"
	"github.com/kilianp07/vpp/core/model"
)

// LoggingConfig defines the application log level and the run log store.
type LoggingConfig struct {
	// Level is a zerolog level name.
	Level string `json:"level"`
	// Backend selects the run log store type.
	Backend string `json:"backend" validate:"oneof=jsonl memory redis postgres"`
	// DSN locates the redis (redis://) or postgres backend.
	DSN string `json:"dsn"`
	// Path is the file location of the jsonl run log.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb" validate:"gte=0"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups" validate:"gte=0"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days" validate:"gte=0"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "runs.jsonl"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	if c.Backend == "jsonl" && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if (c.Backend == "redis" || c.Backend == "postgres") && c.DSN == "" {
		return fmt.Errorf("%w: dsn is required for the %s run log", model.ErrConfig, c.Backend)
	}
	return structErr(c)
}

// RunLog returns the module configuration of the run log store.
func (c LoggingConfig) RunLog() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: map[string]any{
		"path":         c.Path,
		"dsn":          c.DSN,
		"max_size_mb":  c.MaxSizeMB,
		"max_backups":  c.MaxBackups,
		"max_age_days": c.MaxAgeDays,
	}}
}
