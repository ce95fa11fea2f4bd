package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

// Accelerator names the primary shortcut modifier.
type Accelerator string

// AcceleratorAuto and related constants define the supported accelerator settings.
const (
	AcceleratorAuto Accelerator = "auto"
	AcceleratorCtrl Accelerator = "ctrl"
	AcceleratorMeta Accelerator = "meta"
	AcceleratorAlt  Accelerator = "alt"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Columns  ColumnsConfig  `toml:"columns"`
	Sort     SortConfig     `toml:"sort"`
	Keys     KeyConfig      `toml:"keys"`
	Confirm  ConfirmConfig  `toml:"confirm"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ColumnsConfig struct {
	Filter   bool `toml:"filter"`
	Slow     bool `toml:"slow"`
	Enabled  bool `toml:"enabled"`
	HitCount bool `toml:"hitcount"`
	LastHit  bool `toml:"lasthit"`
}

type SortConfig struct {
	Column    string `toml:"column"`    // "" | filter | slow | enabled | hitcount | lasthit
	Direction string `toml:"direction"` // natural | ascending | descending
}

type KeyConfig struct {
	Accelerator Accelerator `toml:"accelerator"`
	Insert      string      `toml:"insert"`
	Edit        string      `toml:"edit"`
	Delete      string      `toml:"delete"`
	ToggleRow   string      `toml:"toggle_row"`
	Copy        string      `toml:"copy"`
	Columns     string      `toml:"columns"`
}

type ConfirmConfig struct {
	BulkDelete bool `toml:"bulk_delete"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".filterdeck/log",
			},
		},
		Columns: ColumnsConfig{
			Filter:   true,
			Slow:     true,
			Enabled:  true,
			HitCount: true,
			LastHit:  false,
		},
		Sort: SortConfig{
			Direction: "natural",
		},
		Keys: KeyConfig{
			Accelerator: AcceleratorAuto,
		},
		Confirm: ConfirmConfig{
			BulkDelete: true,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if _, err := log.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	switch strings.TrimSpace(strings.ToLower(c.Sort.Column)) {
	case "", "filter", "slow", "enabled", "hitcount", "lasthit":
	default:
		return fmt.Errorf("invalid sort.column: %q", c.Sort.Column)
	}
	switch strings.TrimSpace(strings.ToLower(c.Sort.Direction)) {
	case "", "natural", "ascending", "descending":
	default:
		return fmt.Errorf("invalid sort.direction: %q", c.Sort.Direction)
	}

	switch c.Keys.Accelerator {
	case AcceleratorAuto, AcceleratorCtrl, AcceleratorMeta, AcceleratorAlt:
	default:
		return fmt.Errorf("invalid keys.accelerator: %q", c.Keys.Accelerator)
	}
	// Plain space always toggles the disabled flag of the selected filters.
	for _, kb := range []struct{ name, raw string }{
		{"insert", c.Keys.Insert},
		{"edit", c.Keys.Edit},
		{"delete", c.Keys.Delete},
		{"toggle_row", c.Keys.ToggleRow},
		{"copy", c.Keys.Copy},
		{"columns", c.Keys.Columns},
	} {
		if isSpaceKey(kb.raw) {
			return fmt.Errorf("invalid keys.%s: space is reserved for enable/disable", kb.name)
		}
	}

	if !c.Columns.Filter && !c.Columns.Slow && !c.Columns.Enabled && !c.Columns.HitCount && !c.Columns.LastHit {
		return errors.New("columns: at least one column must be visible")
	}

	return nil
}

// isSpaceKey reports whether a configured key names the space bar.
func isSpaceKey(raw string) bool {
	return raw == " " || strings.EqualFold(strings.TrimSpace(raw), "space")
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
