// Package config loads the msgbase configuration: the message areas to
// operate on and the tuning knobs of the JAM engine and maintenance jobs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/stlalpha/msgbase/internal/jam"
)

// Area formats.
const (
	AreaTypeJAM     = "jam"
	AreaTypePCBoard = "pcboard"
)

// Validator is implemented by configuration sections that check themselves.
type Validator interface {
	Validate() error
}

// Config is the root configuration.
type Config struct {
	LogLevel    slog.Level        `yaml:"log_level"`
	LogFormat   string            `yaml:"log_format"` // text or json
	Search      SearchConfig      `yaml:"search"`
	Lock        LockConfig        `yaml:"lock"`
	Areas       []AreaConfig      `yaml:"areas"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// SearchConfig tunes the parallel index search.
type SearchConfig struct {
	Workers int `yaml:"workers"` // 0 means one per CPU
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(1024)),
	)
}

// LockConfig holds the .bsy lock timings.
type LockConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Retry      time.Duration `yaml:"retry"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

// Validate validates the lock configuration.
func (c *LockConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Retry, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.StaleAfter, validation.Required, validation.Min(time.Second)),
	)
}

// JAM converts the timings to the engine's lock configuration.
func (c LockConfig) JAM() jam.LockConfig {
	return jam.LockConfig{Timeout: c.Timeout, Retry: c.Retry, StaleAfter: c.StaleAfter}
}

// AreaConfig describes one message area on disk.
type AreaConfig struct {
	Tag      string `yaml:"tag"`
	Name     string `yaml:"name"`
	BasePath string `yaml:"base_path"` // without extension
	Type     string `yaml:"type"`
}

// Validate validates the area configuration.
func (c *AreaConfig) Validate() error {
	if c.Type == "" {
		c.Type = AreaTypeJAM
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Tag, validation.Required, validation.Length(1, 64)),
		validation.Field(&c.BasePath, validation.Required),
		validation.Field(&c.Type, validation.In(AreaTypeJAM, AreaTypePCBoard)),
	)
}

// MaintenanceConfig controls scheduled integrity checks.
type MaintenanceConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Schedule    string `yaml:"schedule"` // cron syntax with seconds
	HistoryPath string `yaml:"history_path"`
}

// Validate validates the maintenance configuration.
func (c *MaintenanceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Schedule, validation.When(c.Enabled, validation.Required)),
	)
}

// Validate validates the whole configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Lock.Validate(); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	seen := make(map[string]bool, len(c.Areas))
	for i := range c.Areas {
		a := &c.Areas[i]
		if err := a.Validate(); err != nil {
			return fmt.Errorf("areas[%d]: %w", i, err)
		}
		key := strings.ToLower(a.Tag)
		if seen[key] {
			return fmt.Errorf("areas[%d]: duplicate tag %q", i, a.Tag)
		}
		seen[key] = true
	}
	if err := c.Maintenance.Validate(); err != nil {
		return fmt.Errorf("maintenance: %w", err)
	}
	return nil
}

// Area returns the area with the given tag, compared case-insensitively.
func (c *Config) Area(tag string) (AreaConfig, bool) {
	for _, a := range c.Areas {
		if strings.EqualFold(a.Tag, tag) {
			return a, true
		}
	}
	return AreaConfig{}, false
}

// AreasOfType returns the areas stored in the given format.
func (c *Config) AreasOfType(typ string) []AreaConfig {
	var out []AreaConfig
	for _, a := range c.Areas {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

// NewDefaultConfig returns a Config with default values and no areas.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:  slog.LevelInfo,
		LogFormat: "text",
		Lock: LockConfig{
			Timeout:    30 * time.Second,
			Retry:      200 * time.Millisecond,
			StaleAfter: 10 * time.Minute,
		},
		Maintenance: MaintenanceConfig{
			Schedule:    "0 0 3 * * *",
			HistoryPath: "data/maintenance_history.json",
		},
	}
}

// Load reads a YAML configuration file over the defaults. Environment
// variables in the file are expanded before parsing. A missing file yields
// the defaults.
func Load(filename string) (*Config, error) {
	cfg := NewDefaultConfig()
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := Parse([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Parse decodes YAML into target and validates it when target implements
// Validator.
func Parse[T any](data []byte, target *T) error {
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
