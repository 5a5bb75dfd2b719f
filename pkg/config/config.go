// Package config loads facepaint settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/chazu/facepaint/pkg/command"
	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/partition"
)

// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("config: unknown format")

// Config is the full set of tunables.
type Config struct {
	Brush     Brush              `yaml:"brush" toml:"brush"`
	Partition partition.Settings `yaml:"partition" toml:"partition"`
	Geometry  Geometry           `yaml:"geometry" toml:"geometry"`
	History   History            `yaml:"history" toml:"history"`
	// Palette overrides the model palette, as "#RRGGBB" strings.
	Palette []string `yaml:"palette" toml:"palette"`
	Log     Log      `yaml:"log" toml:"log"`
}

// Brush holds defaults for paint scripts.
type Brush struct {
	Color int `yaml:"color" toml:"color"`
	// Join merges consecutive compatible strokes into one undo step.
	Join bool `yaml:"join" toml:"join"`
}

type Geometry struct {
	Workers          int `yaml:"workers" toml:"workers"`
	ReconcileRetries int `yaml:"reconcile_retries" toml:"reconcile_retries"`
}

type History struct {
	SnapshotFrequency int `yaml:"snapshot_frequency" toml:"snapshot_frequency"`
}

type Log struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	g := geometry.DefaultSettings()
	return Config{
		Brush:     Brush{Join: true},
		Partition: g.Partition,
		Geometry:  Geometry{Workers: g.Workers, ReconcileRetries: g.ReconcileRetries},
		History:   History{SnapshotFrequency: command.DefaultSnapshotFrequency},
		Log:       Log{Level: "info"},
	}
}

// Load reads path, choosing the format by extension. Unset keys keep their
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format ("yaml", "yml" or "toml") over the
// defaults and validates the result. Unknown keys are rejected.
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF; keep the defaults.
		if err := dec.Decode(&cfg); err != nil && len(bytes.TrimSpace(data)) > 0 {
			return Config{}, err
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Brush.Color < 0 || c.Brush.Color >= geometry.MaxPaletteColors {
		errs = append(errs, fmt.Errorf("brush.color %d out of range [0, %d)", c.Brush.Color, geometry.MaxPaletteColors))
	}
	if c.Partition.VerticesPerUnit <= 0 {
		errs = append(errs, fmt.Errorf("partition.vertices_per_unit must be positive"))
	}
	if c.Partition.MinCircleVertices < 3 {
		errs = append(errs, fmt.Errorf("partition.min_circle_vertices must be at least 3"))
	}
	if c.Geometry.Workers < 1 {
		errs = append(errs, fmt.Errorf("geometry.workers must be at least 1"))
	}
	if c.Geometry.ReconcileRetries < 1 {
		errs = append(errs, fmt.Errorf("geometry.reconcile_retries must be at least 1"))
	}
	if c.History.SnapshotFrequency < 1 {
		errs = append(errs, fmt.Errorf("history.snapshot_frequency must be at least 1"))
	}
	if len(c.Palette) > geometry.MaxPaletteColors {
		errs = append(errs, fmt.Errorf("palette has %d colors, at most %d", len(c.Palette), geometry.MaxPaletteColors))
	}
	for _, s := range c.Palette {
		if _, err := geometry.ParseColor(s); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GeometrySettings assembles the model settings.
func (c Config) GeometrySettings() geometry.Settings {
	return geometry.Settings{
		Partition:        c.Partition,
		Workers:          c.Geometry.Workers,
		ReconcileRetries: c.Geometry.ReconcileRetries,
	}
}

// BrushColor returns the default script color.
func (c Config) BrushColor() kernel.ColorID { return kernel.ColorID(c.Brush.Color) }

// PaletteColors parses Palette. It returns nil when no override is set.
func (c Config) PaletteColors() ([]geometry.Color, error) {
	if len(c.Palette) == 0 {
		return nil, nil
	}
	out := make([]geometry.Color, len(c.Palette))
	for i, s := range c.Palette {
		col, err := geometry.ParseColor(s)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}

// SlogLevel maps Level onto a slog level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
