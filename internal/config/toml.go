// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Convert ConvertConfig `toml:"convert"`
	Show    ShowConfig    `toml:"show"`
	Detect  DetectConfig  `toml:"detect"`
	Output  OutputConfig  `toml:"output"`
	History HistoryConfig `toml:"history"`
}

// ConvertConfig maps conversion settings.
type ConvertConfig struct {
	Format    *string `toml:"format"`
	Suffix    *string `toml:"suffix"`
	Overwrite *bool   `toml:"overwrite"`
}

// ShowConfig maps listing settings.
type ShowConfig struct {
	Stat  *bool `toml:"stat"`
	Align *bool `toml:"align"`
}

// DetectConfig maps detection settings.
type DetectConfig struct {
	Threshold *float64 `toml:"threshold"`
}

// OutputConfig maps terminal output settings.
type OutputConfig struct {
	Color *bool `toml:"color"`
}

// HistoryConfig maps run history settings.
type HistoryConfig struct {
	Enabled *bool `toml:"enabled"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if t := cfg.Detect.Threshold; t != nil && (*t <= 0 || *t > 1) {
		return FileConfig{}, fmt.Errorf("detect.threshold must be in (0, 1], got %v", *t)
	}
	return cfg, nil
}

// Template returns the commented default config written by `txtconv config`.
func Template() string {
	return `# txtconv configuration
# Command-line flags override values set here.

[convert]
# Target format for --format: UTF8, UTF8BOM, UTF8WBOM, ANSI, ISO8859_2, UTF16LE, UTF16BE.
# format = "UTF8"
# Suffix appended to converted file names when --suffix is not given.
# suffix = "UTF8"
# overwrite = false

[show]
# Print size and date per file with subtotals (--stat).
# stat = false
# Align the listing into columns (--rem).
# align = false

[detect]
# Minimum detector confidence to trust its guess without fallback checks.
# threshold = 0.8

[output]
# color = true

[history]
# Record each run in the history database.
# enabled = true
`
}
