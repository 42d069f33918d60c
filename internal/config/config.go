// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// companion client.
//
// Configuration sources, in order of precedence:
//   - environment variables (COMPANION_SERVER_URL, COMPANION_LANGUAGE)
//   - ~/.companion/config.toml
//   - built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/companion-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete companion client configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `toml:"server"`

	// Language is the active answer language: "pl", "en", or "de".
	Language string `toml:"language"`

	// DataDir holds the visitor id and the conversation database.
	// Empty means ~/.companion.
	DataDir string `toml:"data_dir"`

	// Reveal configures the word-by-word answer pacing.
	Reveal RevealConfig `toml:"reveal"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig points the client at the companion backend.
type ServerConfig struct {
	// BaseURL is the backend root, without a trailing slash.
	BaseURL string `toml:"base_url"`
}

// RevealConfig sets the reveal animation's pacing envelope.
type RevealConfig struct {
	// FastDelayMs is the per-word delay at the start of a reveal.
	FastDelayMs int `toml:"fast_delay_ms"`
	// SlowDelayMs is the per-word delay the pacing eases toward.
	SlowDelayMs int `toml:"slow_delay_ms"`
}

// UIConfig contains presentation options.
type UIConfig struct {
	// ShowDebugPanel opens the pipeline telemetry panel at startup.
	ShowDebugPanel bool `toml:"show_debug_panel"`
	// ShowSources renders source citations under assistant answers.
	ShowSources bool `toml:"show_sources"`
	// Theme selects the color theme: "dark" or "light".
	Theme string `toml:"theme"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "https://api.companion.example.com",
		},
		Language: "pl",
		Reveal: RevealConfig{
			FastDelayMs: 18,
			SlowDelayMs: 90,
		},
		UI: UIConfig{
			ShowSources: true,
			Theme:       "dark",
		},
	}
}

// Dir returns the companion config/data directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".companion"
	}
	return filepath.Join(home, ".companion")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file, fills defaults, applies environment
// overrides, and validates. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom loads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COMPANION_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("COMPANION_LANGUAGE"); v != "" {
		c.Language = v
	}
}

// Validate checks the configuration and normalizes what it can.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server base_url: %q", c.Server.BaseURL)
	}
	if c.DataDir == "" {
		c.DataDir = Dir()
	}
	if c.Reveal.FastDelayMs <= 0 {
		c.Reveal.FastDelayMs = Default().Reveal.FastDelayMs
	}
	if c.Reveal.SlowDelayMs < c.Reveal.FastDelayMs {
		c.Reveal.SlowDelayMs = c.Reveal.FastDelayMs
	}
	if c.Theme() != "dark" && c.Theme() != "light" {
		c.UI.Theme = "dark"
	}
	return nil
}

// Theme returns the configured theme name.
func (c *Config) Theme() string {
	return c.UI.Theme
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to its default location atomically.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0644)
}
