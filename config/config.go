// Package config holds the settings of the gemi command line tool.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
)

// Environment variables that override file and default settings.
const (
	EnvLimit   = "GEMI_LIMIT"
	EnvStep    = "GEMI_STEP"
	EnvColor   = "GEMI_COLOR"
	EnvHistory = "GEMI_HISTORY"
	EnvPrompt  = "GEMI_PROMPT"
	EnvNoColor = "NO_COLOR"
)

// Config holds exploration and interactive-mode settings.
type Config struct {
	// Limit is the maximum number of encodings printed per format when
	// exploring. Default: 32.
	Limit int `json:"limit"`

	// Step is the stride used when sweeping fields wider than two bits.
	// Default: 4.
	Step int `json:"step"`

	// Color enables ANSI colouring of bit strings. Default: true.
	Color bool `json:"color"`

	// HistoryFile is where the interactive shell keeps its history. Empty
	// disables history.
	HistoryFile string `json:"history_file"`

	// Prompt is the interactive shell prompt. Default: "GEMi> ".
	Prompt string `json:"prompt"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Limit:  32,
		Step:   4,
		Color:  true,
		Prompt: "GEMi> ",
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from GEMI_* environment variables. NO_COLOR
// disables colour regardless of GEMI_COLOR. The environment is re-read on
// every call.
func (c *Config) ApplyEnv() {
	env.Load()
	c.Limit = env.Int(EnvLimit, c.Limit)
	c.Step = env.Int(EnvStep, c.Step)
	if env.Has(EnvColor) {
		c.Color = env.Bool(EnvColor)
	}
	if env.Has(EnvNoColor) {
		c.Color = false
	}
	c.HistoryFile = env.Str(EnvHistory, c.HistoryFile)
	c.Prompt = env.Str(EnvPrompt, c.Prompt)
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be > 0")
	}
	if c.Step <= 0 {
		return fmt.Errorf("step must be > 0")
	}
	if c.Prompt == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
