package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/gaze/server/attention"
)

type Camera struct {
	ID   int64  `json:"id"`   // Unique camera id, referenced by the API and the stats DB
	Name string `json:"name"` // Friendly name
}

type Config struct {
	Cameras       []Camera            `json:"cameras"`       // The cameras
	HTTPPort      int                 `json:"httpPort"`      // Port for the HTTP API. Default 8080
	StatsDB       string              `json:"statsDB"`       // Path to the sqlite attention stats database. Default "gaze.sqlite"
	AttentionTune *attention.Settings `json:"attentionTune"` // Optional analysis tuning. nil means defaults
}

func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		filename = "gaze.json"
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
	}
	cfg.applyDefaults()
	if cfg.AttentionTune != nil {
		if err := cfg.AttentionTune.Validate(); err != nil {
			return nil, fmt.Errorf("Invalid attentionTune in %v: %w", filename, err)
		}
	}
	return cfg, nil
}

// Default returns a config with all defaults applied, for running without a
// config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.StatsDB == "" {
		c.StatsDB = "gaze.sqlite"
	}
}

// AttentionSettings returns the tuned analysis settings, or the defaults
func (c *Config) AttentionSettings() attention.Settings {
	if c.AttentionTune != nil {
		return *c.AttentionTune
	}
	return attention.DefaultSettings()
}
