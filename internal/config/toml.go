// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Session SessionConfig `toml:"session"`
	Feed    FeedConfig    `toml:"feed"`
	Log     LogConfig     `toml:"log"`
}

// SessionConfig maps detector and history settings.
type SessionConfig struct {
	RequireShot  *bool `toml:"require-shot"`
	ShotWindowMs *int  `toml:"shot-window-ms"`
	History      *bool `toml:"history"`
}

// FeedConfig maps input source settings.
type FeedConfig struct {
	Source         *string `toml:"source"`
	Listen         *string `toml:"listen"`
	File           *string `toml:"file"`
	DemoIntervalMs *int    `toml:"demo-interval-ms"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
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
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
