package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvListen   = "STRAFEVAL_LISTEN"
	EnvSource   = "STRAFEVAL_SOURCE"
	EnvLogLevel = "STRAFEVAL_LOG_LEVEL"
)

// LoadEnv loads the first existing .env file from paths. Variables already
// set in the environment win.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	}
	return nil
}

// ApplyEnv overrides file values with non-empty environment variables.
func ApplyEnv(cfg *FileConfig) {
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Feed.Listen = &v
	}
	if v := os.Getenv(EnvSource); v != "" {
		cfg.Feed.Source = &v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = &v
	}
}
