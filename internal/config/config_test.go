package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.RequireShot != nil || cfg.Feed.Source != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `[session]
require-shot = false
shot-window-ms = 250

[feed]
source = "stdin"
listen = "0.0.0.0:9000"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.RequireShot == nil || *cfg.Session.RequireShot {
		t.Fatalf("expected require-shot false")
	}
	if cfg.Session.ShotWindowMs == nil || *cfg.Session.ShotWindowMs != 250 {
		t.Fatalf("unexpected shot window: %v", cfg.Session.ShotWindowMs)
	}
	if cfg.Session.History != nil {
		t.Fatalf("expected unset history")
	}
	if *cfg.Feed.Source != "stdin" || *cfg.Feed.Listen != "0.0.0.0:9000" || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[session\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("STRAFEVAL_LISTEN=127.0.0.1:7000\nSTRAFEVAL_SOURCE=demo\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvListen, "")
	t.Setenv(EnvSource, "")
	t.Setenv(EnvLogLevel, "warn")
	// Empty values count as set for godotenv, so clear them first.
	_ = os.Unsetenv(EnvListen)
	_ = os.Unsetenv(EnvSource)

	if err := LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("load env: %v", err)
	}
	source := "ws"
	cfg := FileConfig{Feed: FeedConfig{Source: &source}}
	ApplyEnv(&cfg)
	if *cfg.Feed.Listen != "127.0.0.1:7000" || *cfg.Feed.Source != "demo" || *cfg.Log.Level != "warn" {
		t.Fatalf("unexpected overrides: listen=%v source=%v level=%v", *cfg.Feed.Listen, *cfg.Feed.Source, *cfg.Log.Level)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "strafeval", "config.toml") {
		t.Fatalf("unexpected config path: %s", got)
	}
	if got := DefaultEnvPath(); got != filepath.Join("/cfg", "strafeval", ".env") {
		t.Fatalf("unexpected env path: %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "strafeval", "strafeval.db") {
		t.Fatalf("unexpected db path: %s", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/data", "strafeval", "strafeval.log") {
		t.Fatalf("unexpected log path: %s", got)
	}
}
