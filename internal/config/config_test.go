package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BackendURL != DefaultBackendURL {
		t.Errorf("backend url = %q, want %q", cfg.BackendURL, DefaultBackendURL)
	}
	if cfg.StreamIdleTimeout != 90 {
		t.Errorf("stream idle timeout = %d, want 90", cfg.StreamIdleTimeout)
	}
	if !cfg.Markdown.EnableEmoji {
		t.Error("default markdown config should enable emoji")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.BackendURL = "http://backend.internal:9000"
	cfg.LogLevel = "debug"
	cfg.Markdown.Style = "light"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.BackendURL != cfg.BackendURL {
		t.Errorf("backend url = %q, want %q", loaded.BackendURL, cfg.BackendURL)
	}
	if loaded.LogLevel != "debug" || loaded.Markdown.Style != "light" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestLoadConfigCorruptFileFallsBack(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".agentdeck")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err == nil {
		t.Error("expected an error for corrupt config")
	}
	if cfg.BackendURL != DefaultBackendURL {
		t.Errorf("corrupt config should fall back to defaults, got %q", cfg.BackendURL)
	}
}

func TestResolveBackendURLPrecedence(t *testing.T) {
	t.Setenv(EnvBackendURL, "")

	cfg := Config{BackendURL: "http://from-config:8000"}
	if got := ResolveBackendURL(cfg); got != "http://from-config:8000" {
		t.Errorf("config value should win when env is empty, got %q", got)
	}

	t.Setenv(EnvBackendURL, "http://from-env:8000")
	if got := ResolveBackendURL(cfg); got != "http://from-env:8000" {
		t.Errorf("env should win over config, got %q", got)
	}

	if got := ResolveBackendURL(Config{}); got != "http://from-env:8000" {
		t.Errorf("env should win over default, got %q", got)
	}

	t.Setenv(EnvBackendURL, "")
	if got := ResolveBackendURL(Config{}); got != DefaultBackendURL {
		t.Errorf("empty everything should use the default, got %q", got)
	}
}

func TestNewLoggerDisabled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.LogLevel = "disabled"

	logger, closer, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer closer.Close()

	logger.Info().Msg("dropped")

	logPath, _ := GetLogPath()
	if _, err := os.Stat(logPath); err == nil {
		t.Error("disabled logging should not create the log file")
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	logger, closer, err := NewLogger(DefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info().Str("component", "test").Msg("hello")
	closer.Close()

	logPath, _ := GetLogPath()
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
