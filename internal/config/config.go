// Package config handles user configuration for agentdeck.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultBackendURL is used when neither the environment nor the config file
// names a backend.
const DefaultBackendURL = "http://localhost:8000"

// EnvBackendURL overrides the configured backend base URL.
const EnvBackendURL = "AGENTDECK_BACKEND_URL"

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`             // "dark", "light", "auto", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`      // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"` // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`        // Enable word wrap in table cells
}

// Config represents the user configuration
type Config struct {
	// BackendURL is the base URL of the agent backend.
	BackendURL string `json:"backend_url"`
	// StreamIdleTimeout is the number of seconds a stream may stay silent
	// before the turn is abandoned. Default is 90.
	StreamIdleTimeout int `json:"stream_idle_timeout"`
	// Timeout is the number of seconds allowed for non-streaming calls.
	Timeout int `json:"timeout"`
	// LogLevel controls file logging: "debug", "info", "warn", "error" or
	// "disabled".
	LogLevel        string         `json:"log_level"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	TUITheme        string         `json:"tui_theme,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BackendURL:        DefaultBackendURL,
		StreamIdleTimeout: 90,
		Timeout:           30,
		LogLevel:          "info",
		CopyToClipboard:   false,
		TUITheme:          "dark",
		Markdown:          DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".agentdeck"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the path to the log file
func GetLogPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "agentdeck.log"), nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveBackendURL picks the backend base URL. Precedence: process
// environment, then a .env file in the working directory, then the config
// file, then the default. godotenv never overwrites variables already set.
func ResolveBackendURL(cfg Config) string {
	_ = godotenv.Load()

	if url := os.Getenv(EnvBackendURL); url != "" {
		return url
	}
	if cfg.BackendURL != "" {
		return cfg.BackendURL
	}
	return DefaultBackendURL
}
