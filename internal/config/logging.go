package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger opens the log file under the config directory and returns a
// logger writing to it. The TUI owns the terminal, so logs never go to
// stdout or stderr. The returned closer flushes the file on shutdown.
func NewLogger(cfg Config) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if level == zerolog.Disabled {
		return zerolog.Nop(), nopCloser{}, nil
	}

	if _, err := EnsureConfigDir(); err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	logPath, err := GetLogPath()
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := zerolog.New(file).Level(level).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
	return logger, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
