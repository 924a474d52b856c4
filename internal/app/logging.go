package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/config"
)

// NewLogger opens the configured log file and returns a logger writing to
// it. The TUI owns the terminal, so only headless modes set console, which
// mirrors records to stderr in human-readable form. The returned func
// closes the file.
func NewLogger(cfg config.Config, console bool) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	var out io.Writer = file
	if console {
		out = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, file.Close, nil
}
