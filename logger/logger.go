// Package logger builds the structured logger handed to every component.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup returns a JSON logger on stderr at the given level and installs it
// as the slog default. Unknown levels fall back to info with a warning.
func Setup(level string) *slog.Logger {
	return New(os.Stderr, level)
}

// New is Setup writing to w.
func New(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	known := true
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
		known = false
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	if !known {
		logger.Warn("invalid log level configured, using default level",
			"configured_level", level,
			"default_level", "info")
	}
	return logger
}

// Discard is a logger for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
