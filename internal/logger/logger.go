// ABOUTME: Structured logging configuration using log/slog.
// ABOUTME: Builds stderr loggers for commands and a file-backed debug log for the TUI.

package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DebugLogFile is the log file name inside the config directory.
const DebugLogFile = "debug.log"

// New builds a logger writing to w.
// level: debug, info, warn, error (default: info)
// format: text, json (default: text)
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init configures the default slog logger to write to stderr and returns it.
func Init(level, format string) *slog.Logger {
	log := New(os.Stderr, level, format)
	slog.SetDefault(log)
	return log
}

// OpenFile builds a logger appending to debug.log in configDir. The TUI owns the
// terminal, so its logs go here. If configDir is empty, logs are discarded.
// The returned close func is never nil.
func OpenFile(configDir, level, format string) (*slog.Logger, func() error, error) {
	if configDir == "" {
		return Discard(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return Discard(), func() error { return nil }, err
	}

	f, err := os.OpenFile(filepath.Join(configDir, DebugLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return Discard(), func() error { return nil }, err
	}

	return New(f, level, format), f.Close, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
