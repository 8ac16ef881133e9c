package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a JSON logger on stdout at the given level
func NewLogger(level string) *slog.Logger {
	return New(os.Stdout, level)
}

// New creates a JSON logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: strings.EqualFold(level, "debug"),
	})
	return slog.New(handler)
}

// ParseLevel maps debug/info/warn/error (any case) to a slog level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
