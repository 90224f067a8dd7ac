// Package logging builds the slog logger shared across the service.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a text-handler logger at the given level. Unknown levels fall
// back to info.
func New(level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
