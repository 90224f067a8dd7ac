package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := levelFromString(tc.in); got != tc.want {
			t.Errorf("levelFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew(t *testing.T) {
	logger := New("debug")
	if logger == nil {
		t.Fatal("New returned nil")
	}
	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug logger should have debug enabled")
	}
	if New("error").Enabled(ctx, slog.LevelInfo) {
		t.Error("error logger should not have info enabled")
	}
}
