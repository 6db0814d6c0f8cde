// Package logging builds the process slog logger from LogConfig.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kidventure/kidventure/internal/platform/config"
)

// New returns a logger writing to w (stdout when nil) with the configured
// level and format. Unknown levels fall back to info.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// Setup builds the logger and installs it as the slog default.
func Setup(cfg config.LogConfig) *slog.Logger {
	logger := New(cfg, nil)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) slog.Level {
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
