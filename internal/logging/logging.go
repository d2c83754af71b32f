package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Init builds the process logger and installs it as the slog default.
// format is "text" or "json"; level is debug, info, warn or error.
func Init(w io.Writer, format, level string) *slog.Logger {
	var h slog.Handler
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
