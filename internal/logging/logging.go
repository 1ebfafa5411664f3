package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level maps a LOG_LEVEL value to a slog level, falling back to def.
func Level(v string, def slog.Level) slog.Level {
	switch v {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return def
}

// New builds a logger writing to w. Production gets JSON records.
func New(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init installs the process-wide logger and returns it.
func Init(def slog.Level, json bool) *slog.Logger {
	level := Level(os.Getenv("LOG_LEVEL"), def)
	logger := New(os.Stderr, level, json)
	slog.SetDefault(logger)
	return logger
}
