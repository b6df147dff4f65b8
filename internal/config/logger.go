package config

import (
	"log/slog"
	"os"
)

// SetupLogger configures and returns the structured logger. Level and format
// come from LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and LOG_FORMAT (json, text);
// JSON is the default for production.
func SetupLogger() *slog.Logger {
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
