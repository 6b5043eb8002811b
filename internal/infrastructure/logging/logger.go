// Package logging provides structured logging for the Venue Edge Gateway.
//
// It wraps log/slog with default service attributes so every line carries the
// service name, version, and venue ID regardless of which component emitted it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/platefront/edge-gateway/internal/infrastructure/config"
)

// Logger wraps slog.Logger with gateway-specific default attributes.
//
// All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from the logging configuration.
//
// Format "text" produces human-readable output for development; anything else
// produces JSON for log shipping. Output is stdout unless "stderr" is set.
func New(cfg config.LoggingConfig, version, venueID string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	attrs := []slog.Attr{
		slog.String("service", "edge-gateway"),
		slog.String("version", version),
	}
	if venueID != "" {
		attrs = append(attrs, slog.String("venue_id", venueID))
	}
	handler = handler.WithAttrs(attrs)

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel converts a string log level to slog.Level.
// Unrecognised values default to info.
func parseLevel(level string) slog.Level {
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

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	queueLog := logger.With("component", "queue")
//	queueLog.Info("pass complete") // includes component=queue
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default creates a logger for use before configuration is loaded.
// It writes JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev", "")
}
