package observability

import (
	"io"
	"log/slog"
	"os"
)

// LoggerOptions selects the handler format and level for NewLogger.
type LoggerOptions struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Out    io.Writer
}

// NewLogger builds a slog.Logger from the configured level and format.
// Diagnostics go to stderr so table output on stdout stays clean.
func NewLogger(opts LoggerOptions) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var level slog.Level
	switch opts.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	hopts := &slog.HandlerOptions{Level: level}
	if opts.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, hopts))
	}
	return slog.New(slog.NewTextHandler(out, hopts))
}
