// Package logger configures log/slog for the rtcheck CLI.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects the handler. Empty fields fall back to LOG_LEVEL and
// LOG_FORMAT, then to info and text.
type Options struct {
	Level  string
	Format string
	Writer io.Writer
	// NoColor disables ANSI colors in text output.
	NoColor bool
}

// New builds a logger. Text output goes through tint, JSON through the
// standard JSON handler.
func New(opts Options) *slog.Logger {
	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	format := opts.Format
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	if strings.ToLower(format) == FormatJSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      ParseLevel(level),
			TimeFormat: "15:04:05",
			NoColor:    opts.NoColor,
		})
	}
	return slog.New(handler)
}

// Init configures the default slog logger.
func Init(opts Options) *slog.Logger {
	l := New(opts)
	slog.SetDefault(l)
	return l
}

// Discard returns a logger that drops everything, used by quiet runs.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
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
