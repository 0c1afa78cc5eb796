// Package logging builds the process-wide slog.Logger from a LogLevel,
// colorized for an interactive terminal via lmittmann/tint. Every
// component constructor takes the resulting *slog.Logger as a parameter
// rather than reaching for a package-level global, so tests can inject
// a discard logger instead.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/fnecore/corehost/internal/config"
	"github.com/lmittmann/tint"
)

// New builds a tint-backed slog.Logger at the given level. Warn and
// Error route to stderr so operators watching `2>&1 | grep ERROR` in a
// systemd journal see them without scanning stdout.
func New(level config.LogLevel) *slog.Logger {
	switch level {
	case config.LogLevelDebug:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
}

// Discard returns a logger that drops every record, for use in tests
// that don't assert on log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
