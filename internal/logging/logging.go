// Package logging builds the zerolog loggers injected into the gateway,
// store, usecases and server.
package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a timestamped logger writing JSON lines to w at the given level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Console returns a human-readable logger, used by the interactive commands.
func Console(w io.Writer, level zerolog.Level) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}, level)
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a level.
// Unknown strings default to InfoLevel.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
