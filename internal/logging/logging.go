// Package logging builds the zerolog logger shared by the publisher and the emulator.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to out at the given level. format "json" writes one JSON object
// per line; anything else uses the human-readable console writer. An unknown level falls back
// to info and is reported on the returned logger.
func New(level, format string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	w := out
	if !strings.EqualFold(strings.TrimSpace(format), "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		logger.Warn().Str("provided_level", level).Msg("invalid log level, defaulting to info")
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
