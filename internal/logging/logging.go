// Package logging builds the process-wide zerolog.Logger, constructed once
// at startup and passed down explicitly (never accessed via an ambient
// global), per the design notes against global mutable state.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger in JSON (structured) mode when production is true,
// or zerolog's human-readable console writer otherwise.
func New(production bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if production {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(console).With().Timestamp().Logger()
}
