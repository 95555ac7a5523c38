// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package log configures the global zerolog logger for the CLI.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Debug enables debug-level output;
// otherwise only warnings and errors are shown so command output stays
// clean. Logs go to stderr as human-readable console lines since this is
// an interactive tool, not a service.
func Setup(debug bool, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Logger()
}
