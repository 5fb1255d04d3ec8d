// Package log wires the proxy's structured logging, following
// always-cache's pattern of a single configured zerolog.Logger passed
// down to callers rather than used as an ambient package global
// everywhere.
package log

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a logger writing to stdout: console-pretty when stdout is
// a terminal, JSON otherwise. verbose selects debug level; the default
// is info.
func New(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if isTerminal(os.Stdout) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
