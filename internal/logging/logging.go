// Package logging provides application-wide logging configuration.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Format selects the log encoding.
type Format string

// Log formats.
const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var debugEnabled bool

// Init initializes the global logger on stderr. stdout stays free for command
// output and the MCP stdio transport.
func Init(debug bool, format Format) {
	InitWriter(os.Stderr, debug, format)
}

// InitWriter initializes the global logger on w.
func InitWriter(w io.Writer, debug bool, format Format) {
	debugEnabled = debug
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if format == FormatJSON {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	})
}

// DebugEnabled reports whether debug logging is enabled.
func DebugEnabled() bool {
	return debugEnabled
}
