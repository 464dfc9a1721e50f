// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
// Everything logs to stderr: stdout belongs to the IPC protocol.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New derives a prefixed logger from the current default, so it shares the
// level, format and timestamp settings applied by Setup.
func New(prefix string) *log.Logger {
	return log.Default().WithPrefix(prefix)
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// ParseFormatter maps "text", "json" or "logfmt" to a formatter; anything else is text.
func ParseFormatter(name string) log.Formatter {
	switch strings.ToLower(name) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	}
	return log.TextFormatter
}

// Setup points the package-level logger at stderr with the given level and format.
// Unknown level names fall back to warn.
func Setup(level, format string, timestamps bool) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	log.SetDefault(NewWithConfig(os.Stderr, "", lvl, false, timestamps, ParseFormatter(format)))
}
