// Package logging is a small facade between the library packages and
// whatever log backend the host program runs. Components take a Logger at
// construction; binaries install a backend once with SetGlobalLogger and
// everything built afterwards inherits it. Without a backend the facade is
// silent, which keeps library tests quiet.
package logging

import "strings"

// Fields carries structured key/value context for a log line
type Fields map[string]any

// Logger is the interface library code logs through
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)

	// WithFields returns a child logger with the fields preset
	WithFields(fields Fields) Logger
}

// Level is a minimum-severity threshold for backends that filter
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a level name to a Level, case-insensitively. Unknown
// names fall back to InfoLevel.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var global Logger = nopLogger{}

// SetGlobalLogger installs the backend WithFields hands out from now on.
// Passing nil silences the facade again.
func SetGlobalLogger(logger Logger) {
	if logger == nil {
		global = nopLogger{}
		return
	}
	global = logger
}

// WithFields returns a child of the installed backend with the fields
// preset. Components call this once at construction, so each component
// snapshots whatever backend was installed when it was built.
func WithFields(fields Fields) Logger {
	return global.WithFields(fields)
}

// nopLogger drops everything. It is the default until a backend is
// installed.
type nopLogger struct{}

func (nopLogger) Debug(string, ...Fields)        {}
func (nopLogger) Info(string, ...Fields)         {}
func (nopLogger) Warn(string, ...Fields)         {}
func (nopLogger) Error(error, string, ...Fields) {}
func (nopLogger) WithFields(Fields) Logger       { return nopLogger{} }
