package logging

import (
	"maps"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus logger to the library Logger interface so the
// binaries can emit structured JSON while library code keeps logging through
// the package-level functions.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps an existing logrus logger. A nil base gets a fresh
// logrus.New() with its defaults.
func NewLogrusLogger(base *logrus.Logger) *LogrusLogger {
	if base == nil {
		base = logrus.New()
	}
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *LogrusLogger) withMerged(fields []Fields) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	merged := make(logrus.Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return l.entry.WithFields(merged)
}

func (l *LogrusLogger) Debug(msg string, fields ...Fields) {
	l.withMerged(fields).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields ...Fields) {
	l.withMerged(fields).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields ...Fields) {
	l.withMerged(fields).Warn(msg)
}

func (l *LogrusLogger) Error(err error, msg string, fields ...Fields) {
	l.withMerged(fields).WithError(err).Error(msg)
}

func (l *LogrusLogger) WithFields(fields Fields) Logger {
	merged := make(logrus.Fields, len(fields))
	maps.Copy(merged, logrus.Fields(fields))
	return &LogrusLogger{entry: l.entry.WithFields(merged)}
}

// SetLevel adjusts the minimum severity on the underlying logrus logger
func (l *LogrusLogger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}
