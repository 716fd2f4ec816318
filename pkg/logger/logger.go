// Package logger is the process-wide leveled logger.
//
// It keeps a small printf-style surface (Tracef..Errorf) so call sites stay
// terse, and exposes WithFields for the few places that want structured
// context such as connection ids.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is the verbosity threshold used by the logger.
//
// Lower values are more verbose.
type Level int

const (
	// LevelTrace enables extremely verbose logs (protocol frames, FSM inputs).
	LevelTrace Level = iota
	// LevelDebug enables verbose logs intended for debugging.
	LevelDebug
	// LevelInfo enables informational logs (default).
	LevelInfo
	// LevelWarn enables only warnings and errors.
	LevelWarn
	// LevelError enables only error logs.
	LevelError
)

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields = logrus.Fields

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l
}

// ParseLevel parses a log level string into a Level.
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelTrace:
		return logrus.TraceLevel
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetOutput replaces the writer used by the global logger.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetLevel sets the global log level threshold.
func SetLevel(level Level) {
	std.SetLevel(level.logrus())
}

// Enabled reports whether a level would be emitted by the current configuration.
func Enabled(level Level) bool {
	return std.IsLevelEnabled(level.logrus())
}

// WithFields returns an entry carrying the given structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// Tracef logs at TRACE level.
func Tracef(format string, args ...any) {
	std.Tracef(format, args...)
}

// Debugf logs at DEBUG level.
func Debugf(format string, args ...any) {
	std.Debugf(format, args...)
}

// Infof logs at INFO level.
func Infof(format string, args ...any) {
	std.Infof(format, args...)
}

// Warnf logs at WARN level.
func Warnf(format string, args ...any) {
	std.Warnf(format, args...)
}

// Errorf logs at ERROR level.
func Errorf(format string, args ...any) {
	std.Errorf(format, args...)
}

// Log emits msg at level with structured fields.
func Log(level Level, fields Fields, msg string) {
	std.WithFields(fields).Log(level.logrus(), msg)
}
