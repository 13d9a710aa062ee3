// Package log provides the logging interface used by the netsock
// library. The library defaults to a silent logger (NopLogger) so that
// embedding applications keep control of their own output; inject a
// StdLogger or a custom implementation to see socket diagnostics.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug is for descriptor-level tracing.
	LevelDebug Level = iota
	// LevelInfo is for lifecycle information (listen, accept, connect).
	LevelInfo
	// LevelWarn is for recoverable conditions (dropped events, retries).
	LevelWarn
	// LevelError is for failed system calls.
	LevelError
	// LevelSilent disables all output.
	LevelSilent
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging interface consumed by the library.
// Implementations must be safe for concurrent use; socket I/O threads
// log directly.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NopLogger discards all messages. It is the library default.
type NopLogger struct{}

func (NopLogger) Debug(format string, args ...interface{}) {}
func (NopLogger) Info(format string, args ...interface{})  {}
func (NopLogger) Warn(format string, args ...interface{})  {}
func (NopLogger) Error(format string, args ...interface{}) {}

// Nop returns a NopLogger.
func Nop() Logger {
	return NopLogger{}
}

// StdLogger writes timestamped, level-filtered lines to an io.Writer.
type StdLogger struct {
	mu     sync.Mutex
	writer io.Writer
	level  Level
	prefix string
}

// Option configures a StdLogger.
type Option func(*StdLogger)

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(l *StdLogger) { l.writer = w }
}

// WithLevel sets the minimum level that is written.
func WithLevel(level Level) Option {
	return func(l *StdLogger) { l.level = level }
}

// WithPrefix sets the per-line prefix.
func WithPrefix(prefix string) Option {
	return func(l *StdLogger) { l.prefix = prefix }
}

// NewStdLogger creates a StdLogger writing to os.Stderr at Info level.
func NewStdLogger(opts ...Option) *StdLogger {
	l := &StdLogger{
		writer: os.Stderr,
		level:  LevelInfo,
		prefix: "[netsock]",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *StdLogger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	if l.prefix != "" {
		fmt.Fprintf(l.writer, "%s %s %s %s\n", timestamp, l.prefix, level.String(), msg)
	} else {
		fmt.Fprintf(l.writer, "%s %s %s\n", timestamp, level.String(), msg)
	}
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *StdLogger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}
