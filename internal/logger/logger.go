// Package logger is the small logging seam shared by hop's packages.
// Commands print their results on stdout (possibly as JSON), so everything
// logged here goes to stderr.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger accepts printf-style messages at four levels.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes to stderr. Debug output only appears when HOP_DEBUG is
// set; the check happens per call so tests can flip the variable.
type envLogger struct {
	prefix string
	out    *log.Logger
}

// NewEnvLogger creates a stderr logger with a component prefix
// (e.g., "[cache]") whose debug level is gated on HOP_DEBUG.
func NewEnvLogger(prefix string) Logger {
	if prefix != "" {
		prefix += " "
	}
	return &envLogger{
		prefix: prefix,
		out:    log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if os.Getenv("HOP_DEBUG") != "" {
		l.out.Printf(l.prefix+format, args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.out.Printf(l.prefix+format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.out.Printf(l.prefix+"WARN: "+format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.out.Printf(l.prefix+"ERROR: "+format, args...)
}

type noopLogger struct{}

// Noop returns a logger that discards everything.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage is one captured log line.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures messages so tests can assert on them.
type BufferLogger struct {
	Messages []LogMessage
}

// NewBufferLogger creates an empty capturing logger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{Messages: make([]LogMessage, 0)}
}

func (l *BufferLogger) capture(level, format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.capture("debug", format, args...)
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.capture("info", format, args...)
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.capture("warn", format, args...)
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.capture("error", format, args...)
}

// HasLevel reports whether any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}

var defaultLogger = NewEnvLogger("")

// Default returns the package-level logger, an unprefixed env logger.
func Default() Logger {
	return defaultLogger
}

// SetDefault replaces the package-level logger.
func SetDefault(l Logger) {
	defaultLogger = l
}
