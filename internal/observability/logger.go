// Package observability defines shared logging primitives.
package observability

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// Logger captures structured logging behaviours shared across layers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key/value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F constructs a logging field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

var (
	loggerMu      sync.RWMutex
	defaultLogger Logger = noopLogger{}
)

// SetLogger overrides the global logger used by the system.
func SetLogger(logger Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		defaultLogger = noopLogger{}
		return
	}
	defaultLogger = logger
}

// Log returns the current global logger instance.
func Log() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Warn(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}

// StdLogger writes level-prefixed key=value lines to the supplied writer.
type StdLogger struct {
	logger *log.Logger
}

// NewStdLogger constructs a logger writing to w.
func NewStdLogger(w io.Writer) *StdLogger {
	return &StdLogger{logger: log.New(w, "", log.LstdFlags|log.LUTC)}
}

// Debug logs at debug level.
func (l *StdLogger) Debug(msg string, fields ...Field) { l.write("DEBUG", msg, fields) }

// Info logs at info level.
func (l *StdLogger) Info(msg string, fields ...Field) { l.write("INFO", msg, fields) }

// Warn logs at warn level.
func (l *StdLogger) Warn(msg string, fields ...Field) { l.write("WARN", msg, fields) }

// Error logs at error level.
func (l *StdLogger) Error(msg string, fields ...Field) { l.write("ERROR", msg, fields) }

func (l *StdLogger) write(level, msg string, fields []Field) {
	if l == nil || l.logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	l.logger.Print(b.String())
}
