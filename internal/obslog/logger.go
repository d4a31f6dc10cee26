// Package obslog provides the structured logger threaded through a run.
//
// Every component that writes to run.log or a source's source.log accepts
// a *Logger explicitly; there is no package-level default logger. This
// keeps a run's log destination bound to that run's RunContext instead of
// a process-wide singleton.
package obslog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes leveled, fielded log lines to a destination writer.
// It is safe for concurrent use by multiple workers within one source.
type Logger struct {
	out    io.Writer
	level  Level
	fields map[string]interface{}
	mu     *sync.Mutex
}

// New creates a logger writing to out at the given minimum level.
func New(out io.Writer, level Level) *Logger {
	return &Logger{
		out:    out,
		level:  level,
		fields: map[string]interface{}{},
		mu:     &sync.Mutex{},
	}
}

// With returns a child logger carrying additional fields, sharing the same
// destination and write lock as its parent.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{out: l.out, level: l.level, fields: merged, mu: l.mu}
}

// WithField is a convenience wrapper around With for a single field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.With(map[string]interface{}{key: value})
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(DebugLevel, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(InfoLevel, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(WarnLevel, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(ErrorLevel, format, args...) }

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] [%s] %s", time.Now().UTC().Format(time.RFC3339), level, msg)
	if len(l.fields) > 0 {
		line += " " + formatFields(l.fields)
	}
	fmt.Fprintln(l.out, line)
}

func formatFields(fields map[string]interface{}) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}
