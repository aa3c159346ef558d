package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger provides leveled logging with redaction support
type Logger struct {
	entry *logrus.Entry
	debug bool
}

// New creates a logger writing to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&symbolFormatter{noColor: noColor})
	base.SetLevel(logrus.InfoLevel)
	if debug {
		base.SetLevel(logrus.DebugLevel)
	}

	return &Logger{
		entry: logrus.NewEntry(base),
		debug: debug,
	}
}

// WithField returns a logger that appends key=value to every message
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), debug: l.debug}
}

// IsDebug reports whether debug messages are written
func (l *Logger) IsDebug() bool {
	return l.debug
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// symbolFormatter renders entries as "<symbol> message key=value".
type symbolFormatter struct {
	noColor bool
}

func (f *symbolFormatter) Format(e *logrus.Entry) ([]byte, error) {
	symbol, color := "✓", "32"
	switch e.Level {
	case logrus.WarnLevel:
		symbol, color = "⚠", "33"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		symbol, color = "✗", "31"
	case logrus.DebugLevel, logrus.TraceLevel:
		symbol, color = "[DEBUG]", "36"
	}

	var b bytes.Buffer
	if f.noColor {
		b.WriteString(symbol)
	} else {
		fmt.Fprintf(&b, "\033[%sm%s\033[0m", color, symbol)
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
