// Package logger provides process-wide logging for esload.
// Debug output and section headers are only printed in verbose mode;
// info, warnings and errors are always emitted.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var (
	mu      sync.RWMutex
	verbose bool
	jsonOut bool
	log     = newLogrus(os.Stderr)
)

// Fields carries structured context attached to a log line.
type Fields map[string]any

func newLogrus(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&plainFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(w)
}

// SetJSON switches between JSON lines and the plain "[LEVEL] message" format.
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonOut = enabled
	if enabled {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&plainFormatter{})
	}
}

// AutoFormat uses the plain format when stderr is a terminal and JSON otherwise.
func AutoFormat() {
	SetJSON(!term.IsTerminal(int(os.Stderr.Fd())))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	if jsonOut {
		log.WithField("section", name).Debug(name)
		return
	}
	fmt.Fprintf(log.Out, "\n=== %s ===\n", name)
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Infof(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warnf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Errorf(format, args...)
}

// Entry is a log line builder carrying structured fields.
type Entry struct {
	fields Fields
}

// WithFields returns an Entry that attaches fields to every message.
func WithFields(f Fields) *Entry {
	return &Entry{fields: f}
}

func (e *Entry) entry() *logrus.Entry {
	return log.WithFields(logrus.Fields(e.fields))
}

// Debug prints a message with fields if verbose mode is enabled.
func (e *Entry) Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	e.entry().Debugf(format, args...)
}

// Info prints an informational message with fields.
func (e *Entry) Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	e.entry().Infof(format, args...)
}

// Warn prints a warning with fields.
func (e *Entry) Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	e.entry().Warnf(format, args...)
}

// Error prints an error with fields.
func (e *Entry) Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	e.entry().Errorf(format, args...)
}

// plainFormatter renders "[LEVEL] message key=value" lines.
type plainFormatter struct{}

func (f *plainFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("[")
	b.WriteString(levelName(e.Level))
	b.WriteString("] ")
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

func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(l.String())
}
