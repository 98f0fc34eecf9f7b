// Package logger wraps charmbracelet/log behind package-level helpers so
// library code can log without threading a logger through every call.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	current = newLogger(os.Stderr, log.InfoLevel)
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "pocket-meta",
	})
}

// Init configures the global logger. Unknown levels fall back to info.
func Init(w io.Writer, level string) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	current = newLogger(w, parseLevel(level))
	mu.Unlock()
}

// Discard silences all output, used by tests and the preview UI
func Discard() {
	mu.Lock()
	current = newLogger(io.Discard, log.FatalLevel)
	mu.Unlock()
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func get() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With returns a child logger carrying the given key/value pairs
func With(keyvals ...any) *log.Logger {
	return get().With(keyvals...)
}

// Debug writes a message at DEBUG level.
func Debug(message string, keyvals ...any) {
	get().Debug(message, keyvals...)
}

// Info writes a message at INFO level.
func Info(message string, keyvals ...any) {
	get().Info(message, keyvals...)
}

// Warn writes a message at WARN level.
func Warn(message string, keyvals ...any) {
	get().Warn(message, keyvals...)
}

// Error writes a message at ERROR level.
func Error(message string, keyvals ...any) {
	get().Error(message, keyvals...)
}
