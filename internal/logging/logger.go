// Package logging provides structured logging for Ensemble.
//
// It wraps log/slog with a JSON handler and adds helpers for the context
// attributes every component carries (conversation, component). Logs go
// to stderr or to a file, never to stdout: the MCP front end owns stdout.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels accepted by ParseLevel.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger is a structured logger. It is safe for concurrent use; child
// loggers share the parent's output.
type Logger struct {
	logger *slog.Logger
	out    *output
}

type output struct {
	mu   sync.Mutex
	file *os.File
}

// New returns a Logger writing JSON lines to w at the given level.
func New(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{logger: slog.New(handler), out: &output{}}
}

// NewFile returns a Logger appending to path, or to stderr when path is
// empty.
func NewFile(path, level string) (*Logger, error) {
	if path == "" {
		return New(os.Stderr, level), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	l := New(f, level)
	l.out.file = f
	return l, nil
}

// NopLogger discards everything. Intended for tests.
func NopLogger() *Logger {
	return New(io.Discard, LevelError)
}

// ParseLevel converts a level name to slog.Level, defaulting to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevels lists the accepted level names.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// With returns a child logger carrying the given key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...), out: l.out}
}

// WithComponent tags entries with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithConversation tags entries with a conversation ID.
func (l *Logger) WithConversation(id string) *Logger {
	return l.With("conversation_id", id)
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Slog exposes the underlying slog.Logger for libraries that accept one.
func (l *Logger) Slog() *slog.Logger { return l.logger }

// StdLogger adapts l to a *log.Logger for libraries that only accept
// one. Every line is logged at ERROR.
func (l *Logger) StdLogger() *log.Logger {
	return slog.NewLogLogger(l.logger.Handler(), slog.LevelError)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.file == nil {
		return nil
	}
	err := l.out.file.Close()
	l.out.file = nil
	return err
}
