package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides leveled logging throughout the application. Console lines
// carry colored level tags; the optional file copy is plain text.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
	err   io.Writer
	file  io.WriteCloser
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger() *Logger {
	return &Logger{level: LevelInfo, out: os.Stdout, err: os.Stderr}
}

// NewLoggerTo sends every level to w without colors. Tests use it with io.Discard.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{level: LevelDebug, file: nopCloser{w}}
}

// SetLevel drops messages below lvl.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	l.level = lvl
	l.mu.Unlock()
}

// AddFile mirrors every message into the file at path, appending.
func (l *Logger) AddFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logger: open %q: %w", path, err)
	}
	l.mu.Lock()
	l.file = f
	l.mu.Unlock()
	return nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) write(lvl Level, tag, color string, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	ts := l.timestamp()

	console := l.out
	if lvl == LevelError {
		console = l.err
	}
	if console != nil {
		fmt.Fprintf(console, "[%s] \033[%sm%-5s\033[0m %s\n", ts, color, tag, msg)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "%s %-8s%s\n", ts, tag, msg)
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.write(LevelInfo, "INFO", "32", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(LevelWarn, "WARN", "33", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(LevelError, "ERROR", "31", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.write(LevelDebug, "DEBUG", "36", format, args...)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
