// Package log provides the structured, verbosity-gated logger shared by
// every subsystem in the pipeline. It replaces fmt.Println calls with a
// single writer so that AUDITOR_DEBUG (see internal/config) uniformly
// controls trace output across the indexer, graph builder, and taint
// engines, per spec §6 ("a single debug flag that enables verbose trace
// output across all components").
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// VerbosityLevel controls how much a Logger emits.
type VerbosityLevel int

const (
	// VerbosityQuiet suppresses everything but warnings and errors.
	VerbosityQuiet VerbosityLevel = iota
	// VerbosityDefault shows warnings, errors, and top-level progress.
	VerbosityDefault
	// VerbosityVerbose additionally shows per-file/per-pass statistics.
	VerbosityVerbose
	// VerbosityDebug additionally shows elapsed-time-prefixed trace lines.
	VerbosityDebug
)

// Logger is a verbosity-gated writer with named timing sections.
type Logger struct {
	mu        sync.Mutex
	verbosity VerbosityLevel
	writer    io.Writer
	startTime time.Time
	timings   map[string]time.Duration
	isTTY     bool
}

// New creates a Logger writing to stderr, matching the teacher's
// convention of keeping stdout clean for any downstream report consumer.
func New(verbosity VerbosityLevel) *Logger {
	return NewWithWriter(verbosity, os.Stderr)
}

// NewWithWriter creates a Logger over an arbitrary writer (tests use this).
func NewWithWriter(verbosity VerbosityLevel, w io.Writer) *Logger {
	return &Logger{
		verbosity: verbosity,
		writer:    w,
		startTime: time.Now(),
		timings:   make(map[string]time.Duration),
		isTTY:     isTTY(w),
	}
}

func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Progress logs high-level progress ("indexing 842 files...").
func (l *Logger) Progress(format string, args ...interface{}) {
	if l.verbosity >= VerbosityDefault {
		l.writeln(format, args...)
	}
}

// Statistic logs counts and metrics ("graph builder: 12483 edges").
func (l *Logger) Statistic(format string, args ...interface{}) {
	if l.verbosity >= VerbosityVerbose {
		l.writeln(format, args...)
	}
}

// Debug logs trace diagnostics with an elapsed-time prefix.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.verbosity >= VerbosityDebug {
		elapsed := time.Since(l.startTime)
		l.writeln("[%s] %s", formatDuration(elapsed), fmt.Sprintf(format, args...))
	}
}

// Warning is always shown.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.writeln("warning: "+format, args...)
}

// Error is always shown.
func (l *Logger) Error(format string, args ...interface{}) {
	l.writeln("error: "+format, args...)
}

func (l *Logger) writeln(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.writer, format+"\n", args...)
}

// StartTiming begins timing a named operation; call the returned func to stop.
func (l *Logger) StartTiming(name string) func() {
	start := time.Now()
	return func() {
		l.mu.Lock()
		l.timings[name] = time.Since(start)
		l.mu.Unlock()
	}
}

// GetTiming returns the duration recorded for name, or zero if never started.
func (l *Logger) GetTiming(name string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timings[name]
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

// IsTTY reports whether the logger's output is a terminal.
func (l *Logger) IsTTY() bool { return l.isTTY }

// IsDebug reports whether debug-level trace output is enabled.
func (l *Logger) IsDebug() bool { return l.verbosity >= VerbosityDebug }

// Verbosity returns the configured verbosity level.
func (l *Logger) Verbosity() VerbosityLevel { return l.verbosity }
