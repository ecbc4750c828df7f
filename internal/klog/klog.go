// Package klog provides the subsystem-prefixed loggers used throughout the
// kernel. It is a thin wrapper around the standard log package — the same
// log.Printf/fmt.Printf style the rest of this codebase's lineage uses,
// given a stable per-subsystem prefix instead of one flat global logger.
package klog

import (
	"log"
	"os"
)

// Logger prefixes every line with its subsystem name.
type Logger struct {
	*log.Logger
	verbose bool
}

// New returns a Logger for the named subsystem, e.g. klog.New("sched").
func New(subsystem string) *Logger {
	return &Logger{
		Logger: log.New(os.Stderr, "["+subsystem+"] ", log.LstdFlags|log.Lmicroseconds),
	}
}

// SetVerbose toggles whether Debugf lines are emitted and returns l, so
// callers can chain it onto New at construction time.
func (l *Logger) SetVerbose(v bool) *Logger {
	l.verbose = v
	return l
}

// Debugf logs at call sites too chatty for default output — no-op unless
// the logger was built with SetVerbose(true).
func (l *Logger) Debugf(format string, args ...any) {
	if l.verbose {
		l.Printf(format, args...)
	}
}
