// Package monitoring holds the dashboard's logging hooks.
//
// Logf is the general purpose logger used by the HTTP and startup code.
// The ops and diag streams separate actionable failures (a dataset that
// failed to load, a chart that could not be rendered) from day-to-day
// diagnostics (cache hits, clustering iterations).
package monitoring

import (
	"io"
	"log"
	"os"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var (
	streamsMu  sync.RWMutex
	opsLogger  = newLogger("[bikeshare] ", os.Stderr)
	diagLogger *log.Logger
)

// SetLogWriters configures the ops and diag streams.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag io.Writer) {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	opsLogger = newLogger("[bikeshare] ", ops)
	diagLogger = newLogger("[bikeshare] ", diag)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream (load failures, render failures, data problems).
func Opsf(format string, args ...interface{}) {
	streamsMu.RLock()
	l := opsLogger
	streamsMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream (cache behaviour, clustering convergence).
func Diagf(format string, args ...interface{}) {
	streamsMu.RLock()
	l := diagLogger
	streamsMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// DO NOT add Debugf. Each callsite picks Opsf or Diagf.
