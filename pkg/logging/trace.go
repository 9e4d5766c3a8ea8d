package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceOn atomic.Bool

// SetTrace turns per-tick tracing on or off. Init sets it from the server level.
func SetTrace(on bool) { traceOn.Store(on) }

// TraceEnabled reports whether tracing is on.
func TraceEnabled() bool { return traceOn.Load() }

// Trace logs at DEBUG only while tracing is on, so the session can log every tick without
// formatting cost in normal runs. A nil logger means slog.Default().
func Trace(logger *slog.Logger, msg string, args ...any) {
	if !traceOn.Load() {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug(msg, args...)
}
