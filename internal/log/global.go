package log

import "sync/atomic"

var process atomic.Pointer[Logger]

// SetDefaultLogger replaces the process logger. The cmd layer calls it once
// per invocation after reading the log settings.
func SetDefaultLogger(l *Logger) {
	process.Store(l)
}

// DefaultLogger returns the process logger, installing Default() on first
// use.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	process.CompareAndSwap(nil, Default())
	return process.Load()
}

// OrDefault returns l, or the process logger when l is nil.
func OrDefault(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return DefaultLogger()
}
