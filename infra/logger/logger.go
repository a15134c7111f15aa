package logger

import corelogger "github.com/kilianp07/vpp/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format is
// selected by the APP_ENV variable: "dev" prints human readable lines,
// anything else JSON.
func New(component string) Logger {
	return NewZerologLogger(component)
}
