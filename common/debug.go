package common

import (
	"fmt"
	"log"
)

// LogLevel selects the console method a message is routed to.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

var EnableDebug = true

// LogSink receives every message that passes the EnableDebug gate. The
// browser build replaces it with a console sink.
var LogSink = func(level LogLevel, args ...interface{}) {
	log.Println(append([]interface{}{"[" + level.String() + "]"}, args...)...)
}

// Debug logs a message if debug mode is enabled.
func Debug(args ...interface{}) {
	if EnableDebug {
		LogSink(LevelDebug, args...)
	}
}

// Debugf logs a formatted message if debug mode is enabled.
func Debugf(format string, args ...interface{}) {
	if EnableDebug {
		LogSink(LevelDebug, fmt.Sprintf(format, args...))
	}
}

// DebugWarn logs a warning if debug mode is enabled.
func DebugWarn(args ...interface{}) {
	if EnableDebug {
		LogSink(LevelWarn, args...)
	}
}

// DebugError logs an error. Errors are always reported.
func DebugError(args ...interface{}) {
	LogSink(LevelError, args...)
}
