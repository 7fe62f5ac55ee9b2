package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ParseLogLevel reads envVar and returns the matching level, or def when the
// variable is unset or not a known level name.
//
// Example:
//
//	level := logging.ParseLogLevel("LOG_LEVEL", zapcore.InfoLevel)
func ParseLogLevel(envVar string, def zapcore.Level) zapcore.Level {
	v := os.Getenv(envVar)
	if v == "" {
		return def
	}
	return ParseLogLevelString(v, def)
}

// ParseLogLevelString is case-insensitive and accepts "warning" for warn.
func ParseLogLevelString(s string, def zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return def
	}
}
