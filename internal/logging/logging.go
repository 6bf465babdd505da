package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled key/value logger. Arguments after the message are
// alternating keys and values.
type Logger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
}

// ParseLevel maps a config level name to a zap level. Unknown names fall
// back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds a JSON logger writing to stderr at the given level.
func NewLogger(level string) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewExample()
	}
	return FromZap(base)
}

// FromZap wraps an existing zap logger.
func FromZap(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{sugar: base.Sugar(), base: base}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

// Named returns a child logger for a component.
func (l *Logger) Named(component string) *Logger {
	return FromZap(l.base.Named(component))
}

// Zap exposes the underlying logger for libraries that take one.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.sugar.Errorw(msg, args...)
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, args...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
