// Package xlog is a thin leveled logger over log/slog, in the shape of
// ethereum-go-ethereum's log package: a handful of package-scoped loggers,
// each identified by a short name, each taking a message plus key/value
// pairs rather than a format string.
package xlog

import (
	"log/slog"
	"os"
)

// Logger is the subset of *slog.Logger the rest of the module depends on.
type Logger struct {
	inner *slog.Logger
}

// minLevel is shared by every Logger's handler; its zero value is slog.LevelInfo.
var minLevel = new(slog.LevelVar)

var base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel}))

// New returns a named Logger, e.g. New("cache") tags every line with
// component=cache.
func New(component string) *Logger {
	return &Logger{inner: base.With("component", component)}
}

// SetLevel adjusts the global minimum level, for Loggers created before the
// call as well as after it. The default, slog.LevelInfo, hides Debug output.
func SetLevel(level slog.Level) {
	minLevel.Set(level)
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
