// Package logger provides the structured logger used across alliance-manager.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// LogLevel is a textual log level as found in configuration files.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLevel converts a configuration string into a LogLevel. Unknown values map to info.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is the logging contract every component receives by injection.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger that always carries the given fields.
	With(fields ...Field) Logger
	// Module returns a child logger tagged with a module name.
	Module(name string) Logger
}

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger creates a text logger writing to w. Timestamps are rendered
// in loc when it is non-nil, otherwise in local time.
func NewSlogLogger(w io.Writer, level LogLevel, loc *time.Location) *SlogLogger {
	return &SlogLogger{l: slog.New(slog.NewTextHandler(w, handlerOptions(level, loc)))}
}

// NewJSONLogger creates a logger that emits one JSON object per line.
func NewJSONLogger(w io.Writer, level LogLevel, loc *time.Location) *SlogLogger {
	return &SlogLogger{l: slog.New(slog.NewJSONHandler(w, handlerOptions(level, loc)))}
}

// New picks the text or JSON handler according to format.
func New(w io.Writer, level LogLevel, format string, loc *time.Location) *SlogLogger {
	if strings.EqualFold(format, "json") {
		return NewJSONLogger(w, level, loc)
	}
	return NewSlogLogger(w, level, loc)
}

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() *SlogLogger {
	return NewSlogLogger(io.Discard, LogLevelError, nil)
}

func handlerOptions(level LogLevel, loc *time.Location) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level.slogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if loc != nil && len(groups) == 0 && a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.TimeValue(t.In(loc))
				}
			}
			return a
		},
	}
}

func (s *SlogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s *SlogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s *SlogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s *SlogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{l: s.l.With(toArgs(fields)...)}
}

func (s *SlogLogger) Module(name string) Logger {
	return &SlogLogger{l: s.l.With(slog.String("module", name))}
}

func (s *SlogLogger) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !s.l.Enabled(ctx, level) {
		return
	}
	s.l.Log(ctx, level, msg, toArgs(fields)...)
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}
