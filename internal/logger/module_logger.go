package logger

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"
)

// levelTrace sits below slog.LevelDebug (-4).
const levelTrace = slog.Level(-8)

var slogLevels = map[LogLevel]slog.Level{
	LogLevelTrace: levelTrace,
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelError: slog.LevelError,
}

// levelFromString maps a configured level name, falling back to info.
func levelFromString(name string) slog.Level {
	if lvl, ok := slogLevels[LogLevel(name)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

type traceIDContextKey struct{}

// WithTraceID returns a context whose loggers (via WithContext) tag every
// entry with traceID. The sync runner sets one per run.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey{}, traceID)
}

// TraceID returns the trace ID stored by WithTraceID, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDContextKey{}).(string)
	return id
}

// moduleLogger is the Logger handed out by CentralLogger and NewSlogLogger.
type moduleLogger struct {
	module string
	logger *slog.Logger
	level  slog.Level
	fields []Field
}

func (m *moduleLogger) derive(module string, fields []Field) *moduleLogger {
	return &moduleLogger{module: module, logger: m.logger, level: m.level, fields: fields}
}

// Module nests name under the current module: "pipeline" -> "pipeline.189".
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	if m.module != "" {
		name = m.module + "." + name
	}
	return m.derive(name, slices.Clone(m.fields))
}

func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return m.derive(m.module, slices.Concat(m.fields, fields))
}

func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	if id := TraceID(ctx); id != "" {
		return m.With(String(traceIDKey, id))
	}
	return m
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.log(levelTrace, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(slog.LevelWarn, msg, fields) }

// Error bypasses the module level.
func (m *moduleLogger) Error(msg string, fields ...Field) {
	if m != nil {
		m.write(slog.LevelError, msg, fields)
	}
}

func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(levelFromString(string(level)), msg, fields)
}

// Flush is a no-op; CentralLogger owns the file.
func (m *moduleLogger) Flush() error { return nil }

func (m *moduleLogger) log(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}
	m.write(level, msg, fields)
}

func (m *moduleLogger) write(level slog.Level, msg string, fields []Field) {
	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for _, f := range m.fields {
		attrs = append(attrs, f.attr())
	}
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}
	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (f Field) attr() slog.Attr {
	switch v := f.Value.(type) {
	case float64:
		return slog.Float64(f.Key, math.Round(v*1000)/1000)
	case time.Duration:
		// slog would render nanoseconds in JSON
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}
