// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// Components receive a Logger through their constructors and scope it with Module:
//
//	central, err := logger.NewCentralLogger(&cfg)
//	if err != nil {
//	    return err
//	}
//	defer central.Close()
//
//	syncLog := central.Module("sync")
//	syncLog.Info("cycle finished",
//	    logger.String("scope", "189"),
//	    logger.Int("products", 4210))
//
// Console output is human-readable text, file output is JSON. Tests use
// NewSlogLogger with a bytes.Buffer or io.Discard.
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned since the same few keys ("scope", "file", "error") repeat on every call.
type Field struct {
	Key   string
	Value any
}

func internKey(key string) string {
	return unique.Make(key).Value()
}

var (
	errorKey   = internKey("error")
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every entry
	With(fields ...Field) Logger
	// WithContext attaches the trace ID stored in ctx, if any
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

func field(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}

func String(key, value string) Field          { return field(key, value) }
func Int(key string, value int) Field         { return field(key, value) }
func Int64(key string, value int64) Field     { return field(key, value) }
func Float64(key string, value float64) Field { return field(key, value) }
func Bool(key string, value bool) Field       { return field(key, value) }
func Time(key string, value time.Time) Field  { return field(key, value) }

// Duration fields render as "1.5s" in both text and JSON output.
func Duration(key string, value time.Duration) Field { return field(key, value) }

// Strings holds a list, e.g. the scope ids of a run.
func Strings(key string, values []string) Field { return field(key, values) }

// Any is for values without a typed constructor.
func Any(key string, value any) Field { return field(key, value) }

// Error returns an "error" field holding err's message, or nil.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey}
	}
	return Field{Key: errorKey, Value: err.Error()}
}
