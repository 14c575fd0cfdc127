package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	// Embedded zone database so "Europe/Athens" resolves on hosts without tzdata.
	_ "time/tzdata"

	"github.com/masvision/shelfsync/internal/errors"
)

const logDirPermissions = 0o755

// CentralLogger owns the output handlers and hands out module-scoped loggers.
// Console output is text, file output is JSON; both share one time zone.
type CentralLogger struct {
	handler      slog.Handler
	defaultLevel slog.Level
	moduleLevels map[string]slog.Level

	mu   sync.Mutex
	file *syncFileWriter
}

// NewCentralLogger creates a centralized logger from configuration. Missing
// sections are filled with defaults in cfg.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := timezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		defaultLevel: levelFromString(cfg.DefaultLevel),
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = levelFromString(level)
	}

	var outputs []slog.Handler
	if c := cfg.Console; c != nil && c.Enabled {
		outputs = append(outputs, newTextHandler(os.Stdout, cl.outputLevel(c.Level), tz))
	}
	if f := cfg.FileOutput; f != nil && f.Enabled {
		w, err := openLogFile(f.Path)
		if err != nil {
			return nil, err
		}
		cl.file = w
		outputs = append(outputs, newJSONHandler(w, cl.outputLevel(f.Level), tz))
	}

	switch len(outputs) {
	case 0:
		cl.handler = newTextHandler(os.Stdout, cl.defaultLevel, tz)
	case 1:
		cl.handler = outputs[0]
	default:
		cl.handler = newMultiWriterHandler(outputs...)
	}
	return cl, nil
}

func (cl *CentralLogger) outputLevel(level string) slog.Level {
	if level == "" {
		return cl.defaultLevel
	}
	return levelFromString(level)
}

// Module returns a logger named name, filtered at the module's configured level.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	level, ok := cl.moduleLevels[name]
	if !ok {
		level = cl.defaultLevel
	}
	return &moduleLogger{module: name, logger: slog.New(cl.handler), level: level}
}

// Flush pushes buffered file output to the OS.
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}
	return cl.file.Sync()
}

// Close flushes and closes the log file, if any. It is safe on a nil logger.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}

	syncErr := cl.file.Sync()
	closeErr := cl.file.Close()
	cl.file = nil
	if syncErr != nil {
		syncErr = fmt.Errorf("failed to sync log file: %w", syncErr)
	}
	if closeErr != nil {
		closeErr = fmt.Errorf("failed to close log file: %w", closeErr)
	}
	return errors.Join(syncErr, closeErr)
}

// NewSlogLogger returns a single-handler text logger writing to writer.
// A nil writer discards output, a nil tz means time.Local.
func NewSlogLogger(writer io.Writer, level LogLevel, tz *time.Location) Logger {
	if tz == nil {
		tz = time.Local
	}
	lvl := levelFromString(string(level))
	h := slog.DiscardHandler
	if writer != nil {
		h = newTextHandler(writer, lvl, tz)
	}
	return &moduleLogger{logger: slog.New(h), level: lvl}
}

func timezone(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func openLogFile(path string) (*syncFileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	w, err := newSyncFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return w, nil
}
