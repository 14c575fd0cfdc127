// Package datastore owns the per-scope SQLite catalog file and replaces its
// tables atomically, one transaction per table.
package datastore

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite" // registers the pure-Go "sqlite" driver

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// SQL driver names.
const (
	// DriverCGO is mattn/go-sqlite3, the driver gorm's sqlite dialector links by default.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite, for builds without cgo.
	DriverPure = "sqlite"
)

// Defaults for Options.
const (
	DefaultBatchSize     = 500
	DefaultBusyTimeout   = 5 * time.Second
	DefaultSlowThreshold = 2 * time.Second
)

const dirPermissions = 0o755

// Options configures how a catalog file is opened and written.
type Options struct {
	Driver string
	// BatchSize is the number of rows per INSERT statement, 0 means one statement per table.
	BatchSize     int
	BusyTimeout   time.Duration
	SlowThreshold time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Driver:        DriverCGO,
		BatchSize:     DefaultBatchSize,
		BusyTimeout:   DefaultBusyTimeout,
		SlowThreshold: DefaultSlowThreshold,
	}
}

// ValidDriver reports whether name is a supported SQL driver.
func ValidDriver(name string) bool {
	return name == DriverCGO || name == DriverPure
}

// Store is one catalog file. Writes are serialized.
type Store struct {
	db        *gorm.DB
	path      string
	batchSize int
	log       logger.Logger
	mu        sync.Mutex
}

// Open opens (creating if needed) the catalog file at path.
func Open(path string, opts Options, log logger.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.ValidationError("catalog path is empty")
	}
	if opts.Driver == "" {
		opts.Driver = DriverCGO
	}
	if !ValidDriver(opts.Driver) {
		return nil, errors.ValidationError(fmt.Sprintf("unsupported sqlite driver %q", opts.Driver))
	}
	if opts.BatchSize < 0 {
		return nil, errors.ValidationError("batch size cannot be negative")
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, dbError(fmt.Errorf("create catalog directory: %w", err), "open", path)
		}
	}

	dialector := sqlite.New(sqlite.Config{
		DriverName: opts.Driver,
		DSN:        dsn(path, opts),
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLoggerAdapter(log.Module("sql"), opts.SlowThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, dbError(fmt.Errorf("open catalog: %w", err), "open", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "open", path)
	}
	// one connection: SQLite has a single writer and the file is small
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, dbError(fmt.Errorf("open catalog: %w", err), "open", path)
	}

	log.Debug("catalog opened",
		logger.String("path", path),
		logger.String("driver", opts.Driver))

	return &Store{
		db:        db,
		path:      path,
		batchSize: opts.BatchSize,
		log:       log,
	}, nil
}

// dsn adds the busy timeout in the spelling each driver understands.
func dsn(path string, opts Options) string {
	timeout := opts.BusyTimeout
	if timeout <= 0 {
		timeout = DefaultBusyTimeout
	}
	ms := strconv.FormatInt(timeout.Milliseconds(), 10)

	q := url.Values{}
	switch opts.Driver {
	case DriverPure:
		q.Set("_pragma", "busy_timeout("+ms+")")
	default:
		q.Set("_busy_timeout", ms)
	}
	return path + "?" + q.Encode()
}

// Path returns the catalog file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close", s.path)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", s.path)
	}
	return nil
}

func dbError(err error, operation, path string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("path", path).
		Build()
}
