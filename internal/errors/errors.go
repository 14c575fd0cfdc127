// Package errors provides categorised errors that carry structured context
// for logs, metrics and alerts. It also re-exports the standard helpers so
// callers need a single errors import.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory groups errors by the stage or concern that produced them.
type ErrorCategory string

// CategorizedError is implemented by errors that know their category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

// Pipeline stages.
const (
	// CategoryTransfer: unreachable drop, rejected credentials, missing remote entry.
	CategoryTransfer ErrorCategory = "remote-transfer"
	// CategoryFileParsing: a malformed or unreadable input file.
	CategoryFileParsing ErrorCategory = "file-parsing"
	// CategoryLoad: the catalog store failed while replacing a table.
	CategoryLoad ErrorCategory = "catalog-load"
)

// Cross-cutting categories.
const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryDatabase      ErrorCategory = "database"
	CategoryNetwork       ErrorCategory = "network"
	CategoryState         ErrorCategory = "state"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryIntegration   ErrorCategory = "integration"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is reported when no caller outside this package is found.
const ComponentUnknown = "unknown"

const (
	ownPackage    = "shelfsync/internal/errors."
	maxCallerPCs  = 16
	callersToSkip = 3 // runtime.Callers, capturePCs, Build
)

// EnhancedError is an error with a category, a component and key/value context.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Timestamp time.Time

	context map[string]any

	pcs           []uintptr
	component     string
	componentOnce sync.Once
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// ErrorCategory implements CategorizedError.
func (ee *EnhancedError) ErrorCategory() ErrorCategory { return ee.Category }

// Is matches another EnhancedError of the same category, otherwise defers
// to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the package that built the error, unless one was set
// explicitly. The call stack is only resolved on first use.
func (ee *EnhancedError) GetComponent() string {
	ee.componentOnce.Do(func() {
		if ee.component == "" {
			ee.component = componentFromPCs(ee.pcs)
		}
		ee.pcs = nil
	})
	return ee.component
}

// GetContext returns a copy of the context values, or nil when there are none.
func (ee *EnhancedError) GetContext() map[string]any {
	if len(ee.context) == 0 {
		return nil
	}
	return maps.Clone(ee.context)
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts building an error around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf is New(fmt.Errorf(format, args...)).
func Newf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: fmt.Errorf(format, args...)}
}

// Component names the emitting package instead of detecting it from the stack.
func (eb *ErrorBuilder) Component(name string) *ErrorBuilder {
	eb.component = name
	return eb
}

// Category sets the category. Without one, the category of the first
// categorised error in the wrapped chain is used.
func (eb *ErrorBuilder) Category(c ErrorCategory) *ErrorBuilder {
	eb.category = c
	return eb
}

// Context attaches one key/value pair.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any, 2)
	}
	eb.context[key] = value
	return eb
}

// File records the file path and its lower-case extension.
func (eb *ErrorBuilder) File(path string) *ErrorBuilder {
	if path == "" {
		return eb
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		ext = "none"
	}
	return eb.Context("file", path).Context("file_extension", ext)
}

// Build returns the error.
func (eb *ErrorBuilder) Build() *EnhancedError {
	err := eb.err
	if err == nil {
		err = stderrors.New("unspecified error")
	}

	category := eb.category
	if category == "" {
		category = CategoryGeneric
		var ce CategorizedError
		if stderrors.As(err, &ce) && ce.ErrorCategory() != "" {
			category = ce.ErrorCategory()
		}
	}

	ee := &EnhancedError{
		Err:       err,
		Category:  category,
		Timestamp: time.Now(),
		context:   eb.context,
		component: eb.component,
	}
	if eb.component == "" {
		ee.pcs = capturePCs()
	}
	return ee
}

func capturePCs() []uintptr {
	pcs := make([]uintptr, maxCallerPCs)
	return pcs[:runtime.Callers(callersToSkip, pcs)]
}

// componentFromPCs returns the package name of the first frame outside this
// package: "github.com/x/shelfsync/internal/remote.(*SFTPClient).List" -> "remote".
func componentFromPCs(pcs []uintptr) string {
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		if fn := frame.Function; fn != "" && !strings.Contains(fn, ownPackage) {
			pkg := fn[strings.LastIndex(fn, "/")+1:]
			if dot := strings.IndexByte(pkg, '.'); dot > 0 {
				return pkg[:dot]
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// TransferError wraps a remote drop failure for remotePath.
func TransferError(err error, remotePath string) *EnhancedError {
	return New(err).Category(CategoryTransfer).Context("remote_path", remotePath).Build()
}

// ParseError wraps a failure to parse the input file at path.
func ParseError(err error, path string) *EnhancedError {
	return New(err).Category(CategoryFileParsing).File(path).Build()
}

// LoadError wraps a catalog store failure while replacing table.
func LoadError(err error, table string) *EnhancedError {
	return New(err).Category(CategoryLoad).Context("table", table).Build()
}

// ValidationError reports invalid input or configuration.
func ValidationError(message string) *EnhancedError {
	return New(stderrors.New(message)).Category(CategoryValidation).Build()
}

// IsCategory reports whether err's chain holds an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return stderrors.As(err, &ee) && ee.Category == category
}

// Standard library passthroughs.

// NewStd returns a plain sentinel error. Unlike an EnhancedError it matches
// only itself in Is.
func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Unwrap(err error) error        { return stderrors.Unwrap(err) }
func Join(errs ...error) error      { return stderrors.Join(errs...) }
