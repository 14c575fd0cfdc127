// Package buildinfo carries build-time metadata, kept apart from user configuration.
package buildinfo

import (
	"fmt"
	"runtime"
)

// UnknownValue is reported for metadata the build did not inject.
const UnknownValue = "unknown"

// Context holds values injected with -ldflags at build time.
type Context struct {
	version   string
	buildDate string
}

// NewContext returns build metadata.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the release tag, or UnknownValue.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build timestamp, or UnknownValue.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// String renders a one-line version banner.
func (c *Context) String() string {
	return fmt.Sprintf("shelfsync %s (built %s, %s %s/%s)",
		c.Version(), c.BuildDate(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
