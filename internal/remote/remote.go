// Package remote retrieves the store drops (planogram workbooks, barcode files
// and description exports) from the upstream file server.
package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// Supported protocols.
const (
	ProtocolSFTP  = "sftp"
	ProtocolFTP   = "ftp"
	ProtocolLocal = "local"
)

// Kind classifies a remote entry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindLink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindLink:
		return "link"
	default:
		return "other"
	}
}

// Entry is one item of a remote directory listing.
type Entry struct {
	Name       string
	Kind       Kind
	ModifiedAt time.Time
	Size       int64
}

// Client is one open connection to the drop. Paths use forward slashes.
type Client interface {
	// List returns the entries of dir in server order.
	List(ctx context.Context, dir string) ([]Entry, error)
	// Fetch downloads remotePath to localPath. A partial transfer never replaces localPath.
	Fetch(ctx context.Context, remotePath, localPath string) error
	Close() error
}

// Dialer opens a Client. The orchestrator dials once per scope cycle.
type Dialer func(ctx context.Context) (Client, error)

// Config describes how to reach the drop.
type Config struct {
	Protocol   string
	Host       string
	Port       int
	Username   string
	Password   string
	KeyFile    string
	KnownHosts string
	Timeout    time.Duration
	// FTP connection modes
	ExplicitTLS bool
	DisableEPSV bool
	// LocalRoot is the mounted directory used by the local protocol.
	LocalRoot string
}

// NewDialer returns a Dialer for cfg.Protocol.
func NewDialer(cfg Config, log logger.Logger) (Dialer, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	switch strings.ToLower(cfg.Protocol) {
	case ProtocolSFTP:
		return func(ctx context.Context) (Client, error) { return DialSFTP(ctx, cfg, log.Module("sftp")) }, nil
	case ProtocolFTP:
		return func(ctx context.Context) (Client, error) { return DialFTP(ctx, cfg, log.Module("ftp")) }, nil
	case ProtocolLocal:
		return func(context.Context) (Client, error) { return NewLocal(cfg.LocalRoot) }, nil
	}
	return nil, errors.Newf("unsupported remote protocol %q", cfg.Protocol).
		Category(errors.CategoryConfiguration).
		Build()
}

// FetchDirectory downloads every regular file of remoteDir whose extension is in
// exts into localDir and returns the local paths in listing order.
func FetchDirectory(ctx context.Context, c Client, remoteDir, localDir string, exts []string) ([]string, error) {
	entries, err := c.List(ctx, remoteDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, errors.New(fmt.Errorf("create %s: %w", localDir, err)).
			Category(errors.CategoryFileIO).
			Build()
	}

	var fetched []string
	for _, e := range entries {
		if e.Kind != KindFile || !hasExt(e.Name, exts) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fetched, err
		}
		local := filepath.Join(localDir, filepath.Base(e.Name))
		if err := c.Fetch(ctx, path.Join(remoteDir, e.Name), local); err != nil {
			return fetched, err
		}
		fetched = append(fetched, local)
	}
	return fetched, nil
}

// SelectLatest returns the file entry with ext and the greatest ModifiedAt.
// Ties resolve to the entry listed last.
func SelectLatest(entries []Entry, ext string) (Entry, bool) {
	var (
		latest Entry
		found  bool
	)
	for _, e := range entries {
		if e.Kind != KindFile || !hasExt(e.Name, []string{ext}) {
			continue
		}
		if !found || !e.ModifiedAt.Before(latest.ModifiedAt) {
			latest, found = e, true
		}
	}
	return latest, found
}

// ClearLocal removes files with one of exts from dir. A missing dir is not an error.
func ClearLocal(dir string, exts []string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.New(err).Category(errors.CategoryFileIO).Context("directory", dir).Build()
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !hasExt(e.Name(), exts) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, errors.New(err).Category(errors.CategoryFileIO).Context("directory", dir).Build()
		}
		removed++
	}
	return removed, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// writeAtomic copies r into a temp file next to localPath and renames it into place.
func writeAtomic(localPath string, r io.Reader) error {
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(localPath)+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ctxReader stops a transfer when ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
