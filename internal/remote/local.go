package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/masvision/shelfsync/internal/errors"
)

// LocalClient serves a drop mounted on the local filesystem.
type LocalClient struct {
	root string
}

// NewLocal returns a client rooted at root.
func NewLocal(root string) (*LocalClient, error) {
	if root == "" {
		return nil, errors.Newf("local remote root is empty").Category(errors.CategoryConfiguration).Build()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.TransferError(fmt.Errorf("local: %w", err), root)
	}
	if !info.IsDir() {
		return nil, errors.TransferError(fmt.Errorf("local: %s is not a directory", root), root)
	}
	return &LocalClient{root: root}, nil
}

// resolve maps a drop path onto the root, refusing paths that climb out of it.
func (c *LocalClient) resolve(p string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(p))
	full := filepath.Join(c.root, clean)
	rel, err := filepath.Rel(c.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("local: path %q escapes the drop root", p)
	}
	return full, nil
}

// List implements Client.
func (c *LocalClient) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.TransferError(err, dir)
	}
	full, err := c.resolve(dir)
	if err != nil {
		return nil, errors.TransferError(err, dir)
	}
	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, errors.TransferError(fmt.Errorf("local: list %s: %w", dir, err), dir)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		kind := KindOther
		switch {
		case de.Type().IsRegular():
			kind = KindFile
		case de.IsDir():
			kind = KindDir
		case de.Type()&os.ModeSymlink != 0:
			kind = KindLink
		}
		entries = append(entries, Entry{
			Name:       de.Name(),
			Kind:       kind,
			ModifiedAt: info.ModTime(),
			Size:       info.Size(),
		})
	}
	return entries, nil
}

// Fetch implements Client.
func (c *LocalClient) Fetch(ctx context.Context, remotePath, localPath string) error {
	full, err := c.resolve(remotePath)
	if err != nil {
		return errors.TransferError(err, remotePath)
	}
	src, err := os.Open(full)
	if err != nil {
		return errors.TransferError(fmt.Errorf("local: open %s: %w", remotePath, err), remotePath)
	}
	defer src.Close()

	if err := writeAtomic(localPath, ctxReader{ctx: ctx, r: src}); err != nil {
		return errors.TransferError(fmt.Errorf("local: fetch %s: %w", remotePath, err), remotePath)
	}
	return nil
}

// Close implements Client.
func (c *LocalClient) Close() error {
	return nil
}
