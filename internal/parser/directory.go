package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// FileError is the failure of one file in a directory parse.
type FileError struct {
	Path string
	Err  error
}

// DirectoryResult is the outcome of parsing every matching file in a directory.
type DirectoryResult[T any] struct {
	Items  []T
	Files  []string
	Failed []FileError
}

// Parsed returns the number of files that parsed successfully.
func (r *DirectoryResult[T]) Parsed() int {
	return len(r.Files) - len(r.Failed)
}

// ParseDirectory parses every regular file in dir whose extension is in exts.
// Files are parsed concurrently and independently: a failing file is logged and
// recorded, its siblings are unaffected. Items keep file-name order.
// An error is returned only when the directory cannot be read, ctx is done, or
// every matching file failed. A directory with no matching file yields no items.
func ParseDirectory[T any](ctx context.Context, dir string, exts []string, parse func(path string) ([]T, error), log logger.Logger) (*DirectoryResult[T], error) {
	files, err := MatchingFiles(dir, exts)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("directory", dir).
			Build()
	}

	result := &DirectoryResult[T]{Items: []T{}, Files: files}
	if len(files) == 0 {
		return result, nil
	}

	perFile := make([][]T, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items, err := parse(path)
			if err != nil {
				failures[i] = err
				return nil
			}
			perFile[i] = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryCancellation).
			Context("directory", dir).
			Build()
	}

	var errs []error
	for i, path := range files {
		if failures[i] != nil {
			result.Failed = append(result.Failed, FileError{Path: path, Err: failures[i]})
			errs = append(errs, failures[i])
			if log != nil {
				log.Error("skipping unreadable file",
					logger.String("file", path),
					logger.Error(failures[i]))
			}
			continue
		}
		result.Items = append(result.Items, perFile[i]...)
	}

	if len(result.Failed) == len(files) {
		return result, errors.New(fmt.Errorf("all %d files in %s failed to parse: %w", len(files), dir, errors.Join(errs...))).
			Category(errors.CategoryFileParsing).
			Context("directory", dir).
			Build()
	}

	return result, nil
}

// MatchingFiles lists regular files in dir with one of exts (case-insensitive), sorted by name.
// A missing directory has no files.
func MatchingFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if HasExtension(e.Name(), exts) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// HasExtension reports whether name ends in one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
