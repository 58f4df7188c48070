// Package walk enumerates files by extension and aggregates per-directory
// statistics.
package walk

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/verte-zerg/txtconv/internal/model"
)

// VisitFunc processes one matching file. A returned error is recorded on the
// entry and the file is left out of the totals.
type VisitFunc func(path string, info os.FileInfo) (model.StatsEntry, error)

// Walker walks directory trees on an afero filesystem.
type Walker struct {
	fs  afero.Fs
	log *slog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) {
		if l != nil {
			w.log = l
		}
	}
}

// New constructs a Walker.
func New(fs afero.Fs, opts ...Option) *Walker {
	w := &Walker{fs: fs, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// MatchExt reports whether name ends in "."+ext. The comparison ignores case,
// ext may be given with or without its leading dot and may span several dots
// ("tar.gz").
func MatchExt(name, ext string) bool {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext))
}

// Files returns every matching path in walk order without visiting them.
func (w *Walker) Files(root, ext string, recursive bool) ([]string, error) {
	var paths []string
	err := w.each(root, ext, recursive, func(dir string, files []os.FileInfo) {
		for _, fi := range files {
			paths = append(paths, filepath.Join(dir, fi.Name()))
		}
	})
	return paths, err
}

// Walk visits every matching file in pre-order: all files of a directory
// before any of its subdirectories, names in lexical order. Directories
// without matching files are traversed but omitted from the result.
func (w *Walker) Walk(root, ext string, recursive bool, visit VisitFunc) (model.GrandTotal, error) {
	var total model.GrandTotal
	err := w.each(root, ext, recursive, func(dir string, files []os.FileInfo) {
		ds := model.DirectoryStats{Path: dir}
		for _, fi := range files {
			path := filepath.Join(dir, fi.Name())
			entry, err := visit(path, fi)
			if err != nil {
				w.log.Warn("file failed", "path", path, "err", err)
				entry = model.StatsEntry{Path: path, Err: err}
			}
			if entry.Path == "" {
				entry.Path = path
			}
			ds.Add(entry)
		}
		if len(ds.Entries) > 0 {
			total.Add(ds)
		}
	})
	return total, err
}

// each drives the traversal with an explicit stack.
func (w *Walker) each(root, ext string, recursive bool, fn func(dir string, files []os.FileInfo)) error {
	root = filepath.Clean(root)
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := afero.ReadDir(w.fs, dir)
		if err != nil {
			if dir == root {
				return fmt.Errorf("failed to read directory %s: %w", dir, err)
			}
			w.log.Warn("skipping unreadable directory", "path", dir, "err", err)
			continue
		}

		var files []os.FileInfo
		var subdirs []string
		for _, e := range entries {
			switch {
			case e.IsDir():
				if recursive {
					subdirs = append(subdirs, filepath.Join(dir, e.Name()))
				}
			case e.Mode().IsRegular() && MatchExt(e.Name(), ext):
				files = append(files, e)
			}
		}
		fn(dir, files)

		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}
