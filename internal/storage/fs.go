package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the root directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w: %w", apperr.ErrFilesystem, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %w: root is not a directory: %s", apperr.ErrFilesystem, abs)
	}
	return &FS{root: abs}, nil
}

// OpenFS creates root if needed and returns an FS rooted there.
func OpenFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w: %w", root, apperr.ErrFilesystem, err)
	}
	return NewFS(root)
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// Walk yields every .md file below dir. Errors are wrapped with
// apperr.ErrFilesystem and the failing path, and end the sequence.
func (f *FS) Walk(dir string) iter.Seq2[models.FileInfo, error] {
	return func(yield func(models.FileInfo, error) bool) {
		base, err := f.safePath(dir)
		if err != nil {
			yield(models.FileInfo{}, err)
			return
		}
		stopped := false
		err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return fmt.Errorf("%s: %w", p, walkErr)
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			rel, err := filepath.Rel(f.root, p)
			if err != nil {
				return err
			}
			if !yield(models.FileInfo{Path: filepath.ToSlash(rel), UpdatedAt: info.ModTime()}, nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(models.FileInfo{}, fmt.Errorf("storage: walk %s: %w: %w", dir, apperr.ErrFilesystem, err))
		}
	}
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w: %w", path, apperr.ErrFilesystem, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %w", apperr.ErrFilesystem, err)
	}

	tmp, err := os.CreateTemp(dir, ".coleus-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %w", apperr.ErrFilesystem, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w: %w", apperr.ErrFilesystem, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %w", apperr.ErrFilesystem, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %w", apperr.ErrFilesystem, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename %s: %w: %w", path, apperr.ErrFilesystem, err)
	}
	success = true
	return nil
}

// Reset empties dir, creating it when missing. Resetting the root itself is
// refused.
func (f *FS) Reset(dir string) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to reset root %s", f.root)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: reset %s: %w: %w", dir, apperr.ErrFilesystem, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: reset %s: %w: %w", dir, apperr.ErrFilesystem, err)
	}
	return nil
}
