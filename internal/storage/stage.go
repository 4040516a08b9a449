package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/coleus/internal/apperr"
)

// Corpus subdirectories. A book named n keeps its category landing pages
// under categories/n and its entries under entries/n of the source root.
const (
	CategoriesDir = "categories"
	EntriesDir    = "entries"
)

// Stage copies the category and entry trees of the named book from
// sourceRoot into dst, as dst/categories and dst/entries. Both targets are
// emptied first so removed sources do not linger between builds.
func Stage(sourceRoot, book string, dst *FS) error {
	for _, sub := range []string{CategoriesDir, EntriesDir} {
		src := filepath.Join(sourceRoot, sub, book)
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("storage: stage %s: %w: %w", src, apperr.ErrFilesystem, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage: stage %s: %w: not a directory", src, apperr.ErrFilesystem)
		}
		if err := dst.Reset(sub); err != nil {
			return err
		}
		if err := CopyTree(src, filepath.Join(dst.root, sub)); err != nil {
			return err
		}
	}
	return nil
}

// CopyTree copies the directory src into dst, which must be empty or absent.
func CopyTree(src, dst string) error {
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return fmt.Errorf("storage: copy %s: %w: %w", src, apperr.ErrFilesystem, err)
	}
	return nil
}
