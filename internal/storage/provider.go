// Package storage defines the file-system abstraction for corpus and build trees.
package storage

import (
	"iter"

	"github.com/starford/coleus/internal/models"
)

// Provider is the interface for file operations under a single root.
// All paths are relative to the root and slash-separated.
type Provider interface {
	// Root returns the absolute directory the provider is rooted at.
	Root() string
	// Walk yields every .md file under dir in lexical order. The sequence
	// reads the file system lazily and may be ranged over more than once.
	Walk(dir string) iter.Seq2[models.FileInfo, error]
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Reset removes dir and everything below it, then recreates it empty.
	Reset(dir string) error
}
