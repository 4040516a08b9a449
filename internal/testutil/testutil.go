// Package testutil provides shared test helpers for setting up corpora, libraries and databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/coleus/internal/index"
	"github.com/starford/coleus/internal/library"
)

// Book and corpus id used by the sample corpus.
const (
	BookName = "guide"
	CorpusID = "mybook"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "coleus-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Meta wraps a JSON object in a metadata block.
func Meta(json string) string {
	return "```json\n" + json + "\n```\n\n"
}

// SampleCorpus returns a small book keyed by book-relative path.
func SampleCorpus() map[string]string {
	return map[string]string{
		"categories/plants.md":   Meta(`{"title": "Plants", "ordinal": 1}`) + "All about plants.\n",
		"categories/tools.md":    Meta(`{"title": "Tools", "ordinal": 2}`),
		"entries/welcome.md":     Meta(`{"title": "Welcome"}`) + "Start with [Ferns](^mybook:ferns).\n",
		"entries/ferns.md":       Meta(`{"title": "Ferns", "category": "mybook:plants", "ordinal": 1}`) + "Ferns like shade.\n\n;;;;;\n\nSpores.\n",
		"entries/deep/cacti.md":  Meta(`{"title": "Cacti", "category": "mybook:plants", "ordinal": 2}`) + "See [ferns](^mybook:ferns#1) and [gone](^mybook:nothing).\n",
		"entries/tools/spade.md": Meta(`{"title": "Spade", "category": "mybook:tools"}`) + "Dig.\n",
	}
}

// WriteCorpus writes files below root, placing each under the book's
// subdirectory: "entries/a.md" lands in root/entries/<book>/a.md.
func WriteCorpus(t *testing.T, root, book string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		top, rest, _ := strings.Cut(rel, "/")
		p := filepath.Join(root, top, book, filepath.FromSlash(rest))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestLibrary writes the sample corpus to a temp dir and returns a library
// over it, along with the source root. The library is not built yet.
func TestLibrary(t *testing.T, opts ...library.Option) (*library.Library, string) {
	t.Helper()
	root := t.TempDir()
	WriteCorpus(t, root, BookName, SampleCorpus())

	lib, err := library.New(library.Config{
		Name:         BookName,
		CorpusID:     CorpusID,
		SourceRoot:   root,
		WorkDir:      t.TempDir(),
		TitleHeading: true,
		Workers:      2,
	}, TestDB(t), Logger(), opts...)
	if err != nil {
		t.Fatalf("library.New: %v", err)
	}
	return lib, root
}

// BuiltLibrary is TestLibrary followed by a successful rebuild.
func BuiltLibrary(t *testing.T, opts ...library.Option) *library.Library {
	t.Helper()
	lib, _ := TestLibrary(t, opts...)
	if _, err := lib.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return lib
}
