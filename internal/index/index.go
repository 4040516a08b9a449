package index

import "github.com/starford/coleus/internal/apperr"

// PageIndex defines the interface for build index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PageIndex interface {
	UpsertPage(p PageRow, body string, links []LinkRow) error
	DeletePage(path string) error
	GetChecksum(path string) (string, error)
	GetPage(path string) (*PageRow, error)
	ListPages(kind string, limit, offset int) ([]PageRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(targetID string) ([]string, error)
	AllChecksums() (map[string]string, error)
	ReplaceDiagnostics(buildID string, diags apperr.Diagnostics) error
	Diagnostics(kind string) (apperr.Diagnostics, error)
	Close() error
}

// Verify *DB satisfies PageIndex at compile time.
var _ PageIndex = (*DB)(nil)
