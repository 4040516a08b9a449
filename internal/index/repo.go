package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/coleus/internal/apperr"
)

// PageRow represents a row in the pages table.
type PageRow struct {
	Path      string
	ID        string
	Title     string
	Kind      string
	Number    string
	Anchors   int
	Checksum  string
	BuildID   string
	UpdatedAt time.Time
}

// LinkRow is one outgoing cross-reference of a page.
type LinkRow struct {
	TargetID   string
	TargetPath string
	Anchor     int
	Resolved   bool
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertPage inserts or replaces a page, its FTS entry, and links within a transaction.
func (db *DB) UpsertPage(p PageRow, body string, links []LinkRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// Upsert pages table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO pages (path, id, title, kind, number, anchors, checksum, body, build_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id         = excluded.id,
			title      = excluded.title,
			kind       = excluded.kind,
			number     = excluded.number,
			anchors    = excluded.anchors,
			checksum   = excluded.checksum,
			body       = excluded.body,
			build_id   = excluded.build_id,
			updated_at = excluded.updated_at
	`, p.Path, p.ID, p.Title, p.Kind, p.Number, p.Anchors, p.Checksum, body, p.BuildID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert page: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, p.Path, p.Title, body); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, p.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target_id, target_path, anchor, resolved) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(p.Path, l.TargetID, l.TargetPath, l.Anchor, l.Resolved); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePage removes a page, its FTS entry, and outgoing links.
func (db *DB) DeletePage(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, path); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete page: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a page, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM pages WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const pageColumns = `path, id, title, kind, number, anchors, checksum, build_id, updated_at`

func scanPage(s interface{ Scan(...any) error }) (PageRow, error) {
	var p PageRow
	err := s.Scan(&p.Path, &p.ID, &p.Title, &p.Kind, &p.Number, &p.Anchors, &p.Checksum, &p.BuildID, &p.UpdatedAt)
	return p, err
}

// GetPage returns the indexed row for path, or apperr.ErrNotFound.
func (db *DB) GetPage(path string) (*PageRow, error) {
	p, err := scanPage(db.conn.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get page: %w", err)
	}
	return &p, nil
}

// ListPages returns pages ordered by path, optionally filtered by kind,
// together with the total number of matching rows.
func (db *DB) ListPages(kind string, limit, offset int) ([]PageRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pages WHERE ? = '' OR kind = ?`, kind, kind).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count pages: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT `+pageColumns+`
		FROM pages
		WHERE ? = '' OR kind = ?
		ORDER BY path
		LIMIT ? OFFSET ?
	`, kind, kind, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list pages: %w", err)
	}
	defer rows.Close()

	var out []PageRow
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the stored checksum of every indexed page.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns the paths of pages holding a resolved reference to targetID.
func (db *DB) Backlinks(targetID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target_id = ? AND resolved = 1 ORDER BY source`, targetID)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReplaceDiagnostics swaps the stored diagnostics for those of buildID.
func (db *DB) ReplaceDiagnostics(buildID string, diags apperr.Diagnostics) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM diagnostics`); err != nil {
		return fmt.Errorf("index: clear diagnostics: %w", err)
	}
	if len(diags) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO diagnostics (build_id, kind, path, target, message) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare diagnostic insert: %w", err)
		}
		defer stmt.Close()
		for _, d := range diags {
			if _, err := stmt.Exec(buildID, string(d.Kind), d.Path, d.Target, d.Message); err != nil {
				return fmt.Errorf("index: insert diagnostic: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Diagnostics returns the stored diagnostics, optionally filtered by kind,
// in the order they were reported.
func (db *DB) Diagnostics(kind string) (apperr.Diagnostics, error) {
	rows, err := db.conn.Query(`
		SELECT kind, path, target, message
		FROM diagnostics
		WHERE ? = '' OR kind = ?
		ORDER BY rowid
	`, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("index: diagnostics: %w", err)
	}
	defer rows.Close()

	var out apperr.Diagnostics
	for rows.Next() {
		var d apperr.Diagnostic
		var k string
		if err := rows.Scan(&k, &d.Path, &d.Target, &d.Message); err != nil {
			return nil, err
		}
		d.Kind = apperr.Kind(k)
		out = append(out, d)
	}
	return out, rows.Err()
}
