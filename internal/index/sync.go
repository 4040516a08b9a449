package index

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/starford/coleus/internal/book"
	"github.com/starford/coleus/internal/checksum"
)

// Sync brings the index up to date with a build result:
//   - new/changed pages are upserted
//   - pages absent from the result are deleted from the index
//   - stored diagnostics are replaced by the result's
func Sync(db PageIndex, res *book.Result, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	built := make(map[string]struct{}, len(res.Pages))
	var upserted, removed int
	for _, p := range res.Pages {
		built[p.Path] = struct{}{}

		row := Row(p, res.BuildID)
		if checksums[p.Path] == row.Checksum {
			continue
		}
		if err := db.UpsertPage(row, p.Content, Links(p)); err != nil {
			return fmt.Errorf("index: sync %s: %w", p.Path, err)
		}
		upserted++
		logger.Debug("sync: indexed", slog.String("path", p.Path))
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := built[p]; ok {
			continue
		}
		if err := db.DeletePage(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	if err := db.ReplaceDiagnostics(res.BuildID, res.Diagnostics); err != nil {
		return err
	}
	logger.Info("sync: done",
		slog.String("build_id", res.BuildID),
		slog.Int("upserted", upserted),
		slog.Int("removed", removed),
	)
	return nil
}

// Row converts a built page into its index row. The row checksum covers
// everything the row stores, so a renumbered page with unchanged content
// is still rewritten.
func Row(p book.Page, buildID string) PageRow {
	return PageRow{
		Path:      p.Path,
		ID:        p.ID,
		Title:     p.Title,
		Kind:      string(p.Kind),
		Number:    p.Number.String(),
		Anchors:   p.Anchors,
		Checksum:  checksum.Of(p.Checksum, p.ID, p.Title, string(p.Kind), p.Number.String(), strconv.Itoa(p.Anchors)),
		BuildID:   buildID,
		UpdatedAt: p.UpdatedAt,
	}
}

// Links converts the page's cross-references into link rows.
func Links(p book.Page) []LinkRow {
	out := make([]LinkRow, len(p.References))
	for i, r := range p.References {
		out[i] = LinkRow{TargetID: r.TargetID, TargetPath: r.Path, Anchor: r.Anchor, Resolved: r.Resolved}
	}
	return out
}
