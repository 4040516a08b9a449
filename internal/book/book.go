// Package book runs the per-document pipeline over a staged corpus and
// assembles the outline.
package book

import (
	"slices"
	"time"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/links"
	"github.com/starford/coleus/internal/models"
)

// Page is a fully transformed document: metadata stripped, anchors inserted
// and cross-references resolved.
type Page struct {
	ID         string               `json:"id"`
	Path       string               `json:"path"`
	Title      string               `json:"title"`
	Icon       string               `json:"icon,omitempty"`
	Kind       models.DocumentKind  `json:"kind"`
	Number     models.SectionNumber `json:"number,omitempty"`
	Content    string               `json:"content"`
	Anchors    int                  `json:"anchors"`
	Checksum   string               `json:"checksum"`
	References []links.Reference    `json:"references,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Result is the outcome of one build.
type Result struct {
	BuildID     string             `json:"build_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Outline     models.Outline     `json:"outline"`
	Pages       []Page             `json:"pages"`
	Diagnostics apperr.Diagnostics `json:"diagnostics"`

	// Index maps each document id to the path its cross-references resolve to.
	Index map[string]string `json:"index"`
}

// Page returns the page at the given corpus-relative path.
func (r *Result) Page(path string) (Page, bool) {
	i := slices.IndexFunc(r.Pages, func(p Page) bool { return p.Path == path })
	if i < 0 {
		return Page{}, false
	}
	return r.Pages[i], true
}

// PageByID returns the page a cross-reference to id resolves to.
func (r *Result) PageByID(id string) (Page, bool) {
	path, ok := r.Index[id]
	if !ok {
		return Page{}, false
	}
	return r.Page(path)
}

// Backlinks returns the paths of pages holding a resolved reference to id.
func (r *Result) Backlinks(id string) []string {
	var out []string
	for _, p := range r.Pages {
		if slices.ContainsFunc(p.References, func(ref links.Reference) bool {
			return ref.Resolved && ref.TargetID == id
		}) {
			out = append(out, p.Path)
		}
	}
	return out
}
