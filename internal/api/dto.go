package api

import (
	"time"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/book"
	"github.com/starford/coleus/internal/index"
	"github.com/starford/coleus/internal/library"
	"github.com/starford/coleus/internal/models"
)

// Outline is the book outline (aliased from the domain layer).
type Outline = models.Outline

// PageDetail is the full page response type (aliased from the domain layer).
type PageDetail = library.PageDetail

// PageListItem is a lightweight item in a list response.
type PageListItem struct {
	Path      string    `json:"path" example:"entries/ferns.md" validate:"required"`
	ID        string    `json:"id" example:"ferns" validate:"required"`
	Title     string    `json:"title" example:"Ferns" validate:"required"`
	Kind      string    `json:"kind" example:"entry" validate:"required"`
	Number    string    `json:"number,omitempty" example:"1.2."`
	Anchors   int       `json:"anchors" example:"3"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageListResponse wraps paginated page listings.
type PageListResponse struct {
	Pages []PageListItem `json:"pages" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"entries/ferns.md" validate:"required"`
	Title   string `json:"title" example:"Ferns" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the pages referencing a document.
type BacklinksResponse struct {
	ID    string   `json:"id" example:"ferns" validate:"required"`
	Paths []string `json:"paths" validate:"required"`
}

// DiagnosticsResponse wraps the diagnostics of the latest indexed build.
type DiagnosticsResponse struct {
	Diagnostics apperr.Diagnostics `json:"diagnostics" validate:"required"`
}

// BuildSummary describes one build without its page contents.
type BuildSummary struct {
	BuildID     string    `json:"build_id" example:"0b8a..." validate:"required"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Pages       int       `json:"pages" example:"120"`
	Diagnostics int       `json:"diagnostics" example:"2"`
}

// BuildFailure is returned when a build stops on errors.
type BuildFailure struct {
	Error       string             `json:"error" validate:"required"`
	Diagnostics apperr.Diagnostics `json:"diagnostics,omitempty"`
}

func pageListItem(r index.PageRow) PageListItem {
	return PageListItem{
		Path:      r.Path,
		ID:        r.ID,
		Title:     r.Title,
		Kind:      r.Kind,
		Number:    r.Number,
		Anchors:   r.Anchors,
		Checksum:  r.Checksum,
		UpdatedAt: r.UpdatedAt,
	}
}

func buildSummary(res *book.Result) BuildSummary {
	return BuildSummary{
		BuildID:     res.BuildID,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Pages:       len(res.Pages),
		Diagnostics: len(res.Diagnostics),
	}
}
