package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/library"
)

// Handler holds API route handlers.
type Handler struct {
	lib *library.Library
}

// NewHandler creates a new Handler.
func NewHandler(lib *library.Library) *Handler {
	return &Handler{lib: lib}
}

// wildcardPath extracts the path matched by a trailing "*" route pattern.
// Supports encoded slashes from OpenAPI clients (e.g. entries%2Fferns.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetOutline handles GET /api/outline.
//
//	@Summary		Get the outline of the latest build
//	@Tags			book
//	@Produce		json
//	@Success		200	{object}	Outline
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/outline [get]
func (h *Handler) GetOutline(w http.ResponseWriter, r *http.Request) {
	outline, err := h.lib.Outline(r.Context())
	if err != nil {
		writeLookupError(w, "get outline", err)
		return
	}
	writeJSON(w, http.StatusOK, outline)
}

// ListPages handles GET /api/pages.
//
//	@Summary		List indexed pages with optional pagination and filtering
//	@Tags			book
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			kind	query		string	false	"Filter by kind"	Enums(category, entry)
//	@Success		200		{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	kind := q.Get("kind")

	rows, total, err := h.lib.Pages(r.Context(), kind, limit, offset)
	if err != nil {
		slog.Error("list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]PageListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, pageListItem(row))
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: items, Total: total})
}

// GetPage handles GET /api/pages/*.
//
//	@Summary		Get a built page by path or document id
//	@Tags			book
//	@Produce		json
//	@Param			path	path		string	true	"Page path or document id"
//	@Success		200		{object}	PageDetail
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	page, err := h.lib.Page(r.Context(), path)
	if err != nil {
		writeLookupError(w, "get page", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Backlinks handles GET /api/backlinks/{id}.
//
//	@Summary		List pages referencing a document
//	@Tags			book
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{id} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	paths, err := h.lib.Backlinks(r.Context(), id)
	if err != nil {
		slog.Error("backlinks failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{ID: id, Paths: paths})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across pages
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.lib.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{Path: hit.Path, Title: hit.Title, Snippet: hit.Snippet})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetBuild handles GET /api/build.
//
//	@Summary		Describe the latest successful build
//	@Tags			build
//	@Produce		json
//	@Success		200	{object}	BuildSummary
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/build [get]
func (h *Handler) GetBuild(w http.ResponseWriter, _ *http.Request) {
	res, err := h.lib.Current()
	if err != nil {
		writeLookupError(w, "get build", err)
		return
	}
	writeJSON(w, http.StatusOK, buildSummary(res))
}

// Rebuild handles POST /api/rebuild.
//
//	@Summary		Rebuild and publish the book
//	@Tags			build
//	@Produce		json
//	@Success		200	{object}	BuildSummary
//	@Failure		409	{object}	errResponse
//	@Failure		422	{object}	BuildFailure
//	@Security		BearerAuth
//	@Router			/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.lib.Rebuild(r.Context())
	if err != nil {
		var strict *apperr.StrictError
		switch {
		case errors.Is(err, apperr.ErrBuildRunning):
			writeJSON(w, http.StatusConflict, errorBody("build already running"))
		case errors.As(err, &strict):
			writeJSON(w, http.StatusUnprocessableEntity, BuildFailure{Error: err.Error(), Diagnostics: strict.Diagnostics})
		case errors.Is(err, apperr.ErrMetadataMissing), errors.Is(err, apperr.ErrMetadataInvalid):
			writeJSON(w, http.StatusUnprocessableEntity, BuildFailure{Error: err.Error()})
		default:
			slog.Error("rebuild failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, buildSummary(res))
}

// Diagnostics handles GET /api/diagnostics.
//
//	@Summary		List diagnostics of the latest indexed build
//	@Tags			build
//	@Produce		json
//	@Param			kind	query		string	false	"Filter by kind"	Enums(category_unresolved, link_unresolved, anchor_unresolved, duplicate_id)
//	@Success		200		{object}	DiagnosticsResponse
//	@Security		BearerAuth
//	@Router			/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	diags, err := h.lib.Diagnostics(r.Context(), kind)
	if err != nil {
		slog.Error("diagnostics failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DiagnosticsResponse{Diagnostics: diags})
}
