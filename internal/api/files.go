package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FileHandler serves the published mdBook sources read-only.
type FileHandler struct {
	root string
}

// NewFileHandler creates a handler rooted at the published output directory.
func NewFileHandler(root string) *FileHandler {
	return &FileHandler{root: root}
}

// safePath validates a slash-separated relative path and returns the
// absolute path under the output root.
func (h *FileHandler) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("path is required")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid path: %s", rel)
	}
	abs := filepath.Join(h.root, cleaned)
	// Double-check the resolved path is under the root.
	if !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes output directory")
	}
	return abs, nil
}

// ServeFile handles GET /api/files/*.
//
//	@Summary		Download a published file (SUMMARY.md, book.toml, pages)
//	@Tags			build
//	@Param			path	path	string	true	"Path below the output directory"
//	@Success		200		"File contents"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safePath(wildcardPath(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	info, statErr := os.Stat(abs)
	if statErr != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if strings.HasSuffix(abs, ".md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	http.ServeFile(w, r, abs)
}
