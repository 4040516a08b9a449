package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/library"
	"github.com/starford/coleus/internal/testutil"
)

// testEnv builds the sample corpus and returns a router over it.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*library.Library, http.Handler) {
	t.Helper()
	lib := testutil.BuiltLibrary(t)
	return lib, NewRouter(lib, authToken != "", authToken, nil)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetOutline(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/outline")
	if w.Code != http.StatusOK {
		t.Fatalf("outline status = %d, body = %s", w.Code, w.Body.String())
	}
	var outline Outline
	_ = json.Unmarshal(w.Body.Bytes(), &outline)
	if len(outline.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(outline.Categories))
	}
	plants := outline.Categories[0]
	if plants.Title != "Plants" || len(plants.Members) != 2 {
		t.Errorf("first category = %+v", plants)
	}
	if got := plants.Members[1].Path; got != "entries/deep/cacti.md" {
		t.Errorf("second member = %q", got)
	}
}

func TestGetOutline_NoBuild(t *testing.T) {
	lib, _ := testutil.TestLibrary(t)
	router := NewRouter(lib, false, "", nil)

	if w := get(t, router, "/outline"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("outline before build = %d, want 503", w.Code)
	}
	if w := get(t, router, "/build"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("build before build = %d, want 503", w.Code)
	}
}

func TestGetPage(t *testing.T) {
	_, router := testEnv(t, "")

	for _, target := range []string{"/pages/entries/ferns.md", "/pages/entries%2Fferns.md", "/pages/ferns"} {
		w := get(t, router, target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", target, w.Code)
		}
		var page PageDetail
		_ = json.Unmarshal(w.Body.Bytes(), &page)
		if page.Path != "entries/ferns.md" || page.Title != "Ferns" {
			t.Errorf("%s page = %+v", target, page.Page)
		}
		if !strings.Contains(page.Content, `<a id="1"></a>`) {
			t.Errorf("%s content missing anchor: %q", target, page.Content)
		}
		if len(page.Backlinks) != 2 {
			t.Errorf("%s backlinks = %v", target, page.Backlinks)
		}
	}
}

func TestGetPage_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := get(t, router, "/pages/nope.md"); w.Code != http.StatusNotFound {
		t.Errorf("missing page = %d, want 404", w.Code)
	}
}

func TestListPages(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/pages?kind=entry&limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp PageListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 4 || len(resp.Pages) != 2 {
		t.Errorf("total = %d, pages = %d", resp.Total, len(resp.Pages))
	}
	for _, p := range resp.Pages {
		if p.Kind != "entry" {
			t.Errorf("kind = %q", p.Kind)
		}
	}
}

func TestBacklinks(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/backlinks/ferns")
	var resp BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Paths) != 2 {
		t.Errorf("backlinks = %d %+v", w.Code, resp)
	}

	w = get(t, router, "/backlinks/unknown")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Paths == nil || len(resp.Paths) != 0 {
		t.Errorf("unknown backlinks = %v, want empty list", resp.Paths)
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/search?q=shade")
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Results) != 1 || resp.Results[0].Path != "entries/ferns.md" {
		t.Errorf("search = %d %+v", w.Code, resp)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestDiagnostics(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/diagnostics?kind=link_unresolved")
	var resp DiagnosticsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %d %+v", w.Code, resp)
	}
	if d := resp.Diagnostics[0]; d.Kind != apperr.KindLinkUnresolved || d.Path != "entries/deep/cacti.md" {
		t.Errorf("diagnostic = %+v", d)
	}

	w = get(t, router, "/diagnostics?kind=duplicate_id")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Diagnostics) != 0 {
		t.Errorf("duplicate diagnostics = %+v", resp.Diagnostics)
	}
}

func TestRebuild(t *testing.T) {
	lib, router := testEnv(t, "")
	first, _ := lib.Current()

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("rebuild = %d, body = %s", w.Code, w.Body.String())
	}
	var sum BuildSummary
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.BuildID == "" || sum.BuildID == first.BuildID || sum.Pages != 6 || sum.Diagnostics != 1 {
		t.Errorf("summary = %+v", sum)
	}

	w = get(t, router, "/build")
	var cur BuildSummary
	_ = json.Unmarshal(w.Body.Bytes(), &cur)
	if cur.BuildID != sum.BuildID {
		t.Errorf("current build = %q, want %q", cur.BuildID, sum.BuildID)
	}
}

func TestRebuild_MetadataError(t *testing.T) {
	lib, root := testutil.TestLibrary(t)
	testutil.WriteCorpus(t, root, testutil.BookName, map[string]string{"entries/bad.md": "no block\n"})
	router := NewRouter(lib, false, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("rebuild = %d, want 422", w.Code)
	}
}

func TestServeFile(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/files/src/SUMMARY.md")
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "# Summary") {
		t.Errorf("summary body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}

	if w := get(t, router, "/files/book.toml"); w.Code != http.StatusOK {
		t.Errorf("book.toml status = %d", w.Code)
	}
	if w := get(t, router, "/files/src/nope.md"); w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
	if w := get(t, router, "/files/src"); w.Code != http.StatusNotFound {
		t.Errorf("directory = %d, want 404", w.Code)
	}
}

func TestServeFile_TraversalBlocked(t *testing.T) {
	_, router := testEnv(t, "")

	for _, name := range []string{"..%2Fstage%2Fentries", "..%2F..%2Fetc%2Fpasswd"} {
		w := get(t, router, "/files/"+name)
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}

func TestAuthMiddleware_TokenMode(t *testing.T) {
	_, router := testEnv(t, "secret")

	// No token → 401.
	if w := get(t, router, "/outline"); w.Code != http.StatusUnauthorized {
		t.Errorf("no auth = %d, want 401", w.Code)
	}

	// Wrong token → 401.
	req := httptest.NewRequest(http.MethodGet, "/outline", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	// Correct token → 200.
	req = httptest.NewRequest(http.MethodGet, "/outline", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("correct token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	if w := get(t, router, "/pages"); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a dummy SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	lib, _ := testutil.TestLibrary(t)

	// Minimal SSE handler stub that writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(lib, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	if w := get(t, router, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
