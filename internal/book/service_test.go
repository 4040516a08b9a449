package book

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/models"
	"github.com/starford/coleus/internal/storage"
)

func meta(json string) string {
	return "```json\n" + json + "\n```\n\n"
}

func stage(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for _, dir := range []string{storage.CategoriesDir, storage.EntriesDir} {
		if err := store.Reset(dir); err != nil {
			t.Fatalf("Reset: %v", err)
		}
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}
	return store
}

func corpus() map[string]string {
	return map[string]string{
		"categories/guide.md": meta(`{"title": "Guide", "ordinal": 1}`) + "Welcome.\n",
		"categories/extra.md": meta(`{"title": "Extra"}`),
		"entries/alpha.md":    meta(`{"title": "Alpha", "category": "mybook:guide"}`) + "First.\n\n;;;;;\n\nSecond.\n\n;;;;;\n\nThird.\n",
		"entries/sub/beta.md": meta(`{"title": "Beta", "category": "mybook:guide", "ordinal": 0}`) + "[See Alpha](^mybook:alpha#2)\n",
		"entries/readme.md":   meta(`{"title": "Readme"}`) + "Top.\n",
		"entries/lost.md":     meta(`{"title": "Lost", "category": "mybook:nowhere"}`) + "[x](^mybook:ghost)\n",
	}
}

func newService(store storage.Provider, strict bool) *Service {
	return NewService(store, Options{
		CorpusID:     "mybook",
		TitleHeading: true,
		Strict:       strict,
		Workers:      2,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestBuild_Outline(t *testing.T) {
	res, err := newService(stage(t, corpus()), false).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.BuildID == "" {
		t.Error("missing build id")
	}

	o := res.Outline
	if len(o.Prefix) != 1 || o.Prefix[0].Path != "entries/readme.md" {
		t.Errorf("prefix = %+v", o.Prefix)
	}
	if len(o.Categories) != 2 || o.Categories[0].ID != "guide" || o.Categories[1].ID != "extra" {
		t.Fatalf("categories = %+v", o.Categories)
	}
	var got []string
	for _, l := range o.Links() {
		got = append(got, l.Number.String()+" "+l.Path)
	}
	want := []string{
		" entries/readme.md",
		"1. categories/guide.md",
		"1.1. entries/sub/beta.md",
		"1.2. entries/alpha.md",
		"2. categories/extra.md",
	}
	if !slices.Equal(got, want) {
		t.Errorf("links = %q, want %q", got, want)
	}
}

func TestBuild_PageContent(t *testing.T) {
	res, err := newService(stage(t, corpus()), false).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	alpha, ok := res.Page("entries/alpha.md")
	if !ok {
		t.Fatal("alpha page missing")
	}
	wantAlpha := "# Alpha\n\nFirst.\n\n<a id=\"1\"></a>\n\nSecond.\n\n<a id=\"2\"></a>\n\nThird.\n"
	if alpha.Content != wantAlpha {
		t.Errorf("alpha content = %q, want %q", alpha.Content, wantAlpha)
	}
	if alpha.Anchors != 2 || alpha.Kind != models.KindEntry {
		t.Errorf("alpha = %+v", alpha)
	}
	if alpha.Number.String() != "1.2." {
		t.Errorf("alpha number = %v", alpha.Number)
	}

	beta, _ := res.PageByID("beta")
	if beta.Content != "# Beta\n\n[See Alpha](../alpha.md#2)\n" {
		t.Errorf("beta content = %q", beta.Content)
	}
	if beta.Checksum == "" {
		t.Error("beta checksum empty")
	}
	if got := res.Backlinks("alpha"); !slices.Equal(got, []string{"entries/sub/beta.md"}) {
		t.Errorf("Backlinks(alpha) = %v", got)
	}

	extra, _ := res.Page("categories/extra.md")
	if extra.Content != "# Extra\n" || extra.Kind != models.KindCategory {
		t.Errorf("extra = %+v", extra)
	}
}

func TestBuild_Diagnostics(t *testing.T) {
	res, err := newService(stage(t, corpus()), false).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n := res.Diagnostics.Count(apperr.KindCategoryUnresolved); n != 1 {
		t.Errorf("category diagnostics = %d", n)
	}
	if n := res.Diagnostics.Count(apperr.KindLinkUnresolved); n != 1 {
		t.Errorf("link diagnostics = %d", n)
	}
	if len(res.Diagnostics) != 2 {
		t.Errorf("diagnostics = %v", res.Diagnostics)
	}
	lost, _ := res.Page("entries/lost.md")
	if lost.Content != "# Lost\n\n[x]()\n" {
		t.Errorf("lost content = %q", lost.Content)
	}
}

func TestBuild_NoTitleHeading(t *testing.T) {
	store := stage(t, map[string]string{
		"entries/a.md":        meta(`{"title": "A"}`) + "Body.\n",
	})
	svc := NewService(store, Options{CorpusID: "mybook", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	res, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p, _ := res.Page("entries/a.md"); p.Content != "Body.\n" {
		t.Errorf("content = %q", p.Content)
	}
}

func TestBuild_Strict(t *testing.T) {
	_, err := newService(stage(t, corpus()), true).Build(context.Background())
	var strict *apperr.StrictError
	if !errors.As(err, &strict) {
		t.Fatalf("err = %v, want StrictError", err)
	}
	if len(strict.Diagnostics) != 2 || !errors.Is(err, apperr.ErrLinkUnresolved) {
		t.Errorf("strict diagnostics = %v", strict.Diagnostics)
	}
}

func TestBuild_StrictCleanCorpus(t *testing.T) {
	files := corpus()
	delete(files, "entries/lost.md")
	if _, err := newService(stage(t, files), true).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestBuild_MissingMetadataIsFatal(t *testing.T) {
	files := corpus()
	files["entries/deep/bad.md"] = "# No metadata here\n"
	_, err := newService(stage(t, files), false).Build(context.Background())
	if !errors.Is(err, apperr.ErrMetadataMissing) {
		t.Fatalf("err = %v, want ErrMetadataMissing", err)
	}
	if !strings.Contains(err.Error(), "entries/deep/bad.md") {
		t.Errorf("error lacks path: %v", err)
	}
}

func TestBuild_InvalidCategoryIsFatal(t *testing.T) {
	files := corpus()
	files["categories/broken.md"] = meta(`{"icon": "x"}`)
	_, err := newService(stage(t, files), false).Build(context.Background())
	if !errors.Is(err, apperr.ErrMetadataInvalid) {
		t.Fatalf("err = %v, want ErrMetadataInvalid", err)
	}
}

func TestBuild_DuplicateEntryID(t *testing.T) {
	files := corpus()
	files["entries/zz/readme.md"] = meta(`{"title": "Second readme"}`)
	res, err := newService(stage(t, files), false).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n := res.Diagnostics.Count(apperr.KindDuplicateID); n != 1 {
		t.Fatalf("duplicate diagnostics = %d: %v", n, res.Diagnostics)
	}
	if res.Index["readme"] != "entries/readme.md" {
		t.Errorf("index[readme] = %q", res.Index["readme"])
	}
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newService(stage(t, corpus()), false).Build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
