package publish

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/starford/coleus/internal/book"
	"github.com/starford/coleus/internal/models"
	"github.com/starford/coleus/internal/storage"
)

func outline() models.Outline {
	return models.Outline{
		Prefix: []models.Link{{Title: "Read [me]", Path: "entries/readme.md"}},
		Categories: []models.Category{
			{
				ID:      "guide",
				Title:   "Guide",
				Landing: models.Link{Title: "Guide", Path: "categories/guide.md", Number: models.SectionNumber{1}},
				Members: []models.Link{
					{Title: "Beta", Path: "entries/sub/beta.md", Number: models.SectionNumber{1, 1}},
					{Title: "Alpha", Path: "entries/my alpha.md", Number: models.SectionNumber{1, 2}},
				},
			},
			{
				ID:      "extra",
				Title:   "Extra",
				Landing: models.Link{Title: "Extra", Path: "categories/extra.md", Number: models.SectionNumber{2}},
				Members: []models.Link{},
			},
		},
	}
}

func TestSummary(t *testing.T) {
	want := "# Summary\n\n" +
		"[Read \\[me\\]](entries/readme.md)\n" +
		"\n# Guide\n\n" +
		"- [Guide](categories/guide.md)\n" +
		"    - [Beta](entries/sub/beta.md)\n" +
		"    - [Alpha](entries/my%20alpha.md)\n" +
		"\n# Extra\n\n" +
		"- [Extra](categories/extra.md)\n"
	if got := string(Summary(outline())); got != want {
		t.Errorf("Summary =\n%s\nwant\n%s", got, want)
	}
}

func TestPublish(t *testing.T) {
	stageDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(stageDir, "entries", "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stageDir, "entries", "img", "fern.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stageDir, "entries", "readme.md"), []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_ = out.Write("src/stale.md", []byte("left over"))

	res := &book.Result{
		Outline: outline(),
		Pages:   []book.Page{{ID: "readme", Path: "entries/readme.md", Content: "# Readme\n"}},
	}
	if err := Publish(out, stageDir, "My Book", res); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	page, err := out.Read("src/entries/readme.md")
	if err != nil || string(page) != "# Readme\n" {
		t.Errorf("page = %q, %v", page, err)
	}
	if _, err := out.Read("src/entries/img/fern.png"); err != nil {
		t.Errorf("asset not copied: %v", err)
	}
	if _, err := out.Read("src/stale.md"); err == nil {
		t.Error("stale file survived publish")
	}
	if _, err := out.Read("src/SUMMARY.md"); err != nil {
		t.Errorf("summary: %v", err)
	}

	raw, err := out.Read(ManifestFile)
	if err != nil {
		t.Fatalf("Read manifest: %v", err)
	}
	var m Manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		t.Fatalf("Unmarshal manifest: %v", err)
	}
	if m.Book.Title != "My Book" || m.Book.Src != "src" || m.Build.BuildDir != "../book" {
		t.Errorf("manifest = %+v", m)
	}

	raw, err = out.Read(OutlineFile)
	if err != nil {
		t.Fatalf("Read outline: %v", err)
	}
	var o models.Outline
	if err := json.Unmarshal(raw, &o); err != nil {
		t.Fatalf("Unmarshal outline: %v", err)
	}
	if len(o.Categories) != 2 || o.Categories[0].Members[1].Number.String() != "1.2." {
		t.Errorf("outline = %+v", o)
	}
}
