// Package publish writes a built book in the layout the mdBook renderer reads.
package publish

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/starford/coleus/internal/book"
	"github.com/starford/coleus/internal/storage"
)

// Output layout, relative to the output root.
const (
	ManifestFile = "book.toml"
	SourceDir    = "src"
	SummaryFile  = "SUMMARY.md"
	OutlineFile  = "outline.json"
)

// Manifest is the renderer's book.toml.
type Manifest struct {
	Book  ManifestBook  `toml:"book"`
	Build ManifestBuild `toml:"build"`
}

// ManifestBook is the [book] table.
type ManifestBook struct {
	Title string `toml:"title"`
	Src   string `toml:"src"`
}

// ManifestBuild is the [build] table.
type ManifestBuild struct {
	BuildDir      string `toml:"build-dir"`
	CreateMissing bool   `toml:"create-missing"`
}

// NewManifest returns the manifest for a book titled title. The rendered
// site lands in a "book" directory next to the output root.
func NewManifest(title string) Manifest {
	return Manifest{
		Book:  ManifestBook{Title: title, Src: SourceDir},
		Build: ManifestBuild{BuildDir: "../book"},
	}
}

// Publish writes res into out: the staged tree (so non-page assets are
// carried along) overlaid with every transformed page, the summary, the
// manifest and the outline as JSON. The source directory is rebuilt from
// scratch.
func Publish(out storage.Provider, stageRoot, title string, res *book.Result) error {
	if err := out.Reset(SourceDir); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := storage.CopyTree(stageRoot, filepath.Join(out.Root(), SourceDir)); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	for _, p := range res.Pages {
		if err := out.Write(path.Join(SourceDir, p.Path), []byte(p.Content)); err != nil {
			return fmt.Errorf("publish: page %s: %w", p.Path, err)
		}
	}
	if err := out.Write(path.Join(SourceDir, SummaryFile), Summary(res.Outline)); err != nil {
		return fmt.Errorf("publish: summary: %w", err)
	}

	manifest, err := toml.Marshal(NewManifest(title))
	if err != nil {
		return fmt.Errorf("publish: encode manifest: %w", err)
	}
	if err := out.Write(ManifestFile, manifest); err != nil {
		return fmt.Errorf("publish: manifest: %w", err)
	}

	outline, err := json.MarshalIndent(res.Outline, "", "  ")
	if err != nil {
		return fmt.Errorf("publish: encode outline: %w", err)
	}
	if err := out.Write(OutlineFile, append(outline, '\n')); err != nil {
		return fmt.Errorf("publish: outline: %w", err)
	}
	return nil
}
