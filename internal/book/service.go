package book

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/coleus/internal/anchor"
	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/checksum"
	"github.com/starford/coleus/internal/hierarchy"
	"github.com/starford/coleus/internal/links"
	"github.com/starford/coleus/internal/metadata"
	"github.com/starford/coleus/internal/models"
	"github.com/starford/coleus/internal/storage"
)

// Options configures a Service.
type Options struct {
	// CorpusID is the installation id cross-references must carry.
	CorpusID string

	// TitleHeading prepends "# <title>" to every page before anchors are placed.
	TitleHeading bool

	// Strict fails the build when any diagnostic is reported.
	Strict bool

	// Workers bounds per-document concurrency; zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Service builds a book from a staged corpus.
type Service struct {
	store storage.Provider
	opts  Options
}

// NewService creates a build service reading the staged tree in store.
func NewService(store storage.Provider, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Service{store: store, opts: opts}
}

type document struct {
	page     Page
	body     []byte
	category models.CategoryMetadata
	entry    models.EntryMetadata
}

// Build parses every staged document, folds the outline and runs the
// per-document pipeline. Metadata and filesystem errors abort the build.
// Resolution problems are collected in Result.Diagnostics, or returned as an
// *apperr.StrictError when Options.Strict is set.
func (s *Service) Build(ctx context.Context) (*Result, error) {
	res := &Result{BuildID: uuid.NewString(), StartedAt: time.Now()}
	logger := s.opts.Logger.With(slog.String("build_id", res.BuildID))

	categories, err := collect(s.documents(ctx, storage.CategoriesDir, models.KindCategory))
	if err != nil {
		return nil, err
	}
	cat, diags := hierarchy.Categories(categorySources(categories))

	entries, err := collect(s.documents(ctx, storage.EntriesDir, models.KindEntry))
	if err != nil {
		return nil, err
	}
	outline, foldDiags, err := hierarchy.Fold(cat, entrySources(entries))
	if err != nil {
		return nil, err
	}
	diags = append(diags, foldDiags...)
	res.Outline = outline

	all := slices.Concat(categories, entries)
	if err := s.each(ctx, all, s.placeAnchors); err != nil {
		return nil, err
	}

	paths, counts, dupDiags := targets(cat, categories, entries)
	diags = append(diags, dupDiags...)
	res.Index = paths

	resolver := links.NewResolver(s.opts.CorpusID, paths, links.WithAnchorCounts(counts))
	linkDiags := make([]apperr.Diagnostics, len(all))
	err = s.each(ctx, all, func(i int, d *document) {
		r := resolver.Resolve(d.page.Path, d.page.Content)
		d.page.Content = r.Content
		d.page.References = r.References
		d.page.Checksum = checksum.Sum([]byte(r.Content))
		linkDiags[i] = r.Diagnostics
	})
	if err != nil {
		return nil, err
	}
	for _, ds := range linkDiags {
		diags = append(diags, ds...)
	}

	numbers := make(map[string]models.SectionNumber)
	for _, l := range outline.Links() {
		numbers[l.Path] = l.Number
	}
	res.Pages = make([]Page, len(all))
	for i, d := range all {
		d.page.Number = numbers[d.page.Path]
		res.Pages[i] = d.page
	}
	res.Diagnostics = diags
	res.FinishedAt = time.Now()

	for _, d := range diags {
		logger.Warn("build: diagnostic",
			slog.String("kind", string(d.Kind)),
			slog.String("path", d.Path),
			slog.String("target", d.Target),
			slog.String("message", d.Message),
		)
	}
	logger.Info("build: completed",
		slog.Int("pages", len(res.Pages)),
		slog.Int("categories", len(outline.Categories)),
		slog.Int("diagnostics", len(diags)),
		slog.Int("unresolved_categories", diags.Count(apperr.KindCategoryUnresolved)),
		slog.Int("unresolved_links", diags.Count(apperr.KindLinkUnresolved)),
		slog.Int("unresolved_anchors", diags.Count(apperr.KindAnchorUnresolved)),
		slog.Int("duplicate_ids", diags.Count(apperr.KindDuplicateID)),
		slog.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	)

	if s.opts.Strict && len(diags) > 0 {
		return nil, &apperr.StrictError{Diagnostics: diags}
	}
	return res, nil
}

// documents lazily reads and parses every page under dir.
func (s *Service) documents(ctx context.Context, dir string, kind models.DocumentKind) iter.Seq2[*document, error] {
	return func(yield func(*document, error) bool) {
		for fi, err := range s.store.Walk(dir) {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				yield(nil, err)
				return
			}
			d, err := s.parse(fi, kind)
			if !yield(d, err) || err != nil {
				return
			}
		}
	}
}

func (s *Service) parse(fi models.FileInfo, kind models.DocumentKind) (*document, error) {
	data, err := s.store.Read(fi.Path)
	if err != nil {
		return nil, fmt.Errorf("book: %s: %w", fi.Path, err)
	}
	d := &document{page: Page{ID: fi.ID(), Path: fi.Path, Kind: kind, UpdatedAt: fi.UpdatedAt}}
	switch kind {
	case models.KindCategory:
		d.category, d.body, err = metadata.ParseCategory(data)
		d.page.Title, d.page.Icon = d.category.Title, d.category.Icon
	default:
		d.entry, d.body, err = metadata.ParseEntry(data)
		d.page.Title, d.page.Icon = d.entry.Title, d.entry.Icon
	}
	if err != nil {
		return nil, fmt.Errorf("book: %s: %w", fi.Path, err)
	}
	return d, nil
}

func (s *Service) placeAnchors(_ int, d *document) {
	body := d.body
	if s.opts.TitleHeading {
		body = withHeading(d.page.Title, body)
	}
	out, n := anchor.Insert(body)
	d.page.Content = string(out)
	d.page.Anchors = n
}

// each runs fn over docs on at most Options.Workers goroutines.
func (s *Service) each(ctx context.Context, docs []*document, fn func(int, *document)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i, d)
			return nil
		})
	}
	return g.Wait()
}

func withHeading(title string, body []byte) []byte {
	out := make([]byte, 0, len(title)+len(body)+4)
	out = append(out, "# "...)
	out = append(out, title...)
	out = append(out, '\n')
	if len(body) > 0 {
		out = append(out, '\n')
		out = append(out, body...)
	}
	return out
}

// targets builds the id to path index cross-references resolve against,
// with the anchor count of every indexed page. Catalogued categories are
// indexed first, then entries in path order. An entry reusing an id already
// taken is reported and left out.
func targets(cat hierarchy.Catalog, categories, entries []*document) (map[string]string, map[string]int, apperr.Diagnostics) {
	paths := make(map[string]string, len(categories)+len(entries))
	counts := make(map[string]int, len(categories)+len(entries))
	byPath := make(map[string]*document, len(categories))
	for _, d := range categories {
		byPath[d.page.Path] = d
	}
	for c := range cat.All() {
		paths[c.ID] = c.Path
		counts[c.ID] = byPath[c.Path].page.Anchors
	}

	var diags apperr.Diagnostics
	for _, d := range entries {
		if prev, dup := paths[d.page.ID]; dup {
			diags = append(diags, apperr.Diagnostic{
				Kind:    apperr.KindDuplicateID,
				Path:    d.page.Path,
				Target:  d.page.ID,
				Message: fmt.Sprintf("document id already used by %s", prev),
			})
			continue
		}
		paths[d.page.ID] = d.page.Path
		counts[d.page.ID] = d.page.Anchors
	}
	return paths, counts, diags
}

func collect(seq iter.Seq2[*document, error]) ([]*document, error) {
	var out []*document
	for d, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func categorySources(docs []*document) []hierarchy.CategorySource {
	out := make([]hierarchy.CategorySource, len(docs))
	for i, d := range docs {
		out[i] = hierarchy.CategorySource{ID: d.page.ID, Path: d.page.Path, Meta: d.category}
	}
	return out
}

func entrySources(docs []*document) iter.Seq2[hierarchy.EntrySource, error] {
	return func(yield func(hierarchy.EntrySource, error) bool) {
		for _, d := range docs {
			if !yield(hierarchy.EntrySource{ID: d.page.ID, Path: d.page.Path, Meta: d.entry}, nil) {
				return
			}
		}
	}
}
