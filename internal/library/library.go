// Package library keeps the published book current: it stages the sources,
// builds, publishes and indexes, and answers queries about the latest build.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/book"
	"github.com/starford/coleus/internal/index"
	"github.com/starford/coleus/internal/models"
	"github.com/starford/coleus/internal/publish"
	"github.com/starford/coleus/internal/sse"
	"github.com/starford/coleus/internal/storage"
	"github.com/starford/coleus/internal/watcher"
)

// Work directory layout.
const (
	StageDir  = "stage"
	OutputDir = "mdbook"
)

// Config describes one book and how to build it.
type Config struct {
	Name         string // book name, also the subdirectory under categories/ and entries/
	CorpusID     string
	SourceRoot   string
	WorkDir      string
	Strict       bool
	TitleHeading bool
	Workers      int
}

// Publisher receives build lifecycle events.
type Publisher interface {
	PublishBuild(ev sse.BuildEvent)
}

// Option configures a Library.
type Option func(*Library)

// WithPublisher sends build events to p.
func WithPublisher(p Publisher) Option {
	return func(l *Library) { l.events = p }
}

// PageDetail is a built page with the pages that reference it.
type PageDetail struct {
	book.Page
	Backlinks []string `json:"backlinks"`
}

// Library coordinates the build pipeline with the index.
type Library struct {
	cfg    Config
	stage  *storage.FS
	out    *storage.FS
	db     index.PageIndex
	logger *slog.Logger
	events Publisher

	building atomic.Bool
	current  atomic.Pointer[book.Result]
}

// New creates a Library, preparing the work directory.
func New(cfg Config, db index.PageIndex, logger *slog.Logger, opts ...Option) (*Library, error) {
	stage, err := storage.OpenFS(filepath.Join(cfg.WorkDir, StageDir))
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}
	out, err := storage.OpenFS(filepath.Join(cfg.WorkDir, OutputDir))
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}
	l := &Library{cfg: cfg, stage: stage, out: out, db: db, logger: logger}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Rebuild stages, builds, publishes and indexes the book. Only one rebuild
// runs at a time; a concurrent call fails with apperr.ErrBuildRunning. On
// failure the previous build stays current.
func (l *Library) Rebuild(ctx context.Context) (*book.Result, error) {
	if !l.building.CompareAndSwap(false, true) {
		return nil, apperr.ErrBuildRunning
	}
	defer l.building.Store(false)

	l.publish(sse.BuildEvent{Status: sse.BuildStarted})
	res, err := l.rebuild(ctx)
	if err != nil {
		ev := sse.BuildEvent{Status: sse.BuildFailed, Error: err.Error()}
		var strict *apperr.StrictError
		if errors.As(err, &strict) {
			ev.Diagnostics = len(strict.Diagnostics)
		}
		l.publish(ev)
		return nil, err
	}

	l.current.Store(res)
	l.publish(sse.BuildEvent{
		Status:      sse.BuildCompleted,
		BuildID:     res.BuildID,
		Pages:       len(res.Pages),
		Diagnostics: len(res.Diagnostics),
	})
	return res, nil
}

func (l *Library) rebuild(ctx context.Context) (*book.Result, error) {
	if err := storage.Stage(l.cfg.SourceRoot, l.cfg.Name, l.stage); err != nil {
		return nil, fmt.Errorf("library: stage: %w", err)
	}

	svc := book.NewService(l.stage, book.Options{
		CorpusID:     l.cfg.CorpusID,
		TitleHeading: l.cfg.TitleHeading,
		Strict:       l.cfg.Strict,
		Workers:      l.cfg.Workers,
		Logger:       l.logger,
	})
	res, err := svc.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err := publish.Publish(l.out, l.stage.Root(), l.cfg.Name, res); err != nil {
		return nil, err
	}
	if err := index.Sync(l.db, res, l.logger); err != nil {
		return nil, err
	}
	return res, nil
}

func (l *Library) publish(ev sse.BuildEvent) {
	if l.events != nil {
		l.events.PublishBuild(ev)
	}
}

// Watch rebuilds whenever a source page changes, until ctx is cancelled.
func (l *Library) Watch(ctx context.Context, debounce time.Duration) error {
	return watcher.Watch(ctx, l.SourceDirs(), debounce, l.logger, func(paths []string) {
		l.logger.Info("library: sources changed", slog.Int("files", len(paths)))
		if _, err := l.Rebuild(ctx); err != nil {
			l.logger.Error("library: rebuild failed", slog.String("error", err.Error()))
		}
	})
}

// SourceDirs returns the source directories of the book.
func (l *Library) SourceDirs() []string {
	return []string{
		filepath.Join(l.cfg.SourceRoot, storage.CategoriesDir, l.cfg.Name),
		filepath.Join(l.cfg.SourceRoot, storage.EntriesDir, l.cfg.Name),
	}
}

// OutputRoot returns the directory holding the published book.
func (l *Library) OutputRoot() string {
	return l.out.Root()
}

// Current returns the latest successful build.
func (l *Library) Current() (*book.Result, error) {
	res := l.current.Load()
	if res == nil {
		return nil, apperr.ErrNoBuild
	}
	return res, nil
}

// Outline returns the outline of the latest build.
func (l *Library) Outline(_ context.Context) (models.Outline, error) {
	res, err := l.Current()
	if err != nil {
		return models.Outline{}, err
	}
	return res.Outline, nil
}

// Page returns a page of the latest build by path, or by document id when
// no page has that path.
func (l *Library) Page(_ context.Context, pathOrID string) (*PageDetail, error) {
	res, err := l.Current()
	if err != nil {
		return nil, err
	}
	p, ok := res.Page(pathOrID)
	if !ok {
		p, ok = res.PageByID(pathOrID)
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	backlinks, err := l.db.Backlinks(p.ID)
	if err != nil {
		return nil, err
	}
	return &PageDetail{Page: p, Backlinks: nonNilSlice(backlinks)}, nil
}

// Pages lists indexed pages, optionally filtered by kind.
func (l *Library) Pages(_ context.Context, kind string, limit, offset int) ([]index.PageRow, int, error) {
	return l.db.ListPages(kind, limit, offset)
}

// Search delegates full-text search to the index.
func (l *Library) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return l.db.Search(query, limit)
}

// Backlinks returns the paths of pages referencing the document id.
func (l *Library) Backlinks(_ context.Context, id string) ([]string, error) {
	out, err := l.db.Backlinks(id)
	return nonNilSlice(out), err
}

// Diagnostics returns the diagnostics of the latest indexed build.
func (l *Library) Diagnostics(_ context.Context, kind string) (apperr.Diagnostics, error) {
	out, err := l.db.Diagnostics(kind)
	if out == nil {
		out = apperr.Diagnostics{}
	}
	return out, err
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
