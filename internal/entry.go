// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/coleus/internal/api"
	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/index"
	"github.com/starford/coleus/internal/library"
	"github.com/starford/coleus/internal/mcpserver"
	"github.com/starford/coleus/internal/sse"
	"github.com/starford/coleus/internal/watcher"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", output: os.Stdout, logOut: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// open initializes logging, the index and the library shared by all commands.
// The returned cleanup closes the index.
func (app *application) open(libOpts ...library.Option) (*library.Library, *slog.Logger, func(), error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("book", cfg.Book.Name),
		slog.String("corpus_id", cfg.Book.ID),
		slog.String("source_path", cfg.Book.Path),
		slog.String("work_dir", cfg.Build.WorkDir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("strict", cfg.Build.Strict),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create index dir: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init index: %w", err)
	}

	lib, err := library.New(cfg.Library(), db, logger, libOpts...)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("init library: %w", err)
	}
	return lib, logger, func() { db.Close() }, nil
}

// Build stages, builds, publishes and indexes the book once and prints
// every diagnostic. In strict mode any diagnostic fails the build.
func Build(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	lib, logger, cleanup, err := app.open()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := lib.Rebuild(ctx)
	var strict *apperr.StrictError
	if errors.As(err, &strict) {
		for _, d := range strict.Diagnostics {
			fmt.Fprintln(app.output, d.Error())
		}
	}
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	for _, d := range res.Diagnostics {
		fmt.Fprintln(app.output, d.Error())
	}
	logger.Info("Book published",
		slog.String("build_id", res.BuildID),
		slog.String("output", lib.OutputRoot()),
		slog.Int("pages", len(res.Pages)),
		slog.Int("diagnostics", len(res.Diagnostics)))
	return nil
}

// Outline builds the book and prints its outline as JSON.
func Outline(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	lib, _, cleanup, err := app.open()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := lib.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Outline)
}

// ServeMCP builds the book and exposes it through an MCP stdio server.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	lib, logger, cleanup, err := app.open()
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := lib.Rebuild(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(lib, app.version)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// Run builds the book and serves the preview API, rebuilding on source changes.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	lib, logger, cleanup, err := app.open(library.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer cleanup()

	// Run initial build.
	if _, err := lib.Rebuild(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(lib, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := lib.Current(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no build"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Start source watcher; every debounced batch triggers a rebuild.
	g.Go(func() error {
		if err := lib.Watch(gCtx, watcher.DefaultDebounce); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stop the watcher.
		cancel()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
