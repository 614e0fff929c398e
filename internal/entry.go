// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mdbridge/internal/api"
	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/engine"
	"github.com/starford/mdbridge/internal/export"
	"github.com/starford/mdbridge/internal/index"
	"github.com/starford/mdbridge/internal/mcpserver"
	"github.com/starford/mdbridge/internal/metrics"
	"github.com/starford/mdbridge/internal/sse"
	"github.com/starford/mdbridge/internal/storage"
)

// components are the long-lived services shared by every run mode.
type components struct {
	logger   *slog.Logger
	store    *storage.FS
	db       *index.DB
	engine   *engine.Engine
	exporter *export.Exporter
	recorder *metrics.PrometheusRecorder
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logWriter: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup builds the logger, vault storage, index and engine, and brings the
// index up to date. The caller closes c.db.
func (a *application) setup() (*components, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logWriter, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("detector_mode", cfg.Convert.DetectorMode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder(nil)
	engOpts := append(cfg.Convert.EngineOptions(),
		engine.WithCanvasResolver(docservice.CanvasResolver(store)),
		engine.WithRecorder(recorder),
	)
	eng := engine.New(engOpts...)

	exporter := export.New(eng,
		export.WithWorkers(cfg.Export.Workers),
		export.WithLogger(logger),
		export.WithRecorder(recorder),
	)

	// Run initial sync.
	if err := index.Sync(db, store, eng, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &components{
		logger:   logger,
		store:    store,
		db:       db,
		engine:   eng,
		exporter: exporter,
		recorder: recorder,
	}, nil
}

// Run starts the HTTP API, the SSE broker and the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := app.setup()
	if err != nil {
		return err
	}
	defer c.db.Close()
	logger := c.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := docservice.NewService(c.store, c.db, c.engine, c.exporter,
		docservice.WithPublisher(broker),
		docservice.WithLogger(logger),
	)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", c.recorder.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return index.Watch(gCtx, c.db, c.store, c.engine, c.store.Root(), logger, broker.PublishNoteEvent)
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Cancels gCtx so the watcher exits too.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogWriter(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := app.setup()
	if err != nil {
		return err
	}
	defer c.db.Close()

	svc := docservice.NewService(c.store, c.db, c.engine, c.exporter, docservice.WithLogger(c.logger))
	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}

// Export writes vault notes (all when paths is empty) to out: a ZIP archive
// when out ends in ".zip", otherwise a directory.
func Export(ctx context.Context, out string, paths []string, opts ...Option) (*export.Result, error) {
	app, err := newApplication(append([]Option{WithLogWriter(os.Stderr)}, opts...))
	if err != nil {
		return nil, err
	}
	c, err := app.setup()
	if err != nil {
		return nil, err
	}
	defer c.db.Close()

	svc := docservice.NewService(c.store, c.db, c.engine, c.exporter, docservice.WithLogger(c.logger))
	serOpts := c.engine.Defaults()

	if strings.EqualFold(filepath.Ext(out), ".zip") {
		f, err := os.Create(out)
		if err != nil {
			return nil, fmt.Errorf("create archive: %w", err)
		}
		res, err := svc.Export(ctx, f, paths, serOpts)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		return res, err
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	dst, err := storage.NewFS(out)
	if err != nil {
		return nil, err
	}
	return svc.ExportTo(ctx, dst, paths, serOpts)
}
