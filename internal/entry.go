// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/tissue/internal/api"
	"github.com/starford/tissue/internal/index"
	"github.com/starford/tissue/internal/mcpserver"
	"github.com/starford/tissue/internal/noteservice"
	"github.com/starford/tissue/internal/sse"
	"github.com/starford/tissue/internal/storage"
	"github.com/starford/tissue/internal/workflow"
)

// App carries the configuration and collaborators shared by every command.
type App struct {
	config  *Config
	editor  workflow.Editor
	out     io.Writer
	logOut  io.Writer
	version string

	logger  *slog.Logger
	closeFn func() error
}

// New builds the application from options and installs its logger as the
// slog default.
func New(opts ...Option) (*App, error) {
	app := &App{
		out:     os.Stdout,
		logOut:  os.Stderr,
		version: "dev",
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.editor == nil {
		app.editor = workflow.NewCommandEditor(app.config.Editor.Command)
	}

	app.logger, app.closeFn = NewLogger(app.config.App, app.logOut)
	slog.SetDefault(app.logger)
	return app, nil
}

// Close releases the log file, if any.
func (a *App) Close() error {
	return a.closeFn()
}

// NewLogger builds the structured JSON logger. When cfg.LogFile is set the
// logs go to a size-rotated file instead of w.
func NewLogger(cfg ApplicationConfig, w io.Writer) (*slog.Logger, func() error) {
	closeFn := func() error { return nil }
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w, closeFn = lj, lj.Close
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closeFn
}

// openStore makes sure the notebook directory exists and opens it.
func (a *App) openStore() (storage.Provider, error) {
	if err := os.MkdirAll(a.config.Notebook.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create notebook dir: %w", err)
	}
	store, err := storage.NewFS(a.config.Notebook.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// NewHTTPHandler assembles the HTTP surface: health checks plus the API
// mounted under /api.
func NewHTTPHandler(cfg *Config, svc *noteservice.Service, events http.Handler) http.Handler {
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
		_, _ = fmt.Fprintf(w, `{"status":"ok","notes":%d}`, svc.Len())
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))
	return r
}

// Serve runs the HTTP API, the SSE stream and the notebook watcher until
// ctx is cancelled or a shutdown signal arrives.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.config
	logger := a.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notebook_path", cfg.Notebook.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := a.openStore()
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, err := noteservice.New(store,
		noteservice.WithIndex(db),
		noteservice.WithPublisher(broker),
		noteservice.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open notebook: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHTTPHandler(cfg, svc, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Changes made behind our back (another editor, git pull) reopen the notebook.
	g.Go(func() error {
		return index.Watch(gCtx, cfg.Notebook.Path, index.DefaultDebounce, logger, func(names []string) {
			logger.Debug("notebook changed on disk", slog.Any("files", names))
			_ = svc.Reload(gCtx)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Returning an error cancels gCtx, which stops the watcher.
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

// ServeMCP exposes the notebook to an MCP client over stdio. Logs must not
// go to stdout here, which is the transport.
func (a *App) ServeMCP(_ context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	db, err := index.Open(a.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	svc, err := noteservice.New(store,
		noteservice.WithIndex(db),
		noteservice.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("open notebook: %w", err)
	}
	a.logger.Info("MCP server starting", slog.String("notebook_path", a.config.Notebook.Path))
	return mcpserver.New(svc, a.version).ServeStdio()
}
