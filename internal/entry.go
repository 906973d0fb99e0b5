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

	"github.com/starford/luhmann/internal/api"
	"github.com/starford/luhmann/internal/index"
	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/mcpserver"
	"github.com/starford/luhmann/internal/noteservice"
	"github.com/starford/luhmann/internal/sse"
	"github.com/starford/luhmann/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// NewLogger returns the JSON logger used by every entry point.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Workspace is an opened vault with its index and note service.
type Workspace struct {
	Config  *Config
	Logger  *slog.Logger
	Store   storage.Provider
	DB      *index.DB
	Grammar *luhmann.Grammar
	Service *noteservice.Service
}

// Close closes the index database.
func (w *Workspace) Close() error {
	return w.DB.Close()
}

// Open opens the configured vault and index and syncs them. The logger
// defaults to JSON on stderr.
func Open(opts ...Option) (*Workspace, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	if app.logger == nil {
		app.logger = NewLogger(os.Stderr, app.config.App.LogLevel)
	}
	return app.open()
}

func (a *application) open(svcOpts ...noteservice.Option) (*Workspace, error) {
	cfg := a.config
	logger := a.logger

	g, err := cfg.Grammar()
	if err != nil {
		return nil, fmt.Errorf("init grammar: %w", err)
	}

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Notes.Extension)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if _, err := index.Sync(db, store, g, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svcOpts = append([]noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithRecursive(cfg.Vault.Recursive),
		noteservice.WithIDFormat(cfg.Notes.IDFormat),
	}, svcOpts...)

	return &Workspace{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      db,
		Grammar: g,
		Service: noteservice.NewService(store, db, g, svcOpts...),
	}, nil
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	ws, err := Open(opts...)
	if err != nil {
		return err
	}
	defer ws.Close()

	ws.Logger.Info("MCP server starting", slog.String("vault_path", ws.Config.Vault.Path))
	return mcpserver.New(ws.Service).ServeStdio()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	if app.logger == nil {
		app.logger = NewLogger(os.Stdout, cfg.App.LogLevel)
	}
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	ws, err := app.open(noteservice.WithViewListener(func(v noteservice.ViewDetail) {
		broker.PublishView(v.Name, v)
	}))
	if err != nil {
		return err
	}
	defer ws.Close()

	apiRouter := api.NewRouter(ws.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := ws.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, ws.DB, ws.Store, ws.Grammar, logger, broker.PublishNoteEvent); err != nil {
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
