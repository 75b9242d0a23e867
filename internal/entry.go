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

	"github.com/starford/tablero/internal/api"
	"github.com/starford/tablero/internal/bookmarks"
	"github.com/starford/tablero/internal/dashboard"
	"github.com/starford/tablero/internal/fileworker"
	"github.com/starford/tablero/internal/kv"
	"github.com/starford/tablero/internal/mcpserver"
	"github.com/starford/tablero/internal/persist"
	"github.com/starford/tablero/internal/sse"
	"github.com/starford/tablero/internal/treeview"
)

const shutdownTimeout = 10 * time.Second

// stack is the storage and service graph shared by every entry point.
type stack struct {
	logger *slog.Logger
	coord  *persist.Coordinator
	svc    *dashboard.Service
	loaded *persist.Loaded

	fast, synced *kv.SQLite
	stopWorker   context.CancelFunc
	workerDone   chan struct{}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// open builds the tiers, starts the file worker and loads the first-paint
// document into a dashboard service.
func (a *application) open(ctx context.Context, logger *slog.Logger, svcOpts ...dashboard.Option) (*stack, error) {
	cfg := a.config.Storage

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	fast, err := kv.Open(cfg.LocalPath())
	if err != nil {
		return nil, fmt.Errorf("init local tier: %w", err)
	}
	synced, err := kv.Open(cfg.SyncedPath())
	if err != nil {
		fast.Close()
		return nil, fmt.Errorf("init synced tier: %w", err)
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := fileworker.New(logger)
	st := &stack{
		logger:     logger,
		fast:       fast,
		synced:     synced,
		stopWorker: stopWorker,
		workerDone: make(chan struct{}),
	}
	go func() {
		defer close(st.workerDone)
		_ = worker.Run(workerCtx)
	}()

	src := bookmarks.ChromeFile{Path: cfg.BookmarksFile}
	st.coord = persist.NewCoordinator(fast, synced, worker, logger,
		persist.WithBookmarks(src),
		persist.WithDebounce(cfg.Debounce),
		persist.WithAutoSync(cfg.AutoSync),
	)
	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			st.close()
			return nil, fmt.Errorf("create directory: %w", err)
		}
		if err := st.coord.UseDirectory(cfg.Directory); err != nil {
			st.close()
			return nil, err
		}
	}

	loaded, err := st.coord.Load(ctx)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("load document: %w", err)
	}
	st.loaded = loaded

	svcOpts = append(svcOpts, dashboard.WithBookmarkSource(src))
	st.svc = dashboard.NewService(st.coord, logger, svcOpts...)
	st.coord.OnFileResult(st.svc.HandleFileResult)
	st.svc.Apply(loaded.Doc)
	return st, nil
}

// close flushes the pending file write and releases the tiers.
func (st *stack) close() {
	if st.coord != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := st.coord.Flush(ctx); err != nil {
			st.logger.Error("flush pending write failed", slog.String("error", err.Error()))
		}
		cancel()
	}
	st.stopWorker()
	<-st.workerDone
	if err := st.fast.Close(); err != nil {
		st.logger.Warn("close local tier", slog.String("error", err.Error()))
	}
	if err := st.synced.Close(); err != nil {
		st.logger.Warn("close synced tier", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Storage.DataDir),
		slog.String("directory", cfg.Storage.Directory),
		slog.Duration("debounce", cfg.Storage.Debounce),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.App.HTTP.ChangeThrottle)
	defer broker.Close()

	st, err := app.open(ctx, logger, dashboard.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer st.close()

	apiRouter := api.NewRouter(st.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", st.loaded.Source))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-read the slower tier once the first paint is served.
	g.Go(func() error {
		if err := st.svc.Refresh(gCtx); err != nil && gCtx.Err() == nil {
			logger.Warn("background refresh failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Follow external edits of the on-disk document.
	g.Go(func() error {
		return st.coord.Watch(gCtx, st.svc.Reload)
	})

	// Add bookmarks created in the browser while running.
	if cfg.Storage.BookmarksFile != "" {
		src := bookmarks.ChromeFile{Path: cfg.Storage.BookmarksFile}
		g.Go(func() error {
			return src.Watch(gCtx, logger, func() {
				n, err := st.svc.ImportBookmarks(gCtx)
				if err != nil {
					logger.Warn("bookmark import failed", slog.String("error", err.Error()))
					return
				}
				if n > 0 {
					logger.Info("bookmarks imported", slog.Int("added", n))
				}
			})
		})
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the run group once the server has been shut down, so the
// watcher and refresh goroutines stop too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, app.config.App.LogLevel)
	slog.SetDefault(logger)

	st, err := app.open(ctx, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.svc.Refresh(ctx); err != nil {
		logger.Warn("refresh failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("source", st.loaded.Source))
	return mcpserver.New(st.svc).ServeStdio()
}

// PrintTree loads the document and writes it as a tree.
func PrintTree(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, max(app.config.App.LogLevel, slog.LevelWarn))

	st, err := app.open(ctx, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.svc.Refresh(ctx); err != nil {
		logger.Warn("refresh failed", slog.String("error", err.Error()))
	}

	_, err = fmt.Fprintln(app.out, treeview.Render(st.svc.Document(), "Tablero", app.tree))
	return err
}
