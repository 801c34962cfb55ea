// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/starford/asteria/internal/api"
	"github.com/starford/asteria/internal/index"
	"github.com/starford/asteria/internal/mcpserver"
	"github.com/starford/asteria/internal/projectservice"
	"github.com/starford/asteria/internal/source"
	"github.com/starford/asteria/internal/sse"
	"github.com/starford/asteria/internal/storage"
	"github.com/starford/asteria/internal/store"
	"github.com/starford/asteria/internal/watcher"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	db      *index.DB
	svc     *projectservice.Service
	exports storage.Provider
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Error("close index", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newRuntime opens the index and builds the source, store and service.
func newRuntime(app *application, extra ...projectservice.Option) (*runtime, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source_kind", cfg.Source.Kind),
		slog.Int64("project_id", cfg.Source.ProjectID),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	src, err := newSource(cfg.Source)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.ExportPath, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	exports, err := storage.NewFS(cfg.Storage.ExportPath)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Locally generated ids must stay above every id handed out before a restart.
	floor, err := db.MaxModelID(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read max model id: %w", err)
	}
	st := store.New(store.WithIDFloor(floor))

	svcOpts := append([]projectservice.Option{
		projectservice.WithLayout(cfg.Layout),
		projectservice.WithLogger(logger),
	}, extra...)
	svc := projectservice.New(cfg.Source.ProjectID, src, st, db, svcOpts...)

	return &runtime{cfg: cfg, logger: logger, db: db, svc: svc, exports: exports}, nil
}

func newSource(cfg SourceConfig) (source.Source, error) {
	switch cfg.Kind {
	case SourceKindFile:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create source dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init source storage: %w", err)
		}
		return source.NewFile(fs, cfg.sanitizer()), nil
	default:
		return source.NewHTTP(cfg.Endpoint, nil, cfg.Timeout, cfg.sanitizer()), nil
	}
}

// initialLoad fetches the project once. Failure is not fatal: the service
// stays up and serves an empty diagram until a reload succeeds.
func (rt *runtime) initialLoad(ctx context.Context) {
	if _, err := rt.svc.Load(ctx); err != nil {
		rt.logger.Warn("initial project load failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := newRuntime(app, projectservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger, svc := rt.cfg, rt.logger, rt.svc
	rt.initialLoad(ctx)

	apiRouter := api.NewRouter(svc, cfg.Layout, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", readyHandler(svc))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the project when its local document changes.
	if cfg.Source.Kind == SourceKindFile && cfg.Source.Watch {
		g.Go(func() error {
			err := watcher.Watch(gCtx, cfg.Source.Dir, source.DocumentNames(cfg.Source.ProjectID),
				watcher.DefaultDebounce, logger, func(ctx context.Context, name string) {
					if _, err := svc.Load(ctx); err != nil {
						logger.Warn("reload after change failed",
							slog.String("file", name), slog.String("error", err.Error()))
					}
				})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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

		// SSE streams only end when the broker closes.
		broker.Close()

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

func readyHandler(svc *projectservice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := api.ReadyResponse{Status: "ok", ProjectID: svc.ProjectID(), Loaded: svc.Loaded()}
		status := http.StatusOK
		if !resp.Loaded {
			resp.Status = "loading"
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr because stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := newRuntime(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.initialLoad(ctx)
	return mcpserver.New(rt.svc, rt.exports).ServeStdio()
}

// RunLayout loads the project once and writes its diagram as JSON to w, or
// to out inside the export directory when out is not empty.
func RunLayout(ctx context.Context, w io.Writer, out string, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := newRuntime(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.svc.Load(ctx); err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	data, err := json.MarshalIndent(rt.svc.Diagram(ctx).Diagram, "", "  ")
	if err != nil {
		return fmt.Errorf("encode diagram: %w", err)
	}
	data = append(data, '\n')

	if out == "" {
		_, err = w.Write(data)
		return err
	}
	if err := rt.exports.Write(out, data); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	rt.logger.Info("Diagram written",
		slog.String("path", out),
		slog.String("root", rt.exports.Root()),
		slog.Int("nodes", len(rt.svc.Diagram(ctx).Diagram.Nodes)))
	return nil
}
