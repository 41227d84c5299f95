package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	shopassist "github.com/set-night/shopassist"
	"github.com/set-night/shopassist/internal/catalog"
	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/handler"
	"github.com/set-night/shopassist/internal/middleware"
	"github.com/set-night/shopassist/internal/repository"
	"github.com/set-night/shopassist/internal/service"
	"github.com/set-night/shopassist/internal/telegram"
	"github.com/set-night/shopassist/internal/widget"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries, err := openEntryStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	store := repository.NewClientStore(entries)
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()
	slog.Info("store ready", "driver", cfg.StoreDriver)

	// Initialize services
	directLine := service.NewDirectLineClient(cfg.DirectLineBaseURL, cfg.DirectLineTokenURL)
	sessions := service.NewSessionManager(directLine, service.DefaultSessionConfig())

	opts := []widget.Option{}
	tgLogger, err := telegram.NewTelegramLogger(cfg)
	if err != nil {
		slog.Error("failed to create telegram logger", "error", err)
		os.Exit(1)
	}
	if tgLogger != nil {
		opts = append(opts, widget.WithAlerter(tgLogger))
		slog.Info("telegram ops logging enabled", "chat_id", cfg.LogTelegramChatID)
	}
	controller := widget.NewController(sessions, store, opts...)

	// Initialize handler
	h := handler.New(handler.Deps{
		Cfg:      cfg,
		Widget:   controller,
		Catalog:  catalog.New(catalog.DefaultProducts()),
		Products: store,
	})

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Recover())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Identity(!cfg.IsDevelopment()))
	r.Use(middleware.Logging())
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start idle client and stale entry cleanup goroutine
	go func() {
		ticker := time.NewTicker(config.EntryCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := controller.Evict(config.ClientIdleTimeout); n > 0 {
					slog.Info("idle clients evicted", "count", n)
				}
				n, err := store.DeleteStale(context.Background(), config.EntryRetention)
				if err != nil {
					slog.Error("cleanup stale entries", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("stale entries removed", "count", n)
				}
			}
		}
	}()

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	controller.Close()

	slog.Info("server stopped gracefully")
}

func openEntryStore(ctx context.Context, cfg *config.Config) (repository.EntryStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		migrations, err := fs.Sub(shopassist.MigrationsFS, "migrations")
		if err != nil {
			return nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		store, err := repository.OpenPostgres(ctx, cfg.DatabaseURL, migrations)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreDriverSQLite:
		return repository.NewSQLiteStore(cfg.SQLitePath)
	default:
		return repository.NewMemoryStore(), nil
	}
}
