/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the PersonalMan absence server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the structured logger
  3. Open the store selected by DB_DRIVER
  4. Create services and API handler
  5. Start server with graceful shutdown

CONFIGURATION:
  APP_PORT, APP_ENV, LOG_LEVEL
  DB_DRIVER (sqlite|postgres), DB_PATH, DATABASE_URL
  JWT_SECRET (empty disables auth), JWT_EXPIRATION
  CORS_ORIGINS (comma separated)

  Flags override the environment:
  -port    HTTP server port
  -db      SQLite database path, ":memory:" for an in-memory database
  -driver  sqlite or postgres

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store/sqlite, store/postgres: Storage backends
*/
package main

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

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/api"
	"github.com/personalman/absence-server/config"
	"github.com/personalman/absence-server/directory"
	"github.com/personalman/absence-server/store/postgres"
	"github.com/personalman/absence-server/store/sqlite"
)

// backend is what both storage drivers provide.
type backend interface {
	absence.TxRepository
	absence.Directory
	directory.Store
	io.Closer
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	logger := api.NewLogger(os.Stdout, level).With(
		slog.String("app", "personalman"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	store, err := openStore(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	var auth *api.Auth
	if cfg.JWT.Enabled() {
		auth = api.NewAuth(cfg.JWT.Secret, cfg.JWT.Expiration)
	} else {
		logger.Warn("JWT_SECRET not set, authentication disabled")
	}

	handler := api.NewHandler(
		absence.NewService(store, store, logger.With(slog.String("component", "absence"))),
		directory.NewService(store, logger.With(slog.String("component", "directory"))),
		auth,
	)
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.Int("port", cfg.App.Port),
			slog.String("driver", cfg.Database.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, db config.DatabaseConfig) (backend, error) {
	switch db.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, db.URL)
	default:
		return sqlite.New(db.Path)
	}
}
