package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/clemson-tix/tigertix/internal/config"
	"github.com/clemson-tix/tigertix/internal/connect"
	"github.com/clemson-tix/tigertix/internal/container"
	"github.com/clemson-tix/tigertix/internal/routes"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.Info("Starting TigerTix API server", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticketPool, err := openStore(ctx, cfg, logger, cfg.TicketsDBPath, connect.TicketSchema)
	if err != nil {
		logger.Error("Failed to open ticket store", "error", err)
		os.Exit(1)
	}
	identityPool, err := openStore(ctx, cfg, logger, cfg.IdentityDBPath, connect.IdentitySchema)
	if err != nil {
		logger.Error("Failed to open identity store", "error", err)
		_ = ticketPool.Close()
		os.Exit(1)
	}

	appContainer, err := container.NewContainer(cfg, logger, ticketPool, identityPool)
	if err != nil {
		logger.Error("Failed to build container", "error", err)
		_ = identityPool.Close()
		_ = ticketPool.Close()
		os.Exit(1)
	}

	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		appContainer.TokenSweeper.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("Server failed to start", "error", err)
		stop()
	}

	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	wg.Wait()

	// Close database connections
	if err := identityPool.Close(); err != nil {
		logger.Error("Error closing identity store", "error", err)
	}
	if err := ticketPool.Close(); err != nil {
		logger.Error("Error closing ticket store", "error", err)
	}

	logger.Info("Server exited")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, path, schema string) (*connect.Pool, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	return connect.OpenPool(ctx, connect.PoolConfig{
		Path:     path,
		PoolSize: cfg.DBPoolSize,
		Schema:   schema,
		Logger:   logger,
	})
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
