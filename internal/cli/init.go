// Package cli provides the bootstrapping shared by cmd/ledger-web,
// cmd/ledger-api and cmd/ledger-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"emoledger/internal/config"
	"emoledger/internal/log"
	"emoledger/internal/storage"
)

// SetupLogger creates the process logger at the given LOG_LEVEL and makes
// it the slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process when either step fails.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository at dbPath.
// Exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, storage.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err,
			"path", dbPath)
		os.Exit(1)
	}
	return repo
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM after cleanup has
// run, bounded by timeout; the channel closes once shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", log.FieldOperation, log.OpShutdown)
		} else {
			logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
