package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"emoledger/internal/amqp"
	"emoledger/internal/api"
	"emoledger/internal/cli"
	"emoledger/internal/log"
	"emoledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	gin.SetMode(gin.ReleaseMode)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	opts := []services.Option{services.WithLogger(logger)}
	if cfg.EventsEnabled() {
		dialCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		client, err := amqp.NewClient(dialCtx, amqp.Config{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
		}, logger)
		cancel()
		if err != nil {
			// Events are optional; the API keeps working without them.
			logger.Error("Failed to initialize AMQP client, expense events disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Expense events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP_URL not set, expense events disabled")
	}
	svc := services.NewExpenseService(repo, opts...)

	router := api.NewRouter(svc, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		HealthCheck:    repo.Ping,
		ExpenseCount:   repo.CountExpenses,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close expense service", log.FieldError, err)
		}
	})

	logger.Info("Starting ledger API",
		log.FieldOperation, log.OpStartup,
		"port", cfg.APIPort,
		"db", cfg.SQLiteDBPath,
		"allowed_origins", cfg.AllowedOrigins)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.APIPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger API stopped gracefully")
}
