package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"emoledger/internal/cli"
	apphttp "emoledger/internal/http"
	"emoledger/internal/ledgerapi"
	"emoledger/internal/log"
	"emoledger/internal/view"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	client := ledgerapi.New(cfg.LedgerAPIURL,
		ledgerapi.WithTimeout(cfg.APIRequestTimeout),
		ledgerapi.WithLogger(logger))
	v := view.New(client, view.WithLogger(logger))

	srv := apphttp.NewServer(":"+cfg.Port, v, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2*cfg.APIRequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting ledger web server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"ledger_api", client.BaseURL())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
