package main

import (
	"context"
	"errors"
	"os"
	"time"

	"emoledger/internal/amqp"
	"emoledger/internal/cli"
	"emoledger/internal/log"
	"emoledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the worker", log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	logger.Info("Starting ledger worker", log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	client, err := amqp.NewClient(ctx, amqp.Config{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
		Queue:    cfg.AMQPQueue,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	audit := worker.NewAuditWorker(logger)
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		audit.Run(ctx, cfg.AuditInterval)
	}()

	if err := client.ConsumeExpenseRecorded(ctx, audit.HandleExpenseRecorded); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		client.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	<-auditDone
	logger.Info("Ledger worker stopped gracefully")
}
