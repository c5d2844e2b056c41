package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(applog.ComponentWorker, cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	if res.AMQP == nil {
		// CreateBackend tolerates an unreachable broker; the worker cannot.
		logger.Error("AMQP broker unreachable", "url_configured", cfg.AMQPURL != "")
		_ = res.Cleanup()
		os.Exit(1)
	}

	sh, err := factory.CreateSheets(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	if sh.Exporter == nil {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewEventWorker(res.Store, sh.Exporter, sh.Budgets)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	if sh.Exporter != nil {
		go w.RunExportSweep(ctx, cfg.SyncBatchSize, cfg.SyncInterval)
	}

	logger.Info("Starting ledger-worker",
		applog.FieldOperation, applog.OpStartup,
		"backend", backendCfg.Type,
		"sync_batch_size", cfg.SyncBatchSize,
		"sync_interval", cfg.SyncInterval,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	if err := res.AMQP.Consume(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
