package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(applog.ComponentApp, cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	ledger := services.NewLedgerService(res.Store, res.Publisher)
	reports := services.NewReportService(res.Store)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, reports, apphttp.Options{
		Logger:      logger,
		RecentLimit: cfg.RecentTransactionsLimit,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting ledger server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", backendCfg.Type,
		"amqp_enabled", res.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
