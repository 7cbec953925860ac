package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"autofint/internal/backend"
	"autofint/internal/cli"
	apphttp "autofint/internal/http"
	applog "autofint/internal/log"
	"autofint/internal/services"
	"autofint/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	categories := services.NewCategoryService(result.Store)
	if _, err := categories.SeedDefaults(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to seed categories", "error", err)
		_ = result.Cleanup()
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:     services.NewLedgerService(result.Store, categories, result.Publisher),
		Categories: categories,
		Reports:    services.NewReportService(result.Store),
		Sessions:   session.NewManager(cfg.AppPIN),
		Logger:     logger,
	}, apphttp.Options{
		CacheTTL:           cfg.CacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.ErrorContext(ctx, "Backend cleanup error", "error", err)
		}
	})

	logger.InfoContext(ctx, "Starting autofint server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"pin_gate", cfg.AppPIN != "",
		"events", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", "error", err, "port", cfg.Port)
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.InfoContext(ctx, "Server stopped gracefully")
}
