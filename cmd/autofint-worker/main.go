package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"autofint/internal/amqp"
	"autofint/internal/cli"
	"autofint/internal/config"
	"autofint/internal/export/sheets"
	applog "autofint/internal/log"
	"autofint/internal/storage"
	"autofint/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	ctx := context.Background()
	logger.InfoContext(ctx, "Starting autofint-worker")

	if cfg.DataBackend != config.BackendSQLite {
		// The worker reads the ledger the server wrote; a memory store is
		// private to its process.
		logger.ErrorContext(ctx, "Worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if !cfg.MirrorEnabled() {
		logger.ErrorContext(ctx, "Nothing to do: GOOGLE_SPREADSHEET_ID is not set")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	mirror, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize Google Sheets mirror", "error", err)
		_ = repo.Close()
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Google Sheets mirror initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize AMQP client", "error", err)
			_ = repo.Close()
			os.Exit(1)
		}
	} else {
		logger.InfoContext(ctx, "AMQP_URL not set, mirroring on the periodic schedule only",
			"interval", cfg.SyncInterval)
	}

	mirrorWorker := worker.NewMirrorWorker(repo, mirror)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.ErrorContext(ctx, "AMQP close error", "error", err)
			}
		}
	})

	g, gctx := errgroup.WithContext(runCtx)
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeTransactionEvents(gctx, mirrorWorker.HandleEvent)
		})
	}
	g.Go(func() error {
		return mirrorWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Worker stopped with error", "error", err)
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		_ = repo.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	if err := repo.Close(); err != nil {
		logger.ErrorContext(ctx, "Repository close error", "error", err)
	}
	last, rows := mirrorWorker.Status()
	logger.InfoContext(ctx, "Worker stopped gracefully", "last_sync", last, "rows", rows)
}
