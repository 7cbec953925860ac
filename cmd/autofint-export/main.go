// Command autofint-export writes the whole ledger as CSV, newest first.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"autofint/internal/backend"
	"autofint/internal/cli"
	"autofint/internal/core"
	"autofint/internal/export"
	applog "autofint/internal/log"
)

func main() {
	out := flag.String("o", "", "output file (default stdout)")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	// Logs go to stderr so stdout stays a clean CSV stream.
	logger := applog.New(applog.Config{
		Component: applog.ComponentExport,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: applog.ParseLevel(cfg.LogLevel)}),
	})
	applog.SetDefault(logger)

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	// Export never publishes events.
	backendCfg.AMQPURL = ""
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create backend", "error", err)
		os.Exit(1)
	}
	defer result.Cleanup()

	n, err := run(ctx, result.Store, *out)
	if err != nil {
		logger.ErrorContext(ctx, "Export failed", "error", err)
		_ = result.Cleanup()
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Export complete", "rows", n, "output", outputName(*out))
}

type ledgerReader interface {
	QueryTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error)
}

func run(ctx context.Context, store ledgerReader, path string) (int, error) {
	txs, err := store.QueryTransactions(ctx, core.Filter{})
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := export.WriteCSV(bw, txs); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	return len(txs), nil
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
