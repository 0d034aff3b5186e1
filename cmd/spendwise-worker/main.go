package main

import (
	"context"
	"errors"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/log"
	gsheet "spendwise/internal/sheets/google"
	"spendwise/internal/storage/sqlite"
	"spendwise/internal/worker"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, logger, err := cli.LoadConfig(log.ComponentWorker)
	if err != nil {
		cli.Fatal(logger, "Failed to load configuration", err)
	}
	logger.Info("Starting spendwise-worker")

	if err := cfg.ValidateWorker(); err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	// The worker mirrors the current state of each expense, read from sqlite
	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err, "path", cfg.SQLiteDBPath)
	}
	defer repo.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	mw := worker.NewMirrorWorker(repo, mirror, logger)
	caches := cache.NewManager()
	mw.RegisterCaches(caches)
	caches.StartCleanup(cacheSweepInterval)
	defer caches.Stop()

	logger.Info("Consuming expense events", "queue", cfg.AMQPQueue, "prefetch", cfg.WorkerPrefetch)
	if err := client.Consume(ctx, cfg.WorkerPrefetch, mw.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return
	}
	logger.Info("Worker stopped")
}
