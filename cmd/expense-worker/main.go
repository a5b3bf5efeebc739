package main

import (
	"context"
	"os"

	_ "time/tzdata"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker, (*config.Config).ValidateWorker)

	logger.Info("Starting expense-worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	journal, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets journal initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	// Events published without a snapshot are completed from the shared
	// store. The memory backend lives in the API process, so it has none.
	var store worker.ExpenseGetter
	var cleanup backend.CleanupFunc
	if cfg.DataBackend != config.BackendMemory {
		backendConfig, err := backend.FromAppConfig(cfg)
		if err != nil {
			logger.Error("Invalid backend configuration", applog.FieldError, err)
			os.Exit(1)
		}
		backendConfig.AMQPURL = ""
		res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
		if err != nil {
			logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
			os.Exit(1)
		}
		store, cleanup = res.Store, res.Cleanup
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
		if cleanup != nil {
			if err := cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	w := worker.NewJournalWorker(journal, store)
	if err := w.Run(ctx, amqpClient); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		_ = amqpClient.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
