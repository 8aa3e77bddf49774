package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"splitledger/internal/amqp"
	"splitledger/internal/config"
	"splitledger/internal/log"
	"splitledger/internal/services"
	"splitledger/internal/sheets"
	gsheet "splitledger/internal/sheets/google"
	"splitledger/internal/storage"
	"splitledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentWorker,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialect, err := storage.ParseDialect(cfg.DataBackend)
	if err != nil {
		logger.Error("Unsupported data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	dsn := cfg.SQLiteDBPath
	if dialect == storage.DialectPostgres {
		dsn = cfg.DatabaseURL
	}
	repo, err := storage.Open(ctx, dialect, dsn)
	if err != nil {
		logger.Error("Failed to open storage", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer repo.Close()

	// Google Sheets export is optional
	var exporter sheets.SummaryExporter
	if cfg.ExportEnabled() {
		exp, err := gsheet.NewExporter(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporter = exp
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Without a broker the worker still sweeps every group on a timer
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Warn("AMQP disabled - relying on periodic audits only")
	}

	auditor := services.NewAuditProcessor(repo, exporter, logger)
	auditWorker := worker.NewAuditWorker(auditor, consumer, cfg.AuditInterval, logger)

	if err := auditWorker.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
