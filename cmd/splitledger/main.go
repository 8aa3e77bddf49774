package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"splitledger/internal/amqp"
	"splitledger/internal/cache"
	"splitledger/internal/config"
	apphttp "splitledger/internal/http"
	"splitledger/internal/log"
	"splitledger/internal/services"
	"splitledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

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

	// Ledger changes are announced only when a broker is configured
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	summaries := cache.NewSummaryCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(ctx, cfg.SummaryCacheTTL)
	defer cacheManager.Stop()

	ledgerService := services.NewLedgerService(repo, publisher, summaries, logger)
	srv := apphttp.NewServer(":"+cfg.Port, ledgerService, repo, logger)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting splitledger server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
