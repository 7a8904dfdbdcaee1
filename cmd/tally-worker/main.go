package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/archive"
	"tally/internal/config"
	applog "tally/internal/log"
	"tally/internal/store"
	"tally/internal/store/mongo"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The worker reads record bodies from the same primary store the
	// server writes to; events carry IDs only. An in-process memory store
	// can never hold them, so only shared backends are accepted here.
	var st store.Store
	switch cfg.DataBackend {
	case "mongo":
		mongoStore, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Error("Failed to connect to MongoDB", applog.FieldError, err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer closeCancel()
			if err := mongoStore.Close(closeCtx); err != nil {
				logger.Error("MongoDB close error", applog.FieldError, err)
			}
		}()
		st = mongoStore
		logger.Info("Initialized mongo backend", "database", cfg.MongoDatabase)
	default:
		logger.Error("The worker requires a shared data backend",
			"backend", cfg.DataBackend,
			"supported", "mongo")
		os.Exit(1)
	}

	repo, err := archive.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize archive repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("Archive repository close error", applog.FieldError, err)
		}
	}()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	archiveWorker := worker.NewArchiveWorker(st, repo)

	// The replica answers reporting reads on its own port, working even
	// when the primary store is unreachable.
	reportSrv := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
		Handler:           worker.NewReportHandler(repo),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting archive report server", "port", cfg.WorkerPort)
		if err := reportSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Report server error", applog.FieldError, err)
		}
	}()

	consumeErr := make(chan error, 1)
	go func() {
		logger.Info("Consuming record events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		err := amqpClient.ConsumeRecordEvents(ctx, func(msg *amqp.RecordEventMessage) error {
			return archiveWorker.HandleRecordEvent(ctx, msg)
		})
		consumeErr <- err
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
		select {
		case <-consumeErr:
		case <-time.After(10 * time.Second):
			logger.Warn("Consumer did not stop in time")
		}
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Consumer stopped with error", applog.FieldError, err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := reportSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Report server shutdown error", applog.FieldError, err)
	}

	logger.Info("Worker stopped gracefully")
}
