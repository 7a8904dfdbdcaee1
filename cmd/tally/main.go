package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/config"
	"tally/internal/gateway"
	apphttp "tally/internal/http"
	applog "tally/internal/log"
	"tally/internal/rates"
	"tally/internal/store"
	mem "tally/internal/store/memory"
	"tally/internal/store/mongo"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		st = mem.New()
		logger.Info("Initialized memory backend")
	}

	// Record events are optional: without a broker the archive replica
	// simply stays empty.
	var publisher gateway.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	gw := gateway.New(st, publisher, logger)
	defer gw.Close()

	ratesClient := rates.NewClient(cfg.RatesBaseURL, cfg.RatesAPIKey, cfg.RatesTimeout, logger)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	srv := apphttp.NewServer(":"+cfg.Port, gw, ratesClient, tokens, cfg.BaseCurrency, logger)
	// Read and write timeouts stay unset so event streams are not cut
	// off; ReadHeaderTimeout still bounds slow clients.
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting tally server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		applog.FieldBaseCode, cfg.BaseCurrency)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
