package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finapi/internal/amqp"
	"finapi/internal/backend"
	"finapi/internal/config"
	"finapi/internal/notify"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting notify-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL must be set for the worker")
		os.Exit(1)
	}

	// The worker shares the database with the API, so the memory
	// backend makes no sense here.
	if cfg.DataBackend != "sqlite" {
		logger.Error("Worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	st, err := backend.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	evaluator := notify.NewEvaluator(st)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up on alerts that may have been missed while the worker was
	// down: sweep every user active in the last month.
	since := time.Now().UTC().AddDate(0, -1, 0)
	if userIDs, err := st.ActiveUserIDs(ctx, since); err != nil {
		logger.Error("Startup sweep failed to list users", "error", err)
	} else {
		for _, userID := range userIDs {
			if _, err := evaluator.CheckBudgets(ctx, userID); err != nil {
				logger.Error("Startup budget sweep failed", "user_id", userID, "error", err)
			}
			if _, err := evaluator.CheckBalances(ctx, userID); err != nil {
				logger.Error("Startup balance sweep failed", "user_id", userID, "error", err)
			}
		}
		logger.Info("Startup sweep complete", "users", len(userIDs))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeTransactionEvents(ctx, func(evt *amqp.TransactionEvent) error {
			return evaluator.NotifyTransactionCreated(ctx, evt.UserID, evt.TransactionID)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
