package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/crushline/automsg/internal/config"
	"github.com/crushline/automsg/internal/db"
	"github.com/crushline/automsg/internal/engine"
	"github.com/crushline/automsg/internal/logging"
	"github.com/crushline/automsg/internal/queue"
	"github.com/crushline/automsg/internal/repository"
)

// cmd/sweeper runs the scheduled sweep on a fixed interval. Deployments that
// prefer an external cron can hit the server's sweep endpoint instead; both
// drive the same engine and are safe to run side by side.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg).With().Str("component", "sweeper").Logger()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	var pub queue.Publisher
	amqpPub, err := queue.NewAMQPPublisher(cfg.AMQPURL)
	if err != nil {
		logger.Warn().Err(err).Msg("amqp unavailable, sent events will not be published")
	} else {
		defer amqpPub.Close()
		pub = amqpPub
	}

	eng := engine.New(
		&repository.AutoMessageRepository{DB: conn},
		&repository.SubscriptionRepository{DB: conn},
		&repository.SendLedgerRepository{DB: conn},
		&repository.ChatMessageRepository{DB: conn},
		pub,
		logger,
		engine.Config{
			Window:    cfg.SweepWindow,
			BatchSize: cfg.SweepBatchSize,
			Deadline:  cfg.SweepDeadline,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Dur("interval", cfg.SweepInterval).Msg("sweeper started")

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	// Run once immediately so a restart doesn't wait a full interval.
	eng.RunSweep(ctx)

	for {
		select {
		case <-ticker.C:
			eng.RunSweep(ctx)
		case <-ctx.Done():
			logger.Info().Msg("sweeper stopped")
			return
		}
	}
}
