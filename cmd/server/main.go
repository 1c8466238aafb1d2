package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/crushline/automsg/internal/config"
	"github.com/crushline/automsg/internal/db"
	"github.com/crushline/automsg/internal/engine"
	"github.com/crushline/automsg/internal/handler"
	"github.com/crushline/automsg/internal/logging"
	"github.com/crushline/automsg/internal/queue"
	"github.com/crushline/automsg/internal/repository"
	"github.com/crushline/automsg/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg)

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	ruleRepo := &repository.AutoMessageRepository{DB: conn}
	subRepo := &repository.SubscriptionRepository{DB: conn}
	ledgerRepo := &repository.SendLedgerRepository{DB: conn}
	chatRepo := &repository.ChatMessageRepository{DB: conn}

	var pub queue.Publisher
	amqpPub, err := queue.NewAMQPPublisher(cfg.AMQPURL)
	if err != nil {
		logger.Warn().Err(err).Msg("amqp unavailable, sent events stay in-process")
		pub = queue.NewInMemoryQueue()
	} else {
		defer amqpPub.Close()
		pub = amqpPub
	}

	eng := engine.New(ruleRepo, subRepo, ledgerRepo, chatRepo, pub, logger, engine.Config{
		Window:    cfg.SweepWindow,
		BatchSize: cfg.SweepBatchSize,
		Deadline:  cfg.SweepDeadline,
	})

	autoMsgService := service.NewAutoMessageService(ruleRepo, ledgerRepo)
	messageService := service.NewMessageService(chatRepo, func(ctx context.Context, creatorID, subscriberID int) {
		eng.OnInboundMessage(ctx, creatorID, subscriberID)
	}, logger)

	autoMsgHandler := &handler.AutoMessageHandler{Service: autoMsgService}
	messageHandler := &handler.MessageHandler{Service: messageService}
	sweepHandler := &handler.SweepHandler{Engine: eng, Secret: cfg.CronSecret}

	r := chi.NewRouter()
	r.Post("/automessages", autoMsgHandler.Create)
	r.Get("/automessages", autoMsgHandler.List)
	r.Get("/automessages/{id}", autoMsgHandler.Get)
	r.Put("/automessages/{id}", autoMsgHandler.Update)
	r.Delete("/automessages/{id}", autoMsgHandler.Delete)
	r.Post("/creators/{creatorID}/messages", messageHandler.SendMessage)
	r.Post("/internal/cron/sweep", sweepHandler.RunSweep)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
