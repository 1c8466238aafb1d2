package main

import (
	"encoding/json"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/crushline/automsg/internal/config"
	"github.com/crushline/automsg/internal/logging"
	"github.com/crushline/automsg/internal/queue"
)

// cmd/worker consumes delivered-message events off RabbitMQ. This is where
// downstream fan-out hangs: push notifications, unread counters, analytics.
// For now it acknowledges and logs each event.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg).With().Str("component", "worker").Logger()

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open a channel")
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.QueueAutoMessageSent,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to declare queue")
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register consumer")
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var event queue.SentEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				logger.Error().Err(err).Msg("invalid event payload, dropping")
				d.Ack(false)
				continue
			}

			if err := notifySubscriber(event); err != nil {
				logger.Error().Err(err).
					Str("event_id", event.EventID).
					Msg("failed to process sent event")
				// Retry logic: requeue up to 3 times
				var retryCount int
				if d.Headers["x-retry-count"] != nil {
					retryCount = d.Headers["x-retry-count"].(int)
				}
				if retryCount < 3 {
					d.Nack(false, true) // requeue
					continue
				}
			}

			logger.Info().
				Str("event_id", event.EventID).
				Int("auto_message_id", event.AutoMessageID).
				Int("subscriber_id", event.SubscriberID).
				Int("chat_message_id", event.ChatMessageID).
				Msg("auto message delivered")
			d.Ack(false)
		}
	}()

	logger.Info().Msg("worker running, waiting for messages")
	<-forever
}

// notifySubscriber is the hook point for real notification delivery (push,
// email digest). It is deliberately a no-op until those integrations land.
func notifySubscriber(event queue.SentEvent) error {
	return nil
}
