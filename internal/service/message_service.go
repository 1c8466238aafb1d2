package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/crushline/automsg/internal/model"
	"github.com/crushline/automsg/internal/repository"
)

// MessageService records inbound chat messages and fires the count-trigger
// hook after each one. The hook runs in its own goroutine with its own
// timeout; its outcome never affects the caller's response.
type MessageService struct {
	Messages repository.ChatMessageRepositoryInterface
	Hook     func(ctx context.Context, creatorID, subscriberID int)
	Logger   zerolog.Logger

	// HookTimeout bounds one hook run. Defaults to 30s.
	HookTimeout time.Duration
}

func NewMessageService(messages repository.ChatMessageRepositoryInterface, hook func(ctx context.Context, creatorID, subscriberID int), logger zerolog.Logger) *MessageService {
	return &MessageService{
		Messages:    messages,
		Hook:        hook,
		Logger:      logger.With().Str("component", "message-service").Logger(),
		HookTimeout: 30 * time.Second,
	}
}

// RecordInbound persists a subscriber's message to a creator, then fires the
// trigger hook asynchronously. The hook must only run after the insert has
// committed, so the fresh count it reads includes this message.
func (s *MessageService) RecordInbound(creatorID, subscriberID int, body string, mediaURL *string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		CreatorID:    creatorID,
		SubscriberID: subscriberID,
		Body:         body,
		MediaURL:     mediaURL,
	}
	if err := s.Messages.InsertInbound(msg); err != nil {
		return nil, err
	}

	if s.Hook != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.HookTimeout)
			defer cancel()
			s.Logger.Debug().
				Int("creator_id", creatorID).
				Int("subscriber_id", subscriberID).
				Msg("firing trigger hook")
			s.Hook(ctx, creatorID, subscriberID)
		}()
	}

	return msg, nil
}
