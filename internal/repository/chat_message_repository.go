package repository

import (
	"database/sql"
	"time"

	"github.com/crushline/automsg/internal/model"
)

// ChatMessageRepositoryInterface covers the two writes the engine needs on
// the conversation store: recording a subscriber's inbound message and
// inserting an outbound message on the creator's behalf.
type ChatMessageRepositoryInterface interface {
	InsertInbound(msg *model.ChatMessage) error

	// InsertAutoMessage is the delivery side effect: one outbound chat
	// message attributed to the rule it came from.
	InsertAutoMessage(rule *model.AutoMessage, subscriberID int) (*model.ChatMessage, error)
}

type ChatMessageRepository struct {
	DB *sql.DB
}

func (r *ChatMessageRepository) InsertInbound(msg *model.ChatMessage) error {
	msg.Direction = model.DirectionInbound
	msg.CreatedAt = time.Now()
	query := `
        INSERT INTO chat_messages (creator_id, subscriber_id, direction, body, media_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query, msg.CreatorID, msg.SubscriberID, msg.Direction,
		msg.Body, msg.MediaURL, msg.CreatedAt).Scan(&msg.ID)
}

func (r *ChatMessageRepository) InsertAutoMessage(rule *model.AutoMessage, subscriberID int) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		CreatorID:     rule.CreatorID,
		SubscriberID:  subscriberID,
		Direction:     model.DirectionOutbound,
		Body:          rule.Body,
		MediaURL:      rule.MediaURL,
		AutoMessageID: &rule.ID,
		CreatedAt:     time.Now(),
	}
	query := `
        INSERT INTO chat_messages (creator_id, subscriber_id, direction, body, media_url, auto_message_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err := r.DB.QueryRow(query, msg.CreatorID, msg.SubscriberID, msg.Direction,
		msg.Body, msg.MediaURL, msg.AutoMessageID, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

var _ ChatMessageRepositoryInterface = (*ChatMessageRepository)(nil)
