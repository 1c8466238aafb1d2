package model

import "time"

// Chat message directions.
const (
	DirectionInbound  = "inbound"  // subscriber -> creator
	DirectionOutbound = "outbound" // creator -> subscriber
)

// ChatMessage is one message in a creator/subscriber conversation. Outbound
// rows written by the engine carry the AutoMessageID they originated from;
// organic messages leave it nil.
type ChatMessage struct {
	ID            int       `db:"id" json:"id"`
	CreatorID     int       `db:"creator_id" json:"creator_id"`
	SubscriberID  int       `db:"subscriber_id" json:"subscriber_id"`
	Direction     string    `db:"direction" json:"direction"`
	Body          string    `db:"body" json:"body"`
	MediaURL      *string   `db:"media_url" json:"media_url,omitempty"`
	AutoMessageID *int      `db:"auto_message_id" json:"auto_message_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
