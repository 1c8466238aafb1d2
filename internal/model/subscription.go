package model

import "time"

// Subscription status values.
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
)

// Subscription links a subscriber to a creator. The engine only ever reads
// these rows; the billing side owns them.
type Subscription struct {
	ID           int       `db:"id" json:"id"`
	SubscriberID int       `db:"subscriber_id" json:"subscriber_id"`
	CreatorID    int       `db:"creator_id" json:"creator_id"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
