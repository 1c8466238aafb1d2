package model

import "time"

// SendRecord marks one completed delivery of an automated message to one
// subscriber. The (auto_message_id, subscriber_id) pair is unique in the
// database; that constraint, not application locking, is what prevents a
// subscriber from ever receiving the same automated message twice.
type SendRecord struct {
	ID            int       `db:"id" json:"id"`
	AutoMessageID int       `db:"auto_message_id" json:"auto_message_id"`
	SubscriberID  int       `db:"subscriber_id" json:"subscriber_id"`
	SentAt        time.Time `db:"sent_at" json:"sent_at"`
}
