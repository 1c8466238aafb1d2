package model

import "time"

// Trigger type values stored in auto_messages.trigger_type.
const (
	TriggerScheduled    = "scheduled"
	TriggerMessageCount = "message_count"
)

// AutoMessage is a creator-authored automated message with a single trigger
// condition. Exactly one of ScheduledAt / MessageCountN is set, depending on
// TriggerType. Rows are never hard-deleted; retiring a rule clears Active so
// its send history stays attributable.
type AutoMessage struct {
	ID            int        `db:"id" json:"id"`
	CreatorID     int        `db:"creator_id" json:"creator_id"`
	Body          string     `db:"body" json:"body"`
	MediaURL      *string    `db:"media_url" json:"media_url,omitempty"`
	TriggerType   string     `db:"trigger_type" json:"trigger_type"`
	ScheduledAt   *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	MessageCountN *int       `db:"message_count_n" json:"message_count_n,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
