package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// SendLedgerInterface is the durable record of completed (rule, subscriber)
// deliveries. Insert is the only write; records are never mutated or deleted.
type SendLedgerInterface interface {
	// Insert records a delivery. It returns false with a nil error when a
	// record for the pair already exists, which callers treat as a benign
	// duplicate rather than a failure.
	Insert(autoMessageID, subscriberID int, sentAt time.Time) (bool, error)

	// SentSubscriberIDs returns the subscribers already recorded for a rule.
	SentSubscriberIDs(autoMessageID int) (map[int]bool, error)

	// CountForRule returns how many sends a rule has recorded.
	CountForRule(autoMessageID int) (int, error)
}

type SendLedgerRepository struct {
	DB *sql.DB
}

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

func (r *SendLedgerRepository) Insert(autoMessageID, subscriberID int, sentAt time.Time) (bool, error) {
	query := `
        INSERT INTO auto_message_sends (auto_message_id, subscriber_id, sent_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (auto_message_id, subscriber_id) DO NOTHING
    `
	res, err := r.DB.Exec(query, autoMessageID, subscriberID, sentAt)
	if err != nil {
		// ON CONFLICT already swallows the common case; the explicit check
		// covers concurrent inserts racing inside serializable transactions.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SendLedgerRepository) SentSubscriberIDs(autoMessageID int) (map[int]bool, error) {
	rows, err := r.DB.Query(`SELECT subscriber_id FROM auto_message_sends WHERE auto_message_id=$1`, autoMessageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sent := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sent[id] = true
	}
	return sent, rows.Err()
}

func (r *SendLedgerRepository) CountForRule(autoMessageID int) (int, error) {
	var n int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM auto_message_sends WHERE auto_message_id=$1`, autoMessageID).Scan(&n)
	return n, err
}

var _ SendLedgerInterface = (*SendLedgerRepository)(nil)
