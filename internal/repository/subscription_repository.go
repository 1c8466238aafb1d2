package repository

import (
	"database/sql"

	"github.com/crushline/automsg/internal/model"
)

// SubscriptionRepositoryInterface is the engine's read-only view of the
// subscription store. The billing side owns the rows; the engine treats them
// as eventually accurate and re-checks IsActive right before each delivery.
type SubscriptionRepositoryInterface interface {
	// ActiveSubscriberIDs returns every subscriber with an active
	// subscription to the creator.
	ActiveSubscriberIDs(creatorID int) ([]int, error)

	// IsActive reports whether the subscriber currently has an active
	// subscription to the creator.
	IsActive(subscriberID, creatorID int) (bool, error)

	// InboundMessageCount returns the subscriber's cumulative inbound
	// message count to the creator, as of now. A live count, not a cached
	// one: the hook relies on it reflecting the just-committed message.
	InboundMessageCount(subscriberID, creatorID int) (int, error)
}

type SubscriptionRepository struct {
	DB *sql.DB
}

func (r *SubscriptionRepository) ActiveSubscriberIDs(creatorID int) ([]int, error) {
	query := `SELECT subscriber_id FROM subscriptions WHERE creator_id=$1 AND status=$2 ORDER BY subscriber_id`
	rows, err := r.DB.Query(query, creatorID, model.SubscriptionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SubscriptionRepository) IsActive(subscriberID, creatorID int) (bool, error) {
	query := `SELECT 1 FROM subscriptions WHERE subscriber_id=$1 AND creator_id=$2 AND status=$3 LIMIT 1`
	var tmp int
	err := r.DB.QueryRow(query, subscriberID, creatorID, model.SubscriptionActive).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *SubscriptionRepository) InboundMessageCount(subscriberID, creatorID int) (int, error) {
	query := `SELECT COUNT(*) FROM chat_messages WHERE subscriber_id=$1 AND creator_id=$2 AND direction=$3`
	var n int
	err := r.DB.QueryRow(query, subscriberID, creatorID, model.DirectionInbound).Scan(&n)
	return n, err
}

var _ SubscriptionRepositoryInterface = (*SubscriptionRepository)(nil)
