package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crushline/automsg/internal/apperrors"
	"github.com/crushline/automsg/internal/model"
)

// AutoMessageRepositoryInterface defines the rule-store operations used by
// the authoring service and the dispatch engine.
type AutoMessageRepositoryInterface interface {
	Create(m *model.AutoMessage) error
	Update(m *model.AutoMessage) error
	GetByID(id int) (*model.AutoMessage, error)
	List(offset, limit, creatorID int, activeOnly bool) ([]*model.AutoMessage, int, error)
	Deactivate(id int) error

	// DueScheduled returns active scheduled rules whose scheduled_at falls in
	// (now-window, now], earliest first. window <= 0 drops the lower bound.
	DueScheduled(now time.Time, window time.Duration) ([]*model.AutoMessage, error)

	// MatchingCountRules returns active message_count rules for the creator
	// whose threshold equals count and that have no send record yet for the
	// subscriber. The anti-join is the hook's first line of defense against
	// duplicate delivery; the ledger's unique constraint is the second.
	MatchingCountRules(creatorID, count, subscriberID int) ([]*model.AutoMessage, error)
}

type AutoMessageRepository struct {
	DB *sql.DB
}

const autoMessageColumns = `id, creator_id, body, media_url, trigger_type, scheduled_at, message_count_n, active, created_at, updated_at`

func scanAutoMessage(row interface{ Scan(...any) error }) (*model.AutoMessage, error) {
	var m model.AutoMessage
	err := row.Scan(&m.ID, &m.CreatorID, &m.Body, &m.MediaURL, &m.TriggerType,
		&m.ScheduledAt, &m.MessageCountN, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *AutoMessageRepository) Create(m *model.AutoMessage) error {
	m.CreatedAt = time.Now()
	m.Active = true
	query := `
        INSERT INTO auto_messages (creator_id, body, media_url, trigger_type, scheduled_at, message_count_n, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, m.CreatorID, m.Body, m.MediaURL, m.TriggerType,
		m.ScheduledAt, m.MessageCountN, m.Active, m.CreatedAt).Scan(&m.ID)
}

func (r *AutoMessageRepository) Update(m *model.AutoMessage) error {
	query := `
        UPDATE auto_messages
        SET body=$1, media_url=$2, trigger_type=$3, scheduled_at=$4, message_count_n=$5, updated_at=NOW()
        WHERE id=$6
    `
	_, err := r.DB.Exec(query, m.Body, m.MediaURL, m.TriggerType, m.ScheduledAt, m.MessageCountN, m.ID)
	return err
}

func (r *AutoMessageRepository) GetByID(id int) (*model.AutoMessage, error) {
	query := `SELECT ` + autoMessageColumns + ` FROM auto_messages WHERE id=$1`
	m, err := scanAutoMessage(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewAutoMessageNotFound(id)
		}
		return nil, err
	}
	return m, nil
}

func (r *AutoMessageRepository) List(offset, limit, creatorID int, activeOnly bool) ([]*model.AutoMessage, int, error) {
	msgs := []*model.AutoMessage{}
	query := `SELECT ` + autoMessageColumns + ` FROM auto_messages WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if creatorID != 0 {
		query += fmt.Sprintf(" AND creator_id=$%d", argPos)
		args = append(args, creatorID)
		argPos++
	}
	if activeOnly {
		query += " AND active=true"
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanAutoMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM auto_messages WHERE 1=1`
	countArgs := []interface{}{}
	if creatorID != 0 {
		countQuery += " AND creator_id=$1"
		countArgs = append(countArgs, creatorID)
	}
	if activeOnly {
		countQuery += " AND active=true"
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return msgs, total, nil
}

// Deactivate clears the active flag. This is both the soft delete for
// authoring and the one-shot retirement of a scheduled rule after its sweep
// pass. Rows are never deleted so send history stays attributable.
func (r *AutoMessageRepository) Deactivate(id int) error {
	_, err := r.DB.Exec(`UPDATE auto_messages SET active=false, updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *AutoMessageRepository) DueScheduled(now time.Time, window time.Duration) ([]*model.AutoMessage, error) {
	query := `SELECT ` + autoMessageColumns + `
        FROM auto_messages
        WHERE active=true AND trigger_type=$1 AND scheduled_at <= $2`
	args := []interface{}{model.TriggerScheduled, now}
	if window > 0 {
		query += ` AND scheduled_at > $3`
		args = append(args, now.Add(-window))
	}
	query += ` ORDER BY scheduled_at ASC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*model.AutoMessage{}
	for rows.Next() {
		m, err := scanAutoMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *AutoMessageRepository) MatchingCountRules(creatorID, count, subscriberID int) ([]*model.AutoMessage, error) {
	query := `SELECT ` + autoMessageColumns + `
        FROM auto_messages am
        WHERE am.creator_id=$1
          AND am.active=true
          AND am.trigger_type=$2
          AND am.message_count_n=$3
          AND NOT EXISTS (
              SELECT 1 FROM auto_message_sends s
              WHERE s.auto_message_id = am.id AND s.subscriber_id = $4
          )`

	rows, err := r.DB.Query(query, creatorID, model.TriggerMessageCount, count, subscriberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*model.AutoMessage{}
	for rows.Next() {
		m, err := scanAutoMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

var _ AutoMessageRepositoryInterface = (*AutoMessageRepository)(nil)
