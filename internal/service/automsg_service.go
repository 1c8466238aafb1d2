package service

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crushline/automsg/internal/apperrors"
	"github.com/crushline/automsg/internal/model"
	"github.com/crushline/automsg/internal/repository"
)

// AutoMessageInput is the authoring payload for creating or editing a rule.
// Exactly one of ScheduledAt / MessageCountN must be set.
type AutoMessageInput struct {
	CreatorID     int        `json:"creator_id" validate:"required,gt=0"`
	Body          string     `json:"body" validate:"required"`
	MediaURL      *string    `json:"media_url" validate:"omitempty,url"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	MessageCountN *int       `json:"message_count_n"`
}

// AutoMessageService owns rule authoring: create, edit, soft delete, list.
// Validation happens here so malformed rules never reach the dispatch engine.
type AutoMessageService struct {
	Repo     repository.AutoMessageRepositoryInterface
	Ledger   repository.SendLedgerInterface
	validate *validator.Validate
}

func NewAutoMessageService(repo repository.AutoMessageRepositoryInterface, ledger repository.SendLedgerInterface) *AutoMessageService {
	return &AutoMessageService{
		Repo:     repo,
		Ledger:   ledger,
		validate: validator.New(),
	}
}

// validateInput enforces the trigger invariants on top of the struct tags.
func (s *AutoMessageService) validateInput(in *AutoMessageInput, now time.Time) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	if strings.TrimSpace(in.Body) == "" {
		return apperrors.NewInvalidTrigger("message body cannot be blank")
	}

	hasSchedule := in.ScheduledAt != nil
	hasCount := in.MessageCountN != nil
	switch {
	case hasSchedule && hasCount:
		return apperrors.NewInvalidTrigger("a rule carries exactly one trigger, got both scheduled_at and message_count_n")
	case !hasSchedule && !hasCount:
		return apperrors.NewInvalidTrigger("a rule carries exactly one trigger, got neither scheduled_at nor message_count_n")
	case hasSchedule && !in.ScheduledAt.After(now):
		return apperrors.NewInvalidTrigger("scheduled_at must be in the future")
	case hasCount && *in.MessageCountN <= 0:
		return apperrors.NewInvalidTrigger("message_count_n must be positive")
	}
	return nil
}

func (s *AutoMessageService) Create(in *AutoMessageInput) (*model.AutoMessage, error) {
	if err := s.validateInput(in, time.Now()); err != nil {
		return nil, err
	}

	m := &model.AutoMessage{
		CreatorID:     in.CreatorID,
		Body:          in.Body,
		MediaURL:      in.MediaURL,
		ScheduledAt:   in.ScheduledAt,
		MessageCountN: in.MessageCountN,
	}
	if in.ScheduledAt != nil {
		m.TriggerType = model.TriggerScheduled
	} else {
		m.TriggerType = model.TriggerMessageCount
	}

	if err := s.Repo.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update edits an existing rule's content and trigger, re-validating the
// invariants the same way Create does.
func (s *AutoMessageService) Update(id int, in *AutoMessageInput) (*model.AutoMessage, error) {
	m, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(in, time.Now()); err != nil {
		return nil, err
	}

	m.Body = in.Body
	m.MediaURL = in.MediaURL
	m.ScheduledAt = in.ScheduledAt
	m.MessageCountN = in.MessageCountN
	if in.ScheduledAt != nil {
		m.TriggerType = model.TriggerScheduled
		m.MessageCountN = nil
	} else {
		m.TriggerType = model.TriggerMessageCount
		m.ScheduledAt = nil
	}

	if err := s.Repo.Update(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete soft-deletes a rule by clearing its active flag.
func (s *AutoMessageService) Delete(id int) error {
	if _, err := s.Repo.GetByID(id); err != nil {
		return err
	}
	return s.Repo.Deactivate(id)
}

// AutoMessageDetails is a rule plus its delivery count from the send ledger.
type AutoMessageDetails struct {
	model.AutoMessage
	SendCount int `json:"send_count"`
}

func (s *AutoMessageService) Get(id int) (*AutoMessageDetails, error) {
	m, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	n, err := s.Ledger.CountForRule(id)
	if err != nil {
		return nil, err
	}
	return &AutoMessageDetails{AutoMessage: *m, SendCount: n}, nil
}

// List returns a page of rules with their send counts.
func (s *AutoMessageService) List(page, pageSize, creatorID int, activeOnly bool) ([]AutoMessageDetails, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	rules, total, err := s.Repo.List(offset, pageSize, creatorID, activeOnly)
	if err != nil {
		return nil, nil, err
	}

	details := make([]AutoMessageDetails, len(rules))
	for i, m := range rules {
		n, err := s.Ledger.CountForRule(m.ID)
		if err != nil {
			return nil, nil, err
		}
		details[i] = AutoMessageDetails{AutoMessage: *m, SendCount: n}
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return details, pagination, nil
}
