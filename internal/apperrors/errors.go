package apperrors

import "fmt"

// ErrAutoMessageNotFound is returned when a rule lookup misses.
type ErrAutoMessageNotFound struct {
	AutoMessageID int
}

func (e *ErrAutoMessageNotFound) Error() string {
	return fmt.Sprintf("automated message with ID %d not found", e.AutoMessageID)
}

func NewAutoMessageNotFound(id int) error {
	return &ErrAutoMessageNotFound{AutoMessageID: id}
}

// ErrInvalidTrigger is returned when a rule definition violates the trigger
// invariants (missing variant, past-dated schedule, non-positive threshold).
type ErrInvalidTrigger struct {
	Reason string
}

func (e *ErrInvalidTrigger) Error() string {
	return "invalid trigger: " + e.Reason
}

func NewInvalidTrigger(reason string) error {
	return &ErrInvalidTrigger{Reason: reason}
}
