// Package trigger holds the trigger condition variants for automated messages
// and the pure evaluation logic shared by the scheduled sweep and the
// per-message hook. Evaluation has no side effects, so both entry points can
// call it redundantly; duplicate suppression lives in the send ledger, not
// here.
package trigger

import (
	"time"

	"github.com/crushline/automsg/internal/apperrors"
	"github.com/crushline/automsg/internal/model"
)

// Trigger is the condition that makes an automated message eligible to fire
// for a subscriber. Exactly two variants exist: Scheduled and MessageCount.
type Trigger interface {
	isTrigger()
}

// Scheduled fires once, for every active subscriber, when the wall clock
// passes At.
type Scheduled struct {
	At time.Time
}

// MessageCount fires per subscriber when that subscriber's cumulative inbound
// message count to the creator reaches exactly N.
type MessageCount struct {
	N int
}

func (Scheduled) isTrigger()    {}
func (MessageCount) isTrigger() {}

// Parse converts the flat auto_messages row into a Trigger value, rejecting
// rows that violate the one-variant invariant.
func Parse(m *model.AutoMessage) (Trigger, error) {
	switch m.TriggerType {
	case model.TriggerScheduled:
		if m.ScheduledAt == nil {
			return nil, apperrors.NewInvalidTrigger("scheduled trigger without scheduled_at")
		}
		return Scheduled{At: *m.ScheduledAt}, nil
	case model.TriggerMessageCount:
		if m.MessageCountN == nil || *m.MessageCountN <= 0 {
			return nil, apperrors.NewInvalidTrigger("message_count trigger without a positive threshold")
		}
		return MessageCount{N: *m.MessageCountN}, nil
	default:
		return nil, apperrors.NewInvalidTrigger("unknown trigger type " + m.TriggerType)
	}
}

// EvalContext carries the inputs Evaluate needs for one (rule, subscriber)
// decision.
type EvalContext struct {
	// Now is the evaluation time.
	Now time.Time

	// Window bounds how far past its scheduled time a rule may still fire.
	// Zero or negative disables the bound. This keeps a rule missed during an
	// extended sweep outage from being blasted out long after it was meant to
	// go; the figure is a product policy, not a correctness requirement.
	Window time.Duration

	// InboundCount is the subscriber's cumulative inbound message count to
	// the rule's creator, read after their latest message was committed.
	InboundCount int
}

// Evaluate reports whether tr matches for the given context.
//
// MessageCount matches on strict equality, not >=. Re-matching on later
// messages is already prevented by the send ledger; equality keeps the
// per-message hook cheap by letting the candidate query filter on the exact
// count instead of scanning every rule.
func Evaluate(tr Trigger, ec EvalContext) bool {
	switch t := tr.(type) {
	case Scheduled:
		if ec.Now.Before(t.At) {
			return false
		}
		if ec.Window > 0 && ec.Now.Sub(t.At) > ec.Window {
			return false
		}
		return true
	case MessageCount:
		return ec.InboundCount == t.N
	default:
		return false
	}
}
