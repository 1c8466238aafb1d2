// Package engine implements dispatch of automated messages to subscribers.
//
// Two independent entry points drive it: RunSweep, invoked periodically for
// scheduled rules, and OnInboundMessage, invoked after every inbound chat
// message for count-threshold rules. The two may run concurrently with each
// other and with themselves; the engine takes no locks across invocations and
// instead leans on the send ledger's unique constraint to keep every
// (rule, subscriber) pair at most-once.
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/crushline/automsg/internal/model"
	"github.com/crushline/automsg/internal/queue"
	"github.com/crushline/automsg/internal/repository"
)

// Config tunes the dispatch engine.
type Config struct {
	// Window bounds how far past its scheduled time a rule may still fire.
	// Zero disables the bound.
	Window time.Duration

	// BatchSize caps how many per-subscriber delivery attempts run
	// concurrently within one rule's fan-out.
	BatchSize int

	// Deadline is the soft deadline for a sweep pass. When it expires the
	// sweep stops starting new batches and returns a partial summary; the
	// unfinished rules stay due for the next pass. Zero disables it.
	Deadline time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Window:    time.Hour,
		BatchSize: 100,
		Deadline:  5 * time.Minute,
	}
}

// Engine resolves subscribers, evaluates triggers and performs deliveries.
type Engine struct {
	rules  repository.AutoMessageRepositoryInterface
	subs   repository.SubscriptionRepositoryInterface
	ledger repository.SendLedgerInterface
	chats  repository.ChatMessageRepositoryInterface
	pub    queue.Publisher
	logger zerolog.Logger
	cfg    Config
}

// New wires an Engine. pub may be nil when no event publishing is wanted.
func New(
	rules repository.AutoMessageRepositoryInterface,
	subs repository.SubscriptionRepositoryInterface,
	ledger repository.SendLedgerInterface,
	chats repository.ChatMessageRepositoryInterface,
	pub queue.Publisher,
	logger zerolog.Logger,
	cfg Config,
) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Engine{
		rules:  rules,
		subs:   subs,
		ledger: ledger,
		chats:  chats,
		pub:    pub,
		logger: logger.With().Str("component", "automsg-engine").Logger(),
		cfg:    cfg,
	}
}

// sendOutcome classifies one per-subscriber delivery attempt.
type sendOutcome int

const (
	outcomeSent sendOutcome = iota
	outcomeDuplicate
	outcomeSkippedInactive
	outcomeFailed
)

// attemptSend performs one delivery attempt for (rule, subscriber): re-check
// the subscription, insert the outbound chat message, then record the send.
//
// Delivery happens before the ledger write, so a crash between the two can
// produce a rare duplicate send on retry (at-least-once). The alternative,
// ledger first, risks silently dropping a message instead; we take the
// duplicate.
func (e *Engine) attemptSend(rule *model.AutoMessage, subscriberID int) (sendOutcome, error) {
	active, err := e.subs.IsActive(subscriberID, rule.CreatorID)
	if err != nil {
		return outcomeFailed, err
	}
	if !active {
		// Unsubscribed between enumeration and delivery. Not an error, and
		// no ledger write: the pair was never delivered.
		return outcomeSkippedInactive, nil
	}

	msg, err := e.chats.InsertAutoMessage(rule, subscriberID)
	if err != nil {
		return outcomeFailed, err
	}

	sentAt := time.Now()
	inserted, err := e.ledger.Insert(rule.ID, subscriberID, sentAt)
	if err != nil {
		return outcomeFailed, err
	}
	if !inserted {
		// A concurrent sweep or hook got there first. Expected, benign.
		return outcomeDuplicate, nil
	}

	if e.pub != nil {
		ev := queue.NewSentEvent(rule.ID, rule.CreatorID, subscriberID, msg.ID, sentAt)
		if err := e.pub.Publish(queue.QueueAutoMessageSent, ev); err != nil {
			// The ledger row is already committed; a lost event only costs
			// downstream observability.
			e.logger.Warn().Err(err).
				Int("auto_message_id", rule.ID).
				Int("subscriber_id", subscriberID).
				Msg("failed to publish sent event")
		}
	}

	return outcomeSent, nil
}
