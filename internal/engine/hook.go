package engine

import (
	"context"
	"time"

	"github.com/crushline/automsg/internal/trigger"
)

// OnInboundMessage evaluates count-threshold rules for one subscriber, after
// their inbound message to the creator has been durably recorded. It is
// best-effort: every failure is logged and absorbed, never surfaced to the
// message-send caller. The returned HookResult exists for logging and tests.
//
// Count rules are not deactivated on a match; the same rule fires for each
// subscriber that reaches the threshold, each at most once via the ledger.
func (e *Engine) OnInboundMessage(ctx context.Context, creatorID, subscriberID int) HookResult {
	logger := e.logger.With().
		Int("creator_id", creatorID).
		Int("subscriber_id", subscriberID).
		Logger()

	res := HookResult{}

	// A fresh count, read after the triggering message was committed. A
	// stale read here could miss the threshold or fire it on the wrong
	// message.
	count, err := e.subs.InboundMessageCount(subscriberID, creatorID)
	if err != nil {
		logger.Error().Err(err).Msg("hook: failed to count inbound messages")
		res.Errors++
		return res
	}
	res.InboundCount = count

	// The anti-join excludes rules already sent to this subscriber; the
	// ledger insert below backstops any race that slips past it.
	candidates, err := e.rules.MatchingCountRules(creatorID, count, subscriberID)
	if err != nil {
		logger.Error().Err(err).Msg("hook: failed to query candidate rules")
		res.Errors++
		return res
	}
	res.Candidates = len(candidates)

	for _, rule := range candidates {
		if ctx.Err() != nil {
			return res
		}

		tr, err := trigger.Parse(rule)
		if err != nil {
			logger.Error().Err(err).Int("auto_message_id", rule.ID).Msg("hook: malformed rule row")
			res.Errors++
			continue
		}
		if !trigger.Evaluate(tr, trigger.EvalContext{Now: time.Now(), InboundCount: count}) {
			continue
		}

		outcome, err := e.attemptSend(rule, subscriberID)
		switch outcome {
		case outcomeSent:
			res.Sent++
			logger.Info().Int("auto_message_id", rule.ID).Int("inbound_count", count).
				Msg("hook: delivered count-triggered message")
		case outcomeDuplicate:
			res.Duplicates++
		case outcomeSkippedInactive:
			res.Skipped++
		case outcomeFailed:
			// No ledger row was written, but the count will never equal the
			// threshold again for this subscriber, so this match is lost.
			res.Errors++
			logger.Error().Err(err).Int("auto_message_id", rule.ID).
				Msg("hook: delivery failed, threshold match lost")
		}
	}

	return res
}
