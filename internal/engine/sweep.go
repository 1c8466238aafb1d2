package engine

import (
	"context"
	"sync"
	"time"

	"github.com/crushline/automsg/internal/model"
	"github.com/crushline/automsg/internal/trigger"
)

// RunSweep evaluates all due scheduled rules and fans their message out to
// every eligible subscriber. It is safe to invoke concurrently with itself
// and with the event hook, and safe to over-invoke: when nothing is due it is
// a no-op.
func (e *Engine) RunSweep(ctx context.Context) SweepSummary {
	if e.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	start := time.Now()
	summary := SweepSummary{Errors: []SendError{}, RuleErrors: []RuleError{}}

	due, err := e.rules.DueScheduled(start, e.cfg.Window)
	if err != nil {
		e.logger.Error().Err(err).Msg("sweep: failed to select due rules")
		summary.RuleErrors = append(summary.RuleErrors, RuleError{Err: err.Error()})
		return summary
	}

	for _, rule := range due {
		if ctx.Err() != nil {
			summary.Partial = true
			break
		}
		e.sweepRule(ctx, rule, &summary)
	}

	e.logger.Info().
		Int("rules_processed", summary.RulesProcessed).
		Int("sends_attempted", summary.SendsAttempted).
		Int("sends_succeeded", summary.SendsSucceeded).
		Int("duplicates", summary.Duplicates).
		Int("skipped", summary.Skipped).
		Int("send_errors", len(summary.Errors)).
		Int("rule_errors", len(summary.RuleErrors)).
		Bool("partial", summary.Partial).
		Dur("duration", time.Since(start)).
		Msg("sweep complete")

	return summary
}

// sweepRule runs one rule's full pass: resolve, pre-filter, batch, deliver,
// deactivate. A failure here never aborts the sweep's other rules.
func (e *Engine) sweepRule(ctx context.Context, rule *model.AutoMessage, summary *SweepSummary) {
	logger := e.logger.With().Int("auto_message_id", rule.ID).Int("creator_id", rule.CreatorID).Logger()

	tr, err := trigger.Parse(rule)
	if err != nil {
		logger.Error().Err(err).Msg("sweep: malformed rule row")
		summary.RuleErrors = append(summary.RuleErrors, RuleError{AutoMessageID: rule.ID, Err: err.Error()})
		return
	}
	// The due-rule query already applied the window; re-evaluating here keeps
	// the decision in one place and guards against a store that returned too
	// much.
	if !trigger.Evaluate(tr, trigger.EvalContext{Now: time.Now(), Window: e.cfg.Window}) {
		return
	}

	subscriberIDs, err := e.subs.ActiveSubscriberIDs(rule.CreatorID)
	if err != nil {
		logger.Error().Err(err).Msg("sweep: failed to resolve subscribers")
		summary.RuleErrors = append(summary.RuleErrors, RuleError{AutoMessageID: rule.ID, Err: err.Error()})
		return
	}

	// Pre-filter against the ledger. This is an optimization, not the
	// correctness mechanism: the unique constraint backstops any subscriber
	// a concurrent invocation delivers to after this read.
	already, err := e.ledger.SentSubscriberIDs(rule.ID)
	if err != nil {
		logger.Error().Err(err).Msg("sweep: failed to read send ledger")
		summary.RuleErrors = append(summary.RuleErrors, RuleError{AutoMessageID: rule.ID, Err: err.Error()})
		return
	}

	pending := subscriberIDs[:0:0]
	for _, id := range subscriberIDs {
		if !already[id] {
			pending = append(pending, id)
		}
	}

	completed := true
	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		if ctx.Err() != nil {
			completed = false
			summary.Partial = true
			break
		}
		end := start + e.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		e.runBatch(rule, pending[start:end], summary)
	}

	if !completed {
		logger.Warn().Msg("sweep: deadline cut rule pass short, leaving rule active")
		return
	}

	// One-shot semantics: retire the rule after its pass, regardless of
	// per-subscriber failures, so a permanently failing subscriber cannot
	// keep it due forever.
	if err := e.rules.Deactivate(rule.ID); err != nil {
		logger.Error().Err(err).Msg("sweep: failed to deactivate rule")
		summary.RuleErrors = append(summary.RuleErrors, RuleError{AutoMessageID: rule.ID, Err: err.Error()})
		return
	}

	summary.RulesProcessed++
}

// runBatch attempts delivery for one batch of subscribers concurrently. Each
// attempt is independent; one failing never stops the others.
func (e *Engine) runBatch(rule *model.AutoMessage, batch []int, summary *SweepSummary) {
	type result struct {
		subscriberID int
		outcome      sendOutcome
		err          error
	}

	results := make([]result, len(batch))
	var wg sync.WaitGroup
	for i, subscriberID := range batch {
		wg.Add(1)
		go func(i, subscriberID int) {
			defer wg.Done()
			outcome, err := e.attemptSend(rule, subscriberID)
			results[i] = result{subscriberID: subscriberID, outcome: outcome, err: err}
		}(i, subscriberID)
	}
	wg.Wait()

	for _, res := range results {
		summary.SendsAttempted++
		switch res.outcome {
		case outcomeSent:
			summary.SendsSucceeded++
		case outcomeDuplicate:
			summary.Duplicates++
		case outcomeSkippedInactive:
			summary.Skipped++
		case outcomeFailed:
			summary.Errors = append(summary.Errors, SendError{
				AutoMessageID: rule.ID,
				SubscriberID:  res.subscriberID,
				Err:           res.err.Error(),
			})
		}
	}
}
