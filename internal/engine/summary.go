package engine

// SendError records one failed per-subscriber delivery attempt. The
// subscriber has no ledger row, so a scheduled rule retries them on its next
// pass; a count rule will not, since the count never equals the threshold
// again.
type SendError struct {
	AutoMessageID int    `json:"auto_message_id"`
	SubscriberID  int    `json:"subscriber_id"`
	Err           string `json:"error"`
}

// RuleError records a rule whose whole pass failed (resolver or ledger read
// down, malformed trigger row). Other rules in the same sweep continue.
type RuleError struct {
	AutoMessageID int    `json:"auto_message_id"`
	Err           string `json:"error"`
}

// SweepSummary is the observable result of one sweep pass.
type SweepSummary struct {
	RulesProcessed int         `json:"rules_processed"`
	SendsAttempted int         `json:"sends_attempted"`
	SendsSucceeded int         `json:"sends_succeeded"`
	Duplicates     int         `json:"duplicates"`
	Skipped        int         `json:"skipped"`
	Errors         []SendError `json:"errors"`
	RuleErrors     []RuleError `json:"rule_errors"`

	// Partial is set when the sweep deadline cut the pass short. Unfinished
	// rules stay active and due, so the next sweep picks them back up.
	Partial bool `json:"partial"`
}

// HookResult is the outcome of one event-hook invocation. Callers of the
// message-send path never consume it; it exists for logging and tests.
type HookResult struct {
	InboundCount int `json:"inbound_count"`
	Candidates   int `json:"candidates"`
	Sent         int `json:"sent"`
	Duplicates   int `json:"duplicates"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
}
