package trigger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crushline/automsg/internal/model"
	"github.com/crushline/automsg/internal/trigger"
)

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(n int) *int              { return &n }

func TestParseScheduled(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &model.AutoMessage{TriggerType: model.TriggerScheduled, ScheduledAt: timePtr(at)}

	tr, err := trigger.Parse(m)
	require.NoError(t, err)
	assert.Equal(t, trigger.Scheduled{At: at}, tr)
}

func TestParseMessageCount(t *testing.T) {
	m := &model.AutoMessage{TriggerType: model.TriggerMessageCount, MessageCountN: intPtr(5)}

	tr, err := trigger.Parse(m)
	require.NoError(t, err)
	assert.Equal(t, trigger.MessageCount{N: 5}, tr)
}

func TestParseRejectsMalformedRows(t *testing.T) {
	cases := map[string]*model.AutoMessage{
		"scheduled without timestamp": {TriggerType: model.TriggerScheduled},
		"count without threshold":     {TriggerType: model.TriggerMessageCount},
		"count with zero threshold":   {TriggerType: model.TriggerMessageCount, MessageCountN: intPtr(0)},
		"count with negative":         {TriggerType: model.TriggerMessageCount, MessageCountN: intPtr(-3)},
		"unknown type":                {TriggerType: "on_tip"},
	}

	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := trigger.Parse(m)
			assert.Error(t, err)
		})
	}
}

func TestEvaluateScheduled(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := trigger.Scheduled{At: at}

	cases := []struct {
		name   string
		now    time.Time
		window time.Duration
		want   bool
	}{
		{"before due time", at.Add(-time.Minute), time.Hour, false},
		{"exactly at due time", at, time.Hour, true},
		{"shortly after due", at.Add(time.Minute), time.Hour, true},
		{"at window edge", at.Add(time.Hour), time.Hour, true},
		{"past window", at.Add(time.Hour + time.Second), time.Hour, false},
		{"past window but window disabled", at.Add(48 * time.Hour), 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := trigger.Evaluate(tr, trigger.EvalContext{Now: tc.now, Window: tc.window})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateMessageCountIsStrictEquality(t *testing.T) {
	tr := trigger.MessageCount{N: 5}

	assert.False(t, trigger.Evaluate(tr, trigger.EvalContext{InboundCount: 4}))
	assert.True(t, trigger.Evaluate(tr, trigger.EvalContext{InboundCount: 5}))
	assert.False(t, trigger.Evaluate(tr, trigger.EvalContext{InboundCount: 6}))
	assert.False(t, trigger.Evaluate(tr, trigger.EvalContext{InboundCount: 10}))
}
