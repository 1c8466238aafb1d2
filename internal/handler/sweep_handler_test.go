package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crushline/automsg/internal/engine"
	"github.com/crushline/automsg/internal/handler"
)

type mockSweeper struct {
	calls   int
	summary engine.SweepSummary
}

func (m *mockSweeper) RunSweep(ctx context.Context) engine.SweepSummary {
	m.calls++
	return m.summary
}

func TestSweepRequiresSecret(t *testing.T) {
	sweeper := &mockSweeper{}
	h := &handler.SweepHandler{Engine: sweeper, Secret: "hunter2"}

	req := httptest.NewRequest("POST", "/internal/cron/sweep", nil)
	w := httptest.NewRecorder()
	h.RunSweep(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, sweeper.calls, "sweep must not run without the secret")
}

func TestSweepRejectsWrongSecret(t *testing.T) {
	sweeper := &mockSweeper{}
	h := &handler.SweepHandler{Engine: sweeper, Secret: "hunter2"}

	req := httptest.NewRequest("POST", "/internal/cron/sweep", nil)
	req.Header.Set("X-Cron-Secret", "guess")
	w := httptest.NewRecorder()
	h.RunSweep(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSweepReturnsSummary(t *testing.T) {
	sweeper := &mockSweeper{summary: engine.SweepSummary{
		RulesProcessed: 2,
		SendsAttempted: 40,
		SendsSucceeded: 39,
		Errors:         []engine.SendError{{AutoMessageID: 5, SubscriberID: 9, Err: "boom"}},
	}}
	h := &handler.SweepHandler{Engine: sweeper, Secret: "hunter2"}

	req := httptest.NewRequest("POST", "/internal/cron/sweep", nil)
	req.Header.Set("X-Cron-Secret", "hunter2")
	w := httptest.NewRecorder()
	h.RunSweep(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, sweeper.calls)

	var got engine.SweepSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, 2, got.RulesProcessed)
	assert.Equal(t, 39, got.SendsSucceeded)
	require.Len(t, got.Errors, 1)
}

func TestSweepWithoutConfiguredSecret(t *testing.T) {
	sweeper := &mockSweeper{}
	h := &handler.SweepHandler{Engine: sweeper}

	req := httptest.NewRequest("POST", "/internal/cron/sweep", nil)
	w := httptest.NewRecorder()
	h.RunSweep(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, sweeper.calls)
}
