package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/crushline/automsg/internal/engine"
)

// Sweeper runs one sweep pass.
type Sweeper interface {
	RunSweep(ctx context.Context) engine.SweepSummary
}

// SweepHandler exposes the scheduled sweep to an external cron invoker.
// When a secret is configured, requests must carry it in X-Cron-Secret;
// deployments inside a trusted network may leave the secret empty to disable
// the check.
type SweepHandler struct {
	Engine Sweeper
	Secret string
}

func (h *SweepHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if h.Secret != "" {
		got := r.Header.Get("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	summary := h.Engine.RunSweep(r.Context())
	writeJSON(w, http.StatusOK, summary)
}
