package http

import (
	"context"
	"log/slog"
	"net/http"
)

// StorePinger reports store reachability for the readiness probe.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes. Readiness means
// exactly: the store is reachable and the webhook secret is configured.
type HealthHandler struct {
	store            StorePinger
	secretConfigured bool
	logger           *slog.Logger
}

func NewHealthHandler(store StorePinger, secretConfigured bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:            store,
		secretConfigured: secretConfigured,
		logger:           logger.With("handler", "health"),
	}
}

func (h *HealthHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.secretConfigured {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "missing webhook secret",
		})
		return
	}

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "readiness check failed: store unreachable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
