package http

import (
	"context"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/telfeed/inboxd/internal/inbox/domain"
)

// StatsProvider is the aggregate view as seen by the handler.
type StatsProvider interface {
	Snapshot(ctx context.Context) (*domain.Stats, error)
}

type StatsHandler struct {
	stats  StatsProvider
	logger *slog.Logger
}

func NewStatsHandler(stats StatsProvider, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger.With("handler", "stats"),
	}
}

// HandleGetStats serves GET /stats.
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	stats, err := h.stats.Snapshot(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "database error"})
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		TotalMessages:     stats.TotalMessages,
		SendersCount:      stats.SendersCount,
		MessagesPerSender: stats.TopSenders,
		FirstMessageTs:    stats.FirstTs,
		LastMessageTs:     stats.LastTs,
	})
}
