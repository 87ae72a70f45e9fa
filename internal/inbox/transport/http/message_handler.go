package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/telfeed/inboxd/internal/inbox/app"
	"github.com/telfeed/inboxd/internal/inbox/domain"
)

// MessageLister is the read path as seen by the handler.
type MessageLister interface {
	List(ctx context.Context, params app.ListParams) ([]domain.Message, int, error)
}

type MessageHandler struct {
	query  MessageLister
	logger *slog.Logger
}

func NewMessageHandler(query MessageLister, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		query:  query,
		logger: logger.With("handler", "messages"),
	}
}

// HandleListMessages serves GET /messages with pagination and optional
// from/since/q filters.
func (h *MessageHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	q := r.URL.Query()
	params, err := app.ParseListParams(
		q.Get("limit"), q.Get("offset"), q.Get("from"), q.Get("since"), q.Get("q"),
	)
	if err != nil {
		var perr *app.QueryParamError
		if errors.As(err, &perr) {
			logger.WarnContext(ctx, "rejected query parameters", "param", perr.Param, "reason", perr.Reason)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: perr.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "invalid query parameters"})
		return
	}

	messages, total, err := h.query.List(ctx, params)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list messages", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "database error"})
		return
	}

	writeJSON(w, http.StatusOK, MessagesResponse{
		Data:   messages,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}
