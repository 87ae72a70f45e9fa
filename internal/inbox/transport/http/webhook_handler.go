package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/telfeed/inboxd/internal/inbox/app"
	"github.com/telfeed/inboxd/internal/inbox/domain"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

// WebhookProcessor is the ingestion pipeline as seen by the handler.
// An interface keeps the handler testable with a fake pipeline.
type WebhookProcessor interface {
	Process(ctx context.Context, rawBody []byte, signatureHex string) (*app.Receipt, error)
}

type WebhookHandler struct {
	pipeline WebhookProcessor
	logger   *slog.Logger
}

func NewWebhookHandler(pipeline WebhookProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		logger:   logger.With("handler", "webhook"),
	}
}

// HandleWebhook receives a signed webhook message. It hands the exact raw
// bytes to the pipeline; the signature must authenticate what was sent on
// the wire, not a re-serialization of it.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read webhook request body", "error", err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Detail: "request body too large"})
		} else {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "error reading request body"})
		}
		return
	}
	defer r.Body.Close()

	receipt, err := h.pipeline.Process(ctx, rawBody, r.Header.Get(SignatureHeader))
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, app.ErrInvalidSignature):
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "invalid signature"})
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Detail: "validation error",
				Field:  verr.Field,
				Reason: verr.Reason,
			})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "database error"})
		}
		return
	}

	logger.DebugContext(ctx, "webhook acknowledged", "message_id", receipt.MessageID, "dup", receipt.Duplicate)
	writeJSON(w, http.StatusOK, WebhookResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
