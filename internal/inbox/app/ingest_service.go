package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/telfeed/inboxd/internal/inbox/domain"
	"github.com/telfeed/inboxd/internal/inbox/repository"
	"github.com/telfeed/inboxd/internal/inbox/signature"
)

// ErrInvalidSignature is returned when the request signature does not
// authenticate the raw body. The store is never touched in that case.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Outcome labels for logs and the webhook_requests_total metric.
const (
	ResultSuccess          = "success"
	ResultDuplicate        = "duplicate"
	ResultInvalidSignature = "invalid_signature"
	ResultValidationError  = "validation_error"
	ResultDBError          = "db_error"
)

// Receipt describes a webhook that made it through the pipeline.
type Receipt struct {
	MessageID string
	Duplicate bool
}

// IngestService runs the write path: signature check, decode, validation,
// idempotent insert. Each stage must pass before the next runs.
type IngestService struct {
	repo     repository.MessageRepository
	validate *domain.PayloadValidator
	secret   string
	logger   *slog.Logger
}

func NewIngestService(
	repo repository.MessageRepository,
	validate *domain.PayloadValidator,
	secret string,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		repo:     repo,
		validate: validate,
		secret:   secret,
		logger:   logger.With("service", "ingest"),
	}
}

// Process ingests one webhook request. The raw body bytes must be exactly
// as received on the wire; the signature is verified against them before
// anything is decoded or stored.
//
// Errors are classified for the transport layer: ErrInvalidSignature,
// *domain.ValidationError, or a wrapped store error. Duplicate submissions
// are a success path, reported via Receipt.Duplicate.
func (s *IngestService) Process(ctx context.Context, rawBody []byte, signatureHex string) (*Receipt, error) {
	if !signature.Verify(rawBody, signatureHex, s.secret) {
		s.logger.WarnContext(ctx, "webhook signature rejected", "result", ResultInvalidSignature)
		webhookRequestsTotal.WithLabelValues(ResultInvalidSignature).Inc()
		return nil, ErrInvalidSignature
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		verr := &domain.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
		s.logger.WarnContext(ctx, "webhook payload rejected", "result", ResultValidationError, "error", verr)
		webhookRequestsTotal.WithLabelValues(ResultValidationError).Inc()
		return nil, verr
	}

	if verr := s.validate.Validate(ctx, &payload); verr != nil {
		s.logger.WarnContext(ctx, "webhook payload rejected",
			"result", ResultValidationError, "field", verr.Field, "reason", verr.Reason)
		webhookRequestsTotal.WithLabelValues(ResultValidationError).Inc()
		return nil, verr
	}

	msg := &domain.Message{
		MessageID: payload.MessageID,
		From:      payload.From,
		To:        payload.To,
		Ts:        payload.Ts,
		Text:      payload.Text,
	}

	outcome, err := s.repo.InsertIfAbsent(ctx, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "webhook store failure",
			"result", ResultDBError, "message_id", payload.MessageID, "error", err)
		webhookRequestsTotal.WithLabelValues(ResultDBError).Inc()
		return nil, fmt.Errorf("store message: %w", err)
	}

	dup := outcome == repository.OutcomeDuplicate
	result := ResultSuccess
	if dup {
		result = ResultDuplicate
	}
	s.logger.InfoContext(ctx, "webhook processed",
		"result", result, "message_id", payload.MessageID, "dup", dup)
	webhookRequestsTotal.WithLabelValues(result).Inc()

	return &Receipt{MessageID: payload.MessageID, Duplicate: dup}, nil
}
