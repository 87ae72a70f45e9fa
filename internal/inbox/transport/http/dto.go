package http

import "github.com/telfeed/inboxd/internal/inbox/domain"

// WebhookResponse acknowledges an accepted (or idempotently replayed)
// webhook.
type WebhookResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ValidationErrorResponse carries the first failing field and reason for a
// 422 response.
type ValidationErrorResponse struct {
	Detail string `json:"detail"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// MessagesResponse is the paginated /messages body.
type MessagesResponse struct {
	Data   []domain.Message `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// StatsResponse is the /stats body. The timestamp fields are null when the
// store is empty.
type StatsResponse struct {
	TotalMessages     int                  `json:"total_messages"`
	SendersCount      int                  `json:"senders_count"`
	MessagesPerSender []domain.SenderCount `json:"messages_per_sender"`
	FirstMessageTs    *string              `json:"first_message_ts"`
	LastMessageTs     *string              `json:"last_message_ts"`
}
