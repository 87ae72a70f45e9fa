package domain

import "fmt"

// Message is the persisted form of an accepted webhook payload.
// Ts is the caller-supplied event timestamp; CreatedAt is assigned by the
// store at the moment of successful persistence. Both are kept in their
// ISO-8601 text form so that lexical ordering matches instant ordering.
type Message struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Ts        string  `json:"ts"`
	Text      *string `json:"text"`
	CreatedAt string  `json:"created_at"`
}

// MessageFilter narrows a message listing. Zero values mean "match all".
type MessageFilter struct {
	From         string // exact sender match
	Since        string // ts >= Since, compared on the stored text form
	TextContains string // case-insensitive substring of text
}

// SenderCount is one entry of the per-sender leaderboard.
type SenderCount struct {
	From  string `json:"from"`
	Count int    `json:"count"`
}

// Stats is the aggregate view over all stored messages. FirstTs and LastTs
// are nil when the store is empty.
type Stats struct {
	TotalMessages int
	SendersCount  int
	TopSenders    []SenderCount
	FirstTs       *string
	LastTs        *string
}

// ValidationError reports the first field that failed payload validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on field %q: %s", e.Field, e.Reason)
}
