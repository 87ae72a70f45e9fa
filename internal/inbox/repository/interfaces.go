package repository

import (
	"context"

	"github.com/telfeed/inboxd/internal/inbox/domain"
)

// InsertOutcome distinguishes a first-time insert from an idempotent replay.
type InsertOutcome int

const (
	OutcomeInserted InsertOutcome = iota
	OutcomeDuplicate
)

// MessageRepository is the persistence contract for messages. Insert is
// atomic with respect to concurrent callers: for a given message_id exactly
// one caller observes OutcomeInserted and the row is written once.
type MessageRepository interface {
	// InsertIfAbsent writes msg unless a row with the same message_id
	// already exists. The stored row's CreatedAt is assigned here.
	InsertIfAbsent(ctx context.Context, msg *domain.Message) (InsertOutcome, error)

	// List returns the matching rows ordered by (ts ASC, message_id ASC),
	// sliced by limit/offset, together with the total match count ignoring
	// pagination.
	List(ctx context.Context, filter domain.MessageFilter, limit, offset int) ([]domain.Message, int, error)

	// Aggregate computes store-wide statistics.
	Aggregate(ctx context.Context) (*domain.Stats, error)

	// Ping reports whether the underlying store is reachable.
	Ping(ctx context.Context) error
}
