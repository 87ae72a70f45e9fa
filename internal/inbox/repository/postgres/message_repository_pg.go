package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/telfeed/inboxd/internal/inbox/domain"
	"github.com/telfeed/inboxd/internal/inbox/repository"
)

// PgxPool is the subset of pgxpool.Pool the repository needs. Both
// *pgxpool.Pool and pgxmock's pool satisfy it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PgMessageRepository implements repository.MessageRepository on
// PostgreSQL. The timestamp columns stay TEXT so that ordering and the
// since filter behave identically to the SQLite implementation.
type PgMessageRepository struct {
	db     PgxPool
	logger *slog.Logger
}

func NewPgMessageRepository(dbPool PgxPool, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{
		db:     dbPool,
		logger: logger.With("component", "pg_message_repository"),
	}
}

// InitSchema creates the messages table and its secondary indexes.
func (r *PgMessageRepository) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			message_id  TEXT PRIMARY KEY,
			from_msisdn TEXT NOT NULL,
			to_msisdn   TEXT NOT NULL,
			ts          TEXT NOT NULL,
			text        TEXT,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_msisdn)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts, message_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (r *PgMessageRepository) InsertIfAbsent(ctx context.Context, msg *domain.Message) (repository.InsertOutcome, error) {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	ct, err := r.db.Exec(ctx, `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING`,
		msg.MessageID, msg.From, msg.To, msg.Ts, msg.Text, createdAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert message", "error", err, "message_id", msg.MessageID)
		return 0, fmt.Errorf("insert message: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.OutcomeDuplicate, nil
	}

	msg.CreatedAt = createdAt
	return repository.OutcomeInserted, nil
}

func (r *PgMessageRepository) List(ctx context.Context, filter domain.MessageFilter, limit, offset int) ([]domain.Message, int, error) {
	whereSQL, args := buildWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM messages WHERE " + whereSQL
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	dataQuery := fmt.Sprintf(`
		SELECT message_id, from_msisdn, to_msisdn, ts, text, created_at
		FROM messages
		WHERE %s
		ORDER BY ts ASC, message_id ASC
		LIMIT $%d OFFSET $%d`, whereSQL, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, dataQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.MessageID, &m.From, &m.To, &m.Ts, &m.Text, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate message rows: %w", err)
	}

	return messages, total, nil
}

func (r *PgMessageRepository) Aggregate(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{TopSenders: []domain.SenderCount{}}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT from_msisdn) FROM messages`,
	).Scan(&stats.TotalMessages, &stats.SendersCount)
	if err != nil {
		return nil, fmt.Errorf("aggregate counts: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT from_msisdn, COUNT(*) AS cnt
		FROM messages
		GROUP BY from_msisdn
		ORDER BY cnt DESC, from_msisdn ASC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("aggregate top senders: %w", err)
	}
	senders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SenderCount, error) {
		var sc domain.SenderCount
		err := row.Scan(&sc.From, &sc.Count)
		return sc, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan sender counts: %w", err)
	}
	stats.TopSenders = append(stats.TopSenders, senders...)

	err = r.db.QueryRow(ctx,
		`SELECT MIN(ts), MAX(ts) FROM messages`,
	).Scan(&stats.FirstTs, &stats.LastTs)
	if err != nil {
		return nil, fmt.Errorf("aggregate timestamps: %w", err)
	}

	return stats, nil
}

func (r *PgMessageRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func buildWhere(filter domain.MessageFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.From != "" {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("from_msisdn = $%d", len(args)))
	}
	if filter.Since != "" {
		args = append(args, filter.Since)
		clauses = append(clauses, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if filter.TextContains != "" {
		args = append(args, filter.TextContains)
		clauses = append(clauses, fmt.Sprintf("text IS NOT NULL AND position(lower($%d) in lower(text)) > 0", len(args)))
	}

	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}
