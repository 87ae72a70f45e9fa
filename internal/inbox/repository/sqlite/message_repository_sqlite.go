package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/telfeed/inboxd/internal/inbox/domain"
	"github.com/telfeed/inboxd/internal/inbox/repository"
)

// SQLiteMessageRepository implements repository.MessageRepository on a
// SQLite database. SQLite serializes writers, which satisfies the
// single-writer requirement; readers proceed concurrently under WAL.
type SQLiteMessageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database at path with a busy timeout
// and WAL journaling, ready to be passed to NewSQLiteMessageRepository.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return db, nil
}

func NewSQLiteMessageRepository(db *sql.DB, logger *slog.Logger) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{
		db:     db,
		logger: logger.With("component", "sqlite_message_repository"),
	}
}

// InitSchema creates the messages table and its secondary indexes. The
// (from_msisdn) and (ts, message_id) indexes back the filter and ordering
// contracts of List.
func (r *SQLiteMessageRepository) InitSchema(ctx context.Context) error {
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
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteMessageRepository) InsertIfAbsent(ctx context.Context, msg *domain.Message) (repository.InsertOutcome, error) {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING`,
		msg.MessageID, msg.From, msg.To, msg.Ts, msg.Text, createdAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert message", "error", err, "message_id", msg.MessageID)
		return 0, fmt.Errorf("insert message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert message rows affected: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}

	msg.CreatedAt = createdAt
	return repository.OutcomeInserted, nil
}

func (r *SQLiteMessageRepository) List(ctx context.Context, filter domain.MessageFilter, limit, offset int) ([]domain.Message, int, error) {
	whereSQL, args := buildWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM messages WHERE " + whereSQL
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	dataQuery := `
		SELECT message_id, from_msisdn, to_msisdn, ts, text, created_at
		FROM messages
		WHERE ` + whereSQL + `
		ORDER BY ts ASC, message_id ASC
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		var m domain.Message
		var text sql.NullString
		if err := rows.Scan(&m.MessageID, &m.From, &m.To, &m.Ts, &text, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan message row: %w", err)
		}
		if text.Valid {
			m.Text = &text.String
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate message rows: %w", err)
	}

	return messages, total, nil
}

func (r *SQLiteMessageRepository) Aggregate(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{TopSenders: []domain.SenderCount{}}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT from_msisdn) FROM messages`,
	).Scan(&stats.TotalMessages, &stats.SendersCount)
	if err != nil {
		return nil, fmt.Errorf("aggregate counts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT from_msisdn, COUNT(*) AS cnt
		FROM messages
		GROUP BY from_msisdn
		ORDER BY cnt DESC, from_msisdn ASC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("aggregate top senders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc domain.SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan sender count: %w", err)
		}
		stats.TopSenders = append(stats.TopSenders, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sender counts: %w", err)
	}

	var firstTs, lastTs sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT MIN(ts), MAX(ts) FROM messages`,
	).Scan(&firstTs, &lastTs)
	if err != nil {
		return nil, fmt.Errorf("aggregate timestamps: %w", err)
	}
	if firstTs.Valid {
		stats.FirstTs = &firstTs.String
	}
	if lastTs.Valid {
		stats.LastTs = &lastTs.String
	}

	return stats, nil
}

func (r *SQLiteMessageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// buildWhere translates a MessageFilter into a WHERE clause. Substring
// matching uses instr over lowered text rather than LIKE so that '%' and
// '_' in the needle are matched literally.
func buildWhere(filter domain.MessageFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.From != "" {
		clauses = append(clauses, "from_msisdn = ?")
		args = append(args, filter.From)
	}
	if filter.Since != "" {
		clauses = append(clauses, "ts >= ?")
		args = append(args, filter.Since)
	}
	if filter.TextContains != "" {
		clauses = append(clauses, "text IS NOT NULL AND instr(lower(text), lower(?)) > 0")
		args = append(args, filter.TextContains)
	}

	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}
