package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telfeed/inboxd/internal/inbox/domain"
	"github.com/telfeed/inboxd/internal/inbox/repository"
)

func setupMessageRepoTest(t *testing.T) (*PgMessageRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgMessageRepository(mockPool, logger), mockPool
}

func strPtr(s string) *string { return &s }

func TestPgMessageRepository_InsertIfAbsent(t *testing.T) {
	msg := &domain.Message{
		MessageID: "msg-001",
		From:      "+15550001111",
		To:        "+15550002222",
		Ts:        "2024-01-15T10:30:00Z",
		Text:      strPtr("hello"),
	}

	t.Run("new message is inserted", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		mockPool.ExpectExec(`INSERT INTO messages \(message_id, from_msisdn, to_msisdn, ts, text, created_at\)`).
			WithArgs(msg.MessageID, msg.From, msg.To, msg.Ts, msg.Text, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		outcome, err := repo.InsertIfAbsent(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, repository.OutcomeInserted, outcome)
		assert.NotEmpty(t, msg.CreatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("conflicting message_id reports duplicate via rows affected", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		mockPool.ExpectExec(`ON CONFLICT \(message_id\) DO NOTHING`).
			WithArgs(msg.MessageID, msg.From, msg.To, msg.Ts, msg.Text, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		outcome, err := repo.InsertIfAbsent(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, repository.OutcomeDuplicate, outcome)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		dbErr := errors.New("connection reset")
		mockPool.ExpectExec(`INSERT INTO messages`).
			WithArgs(msg.MessageID, msg.From, msg.To, msg.Ts, msg.Text, pgxmock.AnyArg()).
			WillReturnError(dbErr)

		_, err := repo.InsertIfAbsent(context.Background(), msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgMessageRepository_List(t *testing.T) {
	messageColumns := []string{"message_id", "from_msisdn", "to_msisdn", "ts", "text", "created_at"}

	t.Run("combined filters number their placeholders in order", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		filter := domain.MessageFilter{
			From:         "+15550001111",
			Since:        "2024-01-01T00:00:00Z",
			TextContains: "hello",
		}

		mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM messages WHERE from_msisdn = \$1 AND ts >= \$2 AND text IS NOT NULL AND position\(lower\(\$3\) in lower\(text\)\) > 0`).
			WithArgs(filter.From, filter.Since, filter.TextContains).
			WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(3))

		mockPool.ExpectQuery(`ORDER BY ts ASC, message_id ASC\s+LIMIT \$4 OFFSET \$5`).
			WithArgs(filter.From, filter.Since, filter.TextContains, 2, 1).
			WillReturnRows(mockPool.NewRows(messageColumns).
				AddRow("msg-002", "+15550001111", "+15550002222", "2024-01-02T00:00:00Z", strPtr("hello again"), "2024-01-02T00:00:01Z").
				AddRow("msg-003", "+15550001111", "+15550002222", "2024-01-03T00:00:00Z", strPtr("oh hello"), "2024-01-03T00:00:01Z"))

		messages, total, err := repo.List(context.Background(), filter, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, messages, 2)
		assert.Equal(t, "msg-002", messages[0].MessageID)
		assert.Equal(t, "msg-003", messages[1].MessageID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("no filters fall back to a tautology and two trailing args", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM messages WHERE 1=1`).
			WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(1))

		mockPool.ExpectQuery(`ORDER BY ts ASC, message_id ASC\s+LIMIT \$1 OFFSET \$2`).
			WithArgs(50, 0).
			WillReturnRows(mockPool.NewRows(messageColumns).
				AddRow("msg-001", "+15550001111", "+15550002222", "2024-01-01T00:00:00Z", nil, "2024-01-01T00:00:01Z"))

		messages, total, err := repo.List(context.Background(), domain.MessageFilter{}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, messages, 1)
		assert.Nil(t, messages[0].Text)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("count query error is wrapped", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		dbErr := errors.New("relation does not exist")
		mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM messages`).WillReturnError(dbErr)

		_, _, err := repo.List(context.Background(), domain.MessageFilter{}, 50, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgMessageRepository_Aggregate(t *testing.T) {
	t.Run("empty table scans NULL min and max into nil", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		mockPool.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT from_msisdn\) FROM messages`).
			WillReturnRows(mockPool.NewRows([]string{"count", "count"}).AddRow(0, 0))
		mockPool.ExpectQuery(`GROUP BY from_msisdn`).
			WillReturnRows(mockPool.NewRows([]string{"from_msisdn", "cnt"}))
		mockPool.ExpectQuery(`SELECT MIN\(ts\), MAX\(ts\) FROM messages`).
			WillReturnRows(mockPool.NewRows([]string{"min", "max"}).AddRow(nil, nil))

		stats, err := repo.Aggregate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalMessages)
		assert.Equal(t, 0, stats.SendersCount)
		assert.NotNil(t, stats.TopSenders)
		assert.Empty(t, stats.TopSenders)
		assert.Nil(t, stats.FirstTs)
		assert.Nil(t, stats.LastTs)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("populated table fills counts, senders and bounds", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		mockPool.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT from_msisdn\) FROM messages`).
			WillReturnRows(mockPool.NewRows([]string{"count", "count"}).AddRow(5, 2))
		mockPool.ExpectQuery(`GROUP BY from_msisdn`).
			WillReturnRows(mockPool.NewRows([]string{"from_msisdn", "cnt"}).
				AddRow("+15550001111", 3).
				AddRow("+15550002222", 2))
		mockPool.ExpectQuery(`SELECT MIN\(ts\), MAX\(ts\) FROM messages`).
			WillReturnRows(mockPool.NewRows([]string{"min", "max"}).
				AddRow(strPtr("2024-01-01T00:00:00Z"), strPtr("2024-01-05T00:00:00Z")))

		stats, err := repo.Aggregate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, stats.TotalMessages)
		assert.Equal(t, 2, stats.SendersCount)
		require.Len(t, stats.TopSenders, 2)
		assert.Equal(t, "+15550001111", stats.TopSenders[0].From)
		assert.Equal(t, 3, stats.TopSenders[0].Count)
		require.NotNil(t, stats.FirstTs)
		assert.Equal(t, "2024-01-01T00:00:00Z", *stats.FirstTs)
		require.NotNil(t, stats.LastTs)
		assert.Equal(t, "2024-01-05T00:00:00Z", *stats.LastTs)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("top senders query error is wrapped", func(t *testing.T) {
		repo, mockPool := setupMessageRepoTest(t)

		dbErr := errors.New("query canceled")
		mockPool.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT from_msisdn\) FROM messages`).
			WillReturnRows(mockPool.NewRows([]string{"count", "count"}).AddRow(5, 2))
		mockPool.ExpectQuery(`GROUP BY from_msisdn`).WillReturnError(dbErr)

		_, err := repo.Aggregate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
