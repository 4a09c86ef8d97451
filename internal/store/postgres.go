package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comigor/msghook/internal/apperr"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS messages (
		message_id  TEXT PRIMARY KEY,
		sender      TEXT NOT NULL,
		recipient   TEXT NOT NULL,
		timestamp   TEXT NOT NULL,
		text        TEXT,
		received_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_received_at ON messages(received_at);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
	CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient);
`

// PostgresStore keeps messages in PostgreSQL through a connection pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	clock *clock
}

// NewPostgresStore connects to databaseURL and ensures the messages table exists.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...Option) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperr.Storage(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Storage(err, "connect postgres")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, apperr.Storage(err, "create postgres schema")
	}
	// TIMESTAMPTZ keeps microseconds.
	return &PostgresStore{pool: pool, clock: newClock(time.Microsecond, opts...)}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Insert adds msg unless its message id is already stored.
func (s *PostgresStore) Insert(ctx context.Context, msg Message) (InsertResult, error) {
	defer observe("postgres", "insert", time.Now())

	if err := validateMessage(msg); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO messages (message_id, sender, recipient, timestamp, text, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`, msg.MessageID, msg.Sender, msg.Recipient, msg.Timestamp, msg.Text, s.clock.next())
	if err != nil {
		return 0, apperr.Storage(err, "insert message")
	}
	if tag.RowsAffected() == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// List returns the matching messages, most recently received first.
func (s *PostgresStore) List(ctx context.Context, f Filter) (Page, error) {
	defer observe("postgres", "list", time.Now())

	if err := validateFilter(f); err != nil {
		return Page{}, err
	}
	where, args := whereClause(f, func(n int) string { return "$" + strconv.Itoa(n) })

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Page{}, apperr.Storage(err, "begin list")
	}
	defer tx.Rollback(ctx)

	var total int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM messages`+where, args...).Scan(&total); err != nil {
		return Page{}, apperr.Storage(err, "count messages")
	}

	limitArg := "$" + strconv.Itoa(len(args)+1)
	offsetArg := "$" + strconv.Itoa(len(args)+2)
	rows, err := tx.Query(ctx, `
		SELECT message_id, sender, recipient, timestamp, text, received_at
		FROM messages`+where+`
		ORDER BY received_at DESC
		LIMIT `+limitArg+` OFFSET `+offsetArg,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return Page{}, apperr.Storage(err, "list messages")
	}
	defer rows.Close()

	page := Page{Total: int(total), Items: []Message{}}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.MessageID, &m.Sender, &m.Recipient, &m.Timestamp, &m.Text, &m.ReceivedAt); err != nil {
			return Page{}, apperr.Storage(err, "scan message")
		}
		m.ReceivedAt = m.ReceivedAt.UTC()
		page.Items = append(page.Items, m)
	}
	if err := rows.Err(); err != nil {
		return Page{}, apperr.Storage(err, "list messages")
	}
	return page, nil
}
