package store

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/msghook/internal/apperr"
)

// receivedAtLayout is fixed width so that text ordering matches time ordering.
const receivedAtLayout = "2006-01-02T15:04:05.000000000Z"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		message_id  TEXT PRIMARY KEY,
		sender      TEXT NOT NULL,
		recipient   TEXT NOT NULL,
		timestamp   TEXT NOT NULL,
		text        TEXT,
		received_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_received_at ON messages(received_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient)`,
}

// SQLiteStore keeps messages in a local SQLite file.
type SQLiteStore struct {
	db    *sql.DB
	clock *clock
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// ensures the messages table exists.
func NewSQLiteStore(ctx context.Context, dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "app.db"
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.Storage(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, apperr.Storage(err, "open sqlite database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperr.Storage(err, "connect sqlite database")
	}

	s := &SQLiteStore{db: db, clock: newClock(time.Nanosecond, opts...)}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDSN renders dbPath as a file: URI so that '?' and '#' in the path
// are not taken for the query or fragment.
func sqliteDSN(dbPath string) string {
	u := url.URL{
		Scheme:   "file",
		Path:     dbPath,
		OmitHost: true,
		RawQuery: "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)",
	}
	return u.String()
}

// initSchema creates the messages table and its indexes if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperr.Storage(err, "create sqlite schema")
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert adds msg unless its message id is already stored.
func (s *SQLiteStore) Insert(ctx context.Context, msg Message) (InsertResult, error) {
	defer observe("sqlite", "insert", time.Now())

	if err := validateMessage(msg); err != nil {
		return 0, err
	}
	var text sql.NullString
	if msg.Text != nil {
		text = sql.NullString{String: *msg.Text, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, sender, recipient, timestamp, text, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, msg.MessageID, msg.Sender, msg.Recipient, msg.Timestamp, text, s.clock.next().Format(receivedAtLayout))
	if err != nil {
		return 0, apperr.Storage(err, "insert message")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage(err, "insert message")
	}
	if n == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// List returns the matching messages, most recently received first.
func (s *SQLiteStore) List(ctx context.Context, f Filter) (Page, error) {
	defer observe("sqlite", "list", time.Now())

	if err := validateFilter(f); err != nil {
		return Page{}, err
	}
	where, args := whereClause(f, func(int) string { return "?" })

	// Both reads share the snapshot taken by the transaction's first read.
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Page{}, apperr.Storage(err, "begin list")
	}
	defer tx.Rollback()

	var page Page
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`+where, args...).Scan(&page.Total); err != nil {
		return Page{}, apperr.Storage(err, "count messages")
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT message_id, sender, recipient, timestamp, text, received_at
		FROM messages`+where+`
		ORDER BY received_at DESC
		LIMIT ? OFFSET ?
	`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return Page{}, apperr.Storage(err, "list messages")
	}
	defer rows.Close()

	page.Items = []Message{}
	for rows.Next() {
		var (
			m          Message
			text       sql.NullString
			receivedAt string
		)
		if err := rows.Scan(&m.MessageID, &m.Sender, &m.Recipient, &m.Timestamp, &text, &receivedAt); err != nil {
			return Page{}, apperr.Storage(err, "scan message")
		}
		if text.Valid {
			m.Text = &text.String
		}
		if m.ReceivedAt, err = time.Parse(receivedAtLayout, receivedAt); err != nil {
			return Page{}, apperr.Storage(err, "parse received_at")
		}
		page.Items = append(page.Items, m)
	}
	if err := rows.Err(); err != nil {
		return Page{}, apperr.Storage(err, "list messages")
	}
	return page, nil
}
