// Package store persists inbound messages idempotently, keyed by message id,
// and serves filtered, paginated listings of them.
//
// Two backends implement Store: SQLiteStore (the default, a single local
// file) and PostgresStore. Both detect duplicates through the primary key
// constraint in a single statement, so concurrent deliveries of the same
// message id never produce two rows.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/comigor/msghook/internal/apperr"
	"github.com/comigor/msghook/internal/config"
	"github.com/comigor/msghook/internal/metrics"
)

// Store defines durable message persistence.
type Store interface {
	// Insert adds msg, stamping ReceivedAt. A message id seen before yields
	// Duplicate and leaves the stored row unchanged.
	Insert(ctx context.Context, msg Message) (InsertResult, error)
	// List returns the page selected by f, newest first.
	List(ctx context.Context, f Filter) (Page, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open returns the backend selected by cfg.Driver with its schema in place.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

// Option configures a store.
type Option func(*clock)

// WithClock replaces the wall clock used to stamp ReceivedAt.
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		if now != nil {
			c.now = now
		}
	}
}

// clock hands out ReceivedAt values that never go backwards, even if the
// wall clock does, and are distinct at the backend's resolution.
type clock struct {
	mu         sync.Mutex
	now        func() time.Time
	resolution time.Duration
	last       time.Time
}

func newClock(resolution time.Duration, opts ...Option) *clock {
	c := &clock{now: time.Now, resolution: resolution}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(c.resolution)
	if !t.After(c.last) {
		t = c.last.Add(c.resolution)
	}
	c.last = t
	return t
}

func validateMessage(msg Message) error {
	var fields []apperr.FieldError
	required := []struct{ name, value string }{
		{"message_id", msg.MessageID},
		{"from", msg.Sender},
		{"to", msg.Recipient},
	}
	for _, r := range required {
		if r.value == "" {
			fields = append(fields, apperr.FieldError{Field: r.name, Message: "must not be empty"})
		}
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

func validateFilter(f Filter) error {
	var fields []apperr.FieldError
	if f.Limit < 0 {
		fields = append(fields, apperr.FieldError{Field: "limit", Message: "must not be negative"})
	}
	if f.Offset < 0 {
		fields = append(fields, apperr.FieldError{Field: "offset", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

// whereClause builds the filter predicate. placeholder renders the n-th
// (1-based) bind parameter for the backend.
func whereClause(f Filter, placeholder func(n int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Sender != "" {
		args = append(args, f.Sender)
		conds = append(conds, "sender = "+placeholder(len(args)))
	}
	if f.Recipient != "" {
		args = append(args, f.Recipient)
		conds = append(conds, "recipient = "+placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func observe(backend, op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
