// Package sqlstore implements storage.Storage on top of database/sql.
//
// The SQL is shared by the sqlite and dolt backends; each backend supplies a
// Dialect carrying its DDL, its upsert syntax and its constraint-error
// classifier, plus an optional retry policy for transient driver errors.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yidong72/chisel/internal/storage"
)

// Dialect captures the per-engine differences in the SQL we issue.
type Dialect struct {
	// Name is reported by Backend() ("sqlite", "dolt").
	Name string
	// Schema is executed statement by statement on open. Every statement must
	// be idempotent.
	Schema []string
	// UpsertConfig stores (name, value), replacing any existing value.
	UpsertConfig string
	// IsUniqueViolation reports whether err is a UNIQUE/PRIMARY KEY failure.
	IsUniqueViolation func(err error) bool
}

// RetryFunc runs op, retrying transient failures. It must return op's final error.
type RetryFunc func(ctx context.Context, op func() error) error

// Store implements storage.Storage over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	retry   RetryFunc
	closeFn func() error
	closed  atomic.Bool
	now     func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRetry installs a retry policy applied to every statement and transaction.
func WithRetry(fn RetryFunc) Option {
	return func(s *Store) { s.retry = fn }
}

// WithCloser registers extra cleanup run after the database is closed
// (e.g. releasing an embedded engine's filesystem locks).
func WithCloser(fn func() error) Option {
	return func(s *Store) { s.closeFn = fn }
}

// New wraps db and initializes the schema.
func New(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	s := &Store{db: db, dialect: dialect, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.execContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// SetClock overrides the time source used for created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Backend returns the dialect name.
func (s *Store) Backend() string {
	return s.dialect.Name
}

// Close closes the database connection. Safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.db.Close()
	if s.closeFn != nil {
		if cerr := s.closeFn(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if s.retry == nil {
		return op()
	}
	return s.retry(ctx, op)
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := s.withRetry(ctx, func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return result, err
}

func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := s.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, query, args...) // #nosec G701 -- callers build query from fixed fragments
		return queryErr
	})
	return rows, err
}

// withTx runs fn inside a transaction, committing on success. The whole
// transaction is retried as a unit.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// timestampLayout is fixed-width so that lexical order equals time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func (s *Store) timestamp() time.Time {
	// Truncate so values survive the text round trip unchanged.
	return s.now().UTC().Truncate(time.Microsecond)
}
