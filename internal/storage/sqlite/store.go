// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	// Import SQLite driver
	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/storage/sqlstore"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	*sqlstore.Store
	dbPath string
}

// setupWASMCache configures WASM compilation caching to reduce SQLite startup time.
// Returns the cache directory path (empty string if using in-memory cache).
//
// Cache location: ~/.cache/chisel/wasm/ (platform-specific via os.UserCacheDir).
// wazero keys the cache by its own version, so stale entries are harmless.
func setupWASMCache() string {
	cacheDir := ""
	if userCache, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(userCache, "chisel", "wasm")
	}

	var cache wazero.CompilationCache
	if cacheDir != "" {
		if c, err := wazero.NewCompilationCacheWithDir(cacheDir); err == nil {
			cache = c
		}
	}

	// Fallback to in-memory cache if dir creation failed
	if cache == nil {
		cache = wazero.NewCompilationCache()
		cacheDir = ""
	}

	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)

	return cacheDir
}

func init() {
	_ = setupWASMCache()
}

const busyRetryMaxElapsed = 10 * time.Second

// New opens (creating if needed) the SQLite database at path.
// ":memory:" opens a private in-memory database, which tests use.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	isInMemory := path == ":memory:"
	if !isInMemory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	connStr := storage.SQLiteConnString(path, false)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// chisel is single-writer; one connection avoids SQLITE_BUSY between our own statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if !isInMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := sqlstore.New(ctx, db, Dialect(), sqlstore.WithRetry(retryBusy))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	absPath := path
	if !isInMemory {
		absPath, err = filepath.Abs(path)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	return &SQLiteStorage{Store: store, dbPath: absPath}, nil
}

// Close checkpoints the WAL so all writes land in the main database file,
// then closes the connection.
func (s *SQLiteStorage) Close() error {
	if s.dbPath != ":memory:" {
		_, _ = s.DB().Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.Store.Close()
}

// Path returns the absolute path to the database file
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Dialect returns the SQLite flavour of the shared SQL.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:   "sqlite",
		Schema: schema,
		UpsertConfig: `
			INSERT INTO config (name, value) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value
		`,
		IsUniqueViolation: isUniqueViolation,
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusy(err error) bool {
	if errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "database is locked")
}

// retryBusy retries SQLITE_BUSY beyond busy_timeout, which matters when
// another chisel process holds the write lock across a WAL checkpoint.
func retryBusy(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = busyRetryMaxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isBusy(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
