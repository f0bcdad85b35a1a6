// Package dolt implements the storage interface using Dolt.
//
// Two access modes are supported:
//   - Server: connects to a running `dolt sql-server` over the MySQL wire
//     protocol (github.com/go-sql-driver/mysql). Transient connection errors
//     are retried with exponential backoff.
//   - Embedded: opens the database directory in-process through
//     github.com/dolthub/driver. Requires a CGO build.
package dolt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"

	"github.com/yidong72/chisel/internal/storage/sqlstore"
)

// DoltStore implements the Storage interface using Dolt
type DoltStore struct {
	*sqlstore.Store
	serverMode bool
	dbPath     string
}

// Config holds Dolt database configuration
type Config struct {
	Path           string // Embedded: path to the Dolt database directory
	CommitterName  string // Embedded: committer recorded by the engine
	CommitterEmail string
	Database       string // Database name within Dolt (default: "chisel")

	// Server mode options
	ServerMode     bool
	ServerHost     string // default: 127.0.0.1
	ServerPort     int    // default: 3307
	ServerUser     string // default: root
	ServerPassword string
	ServerTLS      bool
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = "chisel"
	}
	if c.ServerHost == "" {
		c.ServerHost = "127.0.0.1"
	}
	if c.ServerPort == 0 {
		c.ServerPort = 3307
	}
	if c.ServerUser == "" {
		c.ServerUser = "root"
	}
	if c.CommitterName == "" {
		c.CommitterName = "chisel"
	}
	if c.CommitterEmail == "" {
		c.CommitterEmail = "chisel@localhost"
	}
}

// New opens a Dolt store in server or embedded mode according to cfg.
func New(ctx context.Context, cfg *Config) (*DoltStore, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	if err := validateDatabaseName(cfg.Database); err != nil {
		return nil, fmt.Errorf("invalid database name %q: %w", cfg.Database, err)
	}
	if cfg.ServerMode {
		return newServerMode(ctx, cfg)
	}
	return newEmbeddedMode(ctx, cfg)
}

// Server mode retry configuration.
// go-sql-driver/mysql has no built-in retry, so stale pool connections,
// brief network issues and server restarts are retried here.
const serverRetryMaxElapsed = 30 * time.Second

func newServerRetryBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = serverRetryMaxElapsed
	return bo
}

// isRetryableError returns true if the error is a transient connection error
// that should be retried in server mode.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"database is read only",
		"lost connection",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}

func withServerRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err // Retryable - backoff will retry
		}
		if err != nil {
			return backoff.Permanent(err) // Non-retryable - stop immediately
		}
		return nil
	}, backoff.WithContext(newServerRetryBackoff(), ctx))
}

// buildServerDSN renders the go-sql-driver DSN for cfg. An empty database
// connects without selecting one (used to CREATE DATABASE).
func buildServerDSN(cfg *Config, database string) string {
	mc := mysql.NewConfig()
	mc.User = cfg.ServerUser
	mc.Passwd = cfg.ServerPassword
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
	mc.DBName = database
	mc.ParseTime = true
	if cfg.ServerTLS {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

func newServerMode(ctx context.Context, cfg *Config) (*DoltStore, error) {
	initDB, err := sql.Open("mysql", buildServerDSN(cfg, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to open init connection: %w", err)
	}
	defer func() { _ = initDB.Close() }()

	err = withServerRetry(ctx, func() error {
		_, execErr := initDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)) //nolint:gosec // G201: validated by validateDatabaseName
		return execErr
	})
	if err != nil {
		// Dolt may return error 1007 even with IF NOT EXISTS
		var me *mysql.MySQLError
		if !(errors.As(err, &me) && me.Number == 1007) {
			if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
				return nil, fmt.Errorf("failed to connect to Dolt server at %s:%d: %w\n\nThe Dolt server may not be running. Start it with:\n  dolt sql-server --port %d",
					cfg.ServerHost, cfg.ServerPort, err, cfg.ServerPort)
			}
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	db, err := sql.Open("mysql", buildServerDSN(cfg, cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to open Dolt server connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := sqlstore.New(ctx, db, Dialect(), sqlstore.WithRetry(withServerRetry))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DoltStore{Store: store, serverMode: true}, nil
}

// IsServerMode reports whether the store talks to a dolt sql-server.
func (s *DoltStore) IsServerMode() bool {
	return s.serverMode
}

// Path returns the embedded database directory ("" in server mode).
func (s *DoltStore) Path() string {
	return s.dbPath
}

var databaseNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]{0,63}$`)

// validateDatabaseName rejects names that could escape the backtick quoting
// used in CREATE DATABASE.
func validateDatabaseName(name string) error {
	if !databaseNameRe.MatchString(name) {
		return fmt.Errorf("must be 1-64 characters of letters, digits, '_' or '-'")
	}
	return nil
}

// Dialect returns the MySQL/Dolt flavour of the shared SQL.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:   "dolt",
		Schema: schema,
		UpsertConfig: `
			INSERT INTO config (name, value) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value)
		`,
		IsUniqueViolation: isUniqueViolation,
	}
}

// isUniqueViolation matches MySQL error 1062 (ER_DUP_ENTRY).
func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate")
}
