package storage

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LockTimeoutEnv overrides how long SQLite waits on a locked database.
const LockTimeoutEnv = "CHISEL_LOCK_TIMEOUT"

// DefaultLockTimeout is the SQLite busy timeout when LockTimeoutEnv is unset.
const DefaultLockTimeout = 30 * time.Second

// LockTimeout returns the busy timeout from LockTimeoutEnv, falling back to
// DefaultLockTimeout when the variable is unset or unparsable.
func LockTimeout() time.Duration {
	if v := strings.TrimSpace(os.Getenv(LockTimeoutEnv)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return DefaultLockTimeout
}

// SQLiteConnString builds the ncruces DSN for path with the busy timeout
// pragma. ":memory:" yields a private in-memory database. A path that is
// already a file: URI keeps its own parameters; the busy timeout is added
// only when absent.
func SQLiteConnString(path string, readOnly bool) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	busy := fmt.Sprintf("_pragma=busy_timeout(%d)", LockTimeout().Milliseconds())

	conn := path
	switch {
	case path == ":memory:":
		conn = "file::memory:"
	case !strings.HasPrefix(path, "file:"):
		conn = "file:" + path
	}

	var params []string
	if readOnly && !strings.Contains(conn, "mode=") {
		params = append(params, "mode=ro")
	}
	if !strings.Contains(conn, "_pragma=busy_timeout") {
		params = append(params, busy)
	}
	if len(params) == 0 {
		return conn
	}
	sep := "?"
	if strings.Contains(conn, "?") {
		sep = "&"
	}
	return conn + sep + strings.Join(params, "&")
}
