package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSQLiteConnString(t *testing.T) {
	t.Setenv(LockTimeoutEnv, "")
	tests := []struct {
		name     string
		path     string
		readOnly bool
		want     string
	}{
		{"empty", "  ", false, ""},
		{"plain path", "/tmp/c.db", false, "file:/tmp/c.db?_pragma=busy_timeout(30000)"},
		{"read only", "/tmp/c.db", true, "file:/tmp/c.db?mode=ro&_pragma=busy_timeout(30000)"},
		{"memory", ":memory:", false, "file::memory:?_pragma=busy_timeout(30000)"},
		{"uri keeps params", "file:/tmp/c.db?cache=shared", false, "file:/tmp/c.db?cache=shared&_pragma=busy_timeout(30000)"},
		{"uri with timeout", "file:/tmp/c.db?_pragma=busy_timeout(5)", false, "file:/tmp/c.db?_pragma=busy_timeout(5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLiteConnString(tt.path, tt.readOnly))
		})
	}
}

func TestLockTimeout(t *testing.T) {
	t.Setenv(LockTimeoutEnv, "2s")
	assert.Equal(t, 2*time.Second, LockTimeout())
	assert.Equal(t, "file:x.db?_pragma=busy_timeout(2000)", SQLiteConnString("x.db", false))

	t.Setenv(LockTimeoutEnv, "soon")
	assert.Equal(t, DefaultLockTimeout, LockTimeout())
}
