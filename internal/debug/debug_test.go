package debug

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects *target (os.Stdout or os.Stderr) while fn runs.
func capture(t *testing.T, target **os.File, fn func()) string {
	t.Helper()
	old := *target
	r, w, err := os.Pipe()
	require.NoError(t, err)
	*target = w
	defer func() { *target = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestLogfGating(t *testing.T) {
	oldEnabled, oldVerbose := enabled, verboseMode
	defer func() { enabled, verboseMode = oldEnabled, oldVerbose }()

	tests := []struct {
		name    string
		enabled bool
		verbose bool
		want    string
	}{
		{"silent by default", false, false, ""},
		{"env enables", true, false, "rollup: ch-1\n"},
		{"verbose enables", false, true, "rollup: ch-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled, verboseMode = tt.enabled, tt.verbose
			assert.Equal(t, tt.enabled || tt.verbose, Enabled())
			got := capture(t, &os.Stderr, func() { Logf("rollup: %s\n", "ch-1") })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuietSuppressesNormalOutput(t *testing.T) {
	oldQuiet := quietMode
	defer func() { quietMode = oldQuiet }()

	SetQuiet(false)
	assert.False(t, IsQuiet())
	assert.Equal(t, "created ch-1\n", capture(t, &os.Stdout, func() { PrintNormal("created %s\n", "ch-1") }))
	assert.Equal(t, "a b\n", capture(t, &os.Stdout, func() { PrintlnNormal("a", "b") }))

	SetQuiet(true)
	assert.True(t, IsQuiet())
	assert.Empty(t, capture(t, &os.Stdout, func() { PrintNormal("created %s\n", "ch-1") }))
	assert.Empty(t, capture(t, &os.Stdout, func() { PrintlnNormal("a", "b") }))
}

func TestLogEventAppendsEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".chisel")
	SetEventLog(dir, "alice")
	defer SetEventLog("", "")

	LogEvent(EventTaskCreated, "ch-1", "title=Fix bug")
	LogEvent(EventHookFailed, "", "go test\nexit 1")

	data, err := os.ReadFile(filepath.Join(dir, "events.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], "|")
	require.Len(t, fields, 5)
	assert.Equal(t, EventTaskCreated, fields[1])
	assert.Equal(t, "ch-1", fields[2])
	assert.Equal(t, "alice", fields[3])
	assert.Equal(t, "title=Fix bug", fields[4])

	second := strings.Split(lines[1], "|")
	assert.Equal(t, "none", second[2])
	assert.Equal(t, "go test exit 1", second[4])
}

func TestLogEventDisabledWithoutDir(t *testing.T) {
	SetEventLog("", "")
	cwd := t.TempDir()
	t.Chdir(cwd)

	LogEvent(EventTaskClosed, "ch-1", "")

	entries, err := os.ReadDir(cwd)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
