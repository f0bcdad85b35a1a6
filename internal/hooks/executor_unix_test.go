//go:build unix

package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellExecutorCapturesOutput(t *testing.T) {
	res := NewShellExecutor().Execute(context.Background(), Command{
		Line: `echo "out $CHISEL_TASK_ID"; echo err 1>&2; exit 3`,
		Env:  []string{TaskIDEnv + "=ch-42"},
	})
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
	assert.Equal(t, "out ch-42\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestShellExecutorSuccess(t *testing.T) {
	res := NewShellExecutor().Execute(context.Background(), Command{Line: "true"})
	assert.True(t, res.Success())
	assert.Equal(t, 0, res.ExitCode)
}

func TestShellExecutorWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("x"), 0o600))

	res := NewShellExecutor().Execute(context.Background(), Command{Line: "test -f marker", Dir: dir})
	assert.True(t, res.Success(), "stderr: %s", res.Stderr)
}

func TestShellExecutorCommandNotFound(t *testing.T) {
	res := NewShellExecutor().Execute(context.Background(), Command{Line: "chisel-definitely-not-a-command"})
	assert.False(t, res.Success())
	assert.Equal(t, 127, res.ExitCode)
}

func TestShellExecutorSpawnFailure(t *testing.T) {
	res := NewShellExecutor().Execute(context.Background(), Command{
		Line: "true",
		Dir:  filepath.Join(t.TempDir(), "missing"),
	})
	assert.False(t, res.Success())
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Stderr, "failed to start command")
}

func TestShellExecutorTimeoutKillsDescendants(t *testing.T) {
	start := time.Now()
	res := NewShellExecutor().Execute(context.Background(), Command{
		Line:    "sleep 30 & sleep 30; wait",
		Timeout: time.Second,
	})
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.True(t, strings.HasSuffix(res.Stderr, "Command timed out after 1s"), res.Stderr)
}

func TestShellExecutorSubSecondTimeout(t *testing.T) {
	res := NewShellExecutor().Execute(context.Background(), Command{
		Line:    "sleep 30",
		Timeout: 200 * time.Millisecond,
	})
	assert.True(t, res.TimedOut)
	assert.Contains(t, res.Stderr, "Command timed out after 200ms")
}

func TestShellExecutorCallerCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res := NewShellExecutor().Execute(ctx, Command{Line: "sleep 30", Timeout: time.Minute})
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.False(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.NotContains(t, res.Stderr, "timed out")
	assert.Contains(t, res.Stderr, "Command cancelled")
}
