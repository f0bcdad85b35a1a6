package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the process at an empty temp tree so no real project or
// user config leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CHISEL_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	return dir
}

func TestInitializeDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("USER", "alice")
	require.NoError(t, Initialize())

	assert.Equal(t, "sqlite", GetString("storage.backend"))
	assert.Equal(t, "127.0.0.1", GetString("storage.dolt.host"))
	assert.Equal(t, 3307, GetInt("storage.dolt.port"))
	assert.Equal(t, "chisel", GetString("storage.dolt.database"))
	assert.False(t, GetBool("storage.dolt.embedded"))
	assert.Equal(t, 300*time.Second, GetDuration("hooks.timeout"))
	assert.Equal(t, 1, GetInt("hooks.parallelism"))
	assert.False(t, GetBool("ai.enabled"))
	assert.Equal(t, "claude-haiku-4-5", GetString("ai.model"))
	assert.Equal(t, 500*time.Millisecond, GetDuration("list.watch-debounce"))
	assert.False(t, GetBool("telemetry.enabled"))
	assert.False(t, GetBool("telemetry.stdout"))
	assert.Empty(t, GetString("telemetry.endpoint"))
	assert.Equal(t, "alice", GetString("actor"))
	assert.Empty(t, ConfigFileUsed())
}

func TestInitializeReadsProjectConfigFromSubdir(t *testing.T) {
	root := isolate(t)
	chiselDir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(chiselDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chiselDir, FileName),
		[]byte("storage:\n  backend: dolt\nhooks:\n  timeout: 45s\n"), 0o600))

	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	require.NoError(t, Initialize())
	assert.Equal(t, "dolt", GetString("storage.backend"))
	assert.Equal(t, 45*time.Second, GetDuration("hooks.timeout"))
	assert.Equal(t, filepath.Join(chiselDir, FileName), resolved(t, ConfigFileUsed()))
}

func TestEnvOverridesFile(t *testing.T) {
	root := isolate(t)
	chiselDir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(chiselDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chiselDir, FileName),
		[]byte("hooks:\n  parallelism: 2\n"), 0o600))
	t.Setenv("CHISEL_HOOKS_PARALLELISM", "8")
	t.Setenv("CHISEL_LIST_WATCH_DEBOUNCE", "2s")

	require.NoError(t, Initialize())
	assert.Equal(t, 8, GetInt("hooks.parallelism"))
	assert.Equal(t, 2*time.Second, GetDuration("list.watch-debounce"))
}

func TestTelemetryKeys(t *testing.T) {
	root := isolate(t)
	chiselDir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(chiselDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chiselDir, FileName),
		[]byte("telemetry:\n  stdout: true\n  endpoint: collector:4318\n"), 0o600))
	t.Setenv("CHISEL_TELEMETRY_ENABLED", "true")
	t.Setenv("CHISEL_TELEMETRY_ENDPOINT", "localhost:4318")

	require.NoError(t, Initialize())
	assert.True(t, GetBool("telemetry.enabled"))
	assert.True(t, GetBool("telemetry.stdout"))
	assert.Equal(t, "localhost:4318", GetString("telemetry.endpoint"))
}

func TestChiselDirEnv(t *testing.T) {
	root := isolate(t)
	custom := filepath.Join(root, "elsewhere")
	require.NoError(t, os.MkdirAll(custom, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(custom, FileName), []byte("json: true\n"), 0o600))
	t.Setenv("CHISEL_DIR", custom)

	require.NoError(t, Initialize())
	assert.True(t, GetBool("json"))
}

func TestMalformedConfig(t *testing.T) {
	root := isolate(t)
	chiselDir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(chiselDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chiselDir, FileName), []byte("storage: [unclosed\n"), 0o600))

	err := Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestSetAndAllSettings(t *testing.T) {
	isolate(t)
	require.NoError(t, Initialize())
	Set("json", true)
	assert.True(t, GetBool("json"))
	assert.True(t, IsSet("json"))

	all := AllSettings()
	assert.Equal(t, "sqlite", all["storage.backend"])
	assert.Equal(t, true, all["json"])
}

func TestGettersBeforeInitialize(t *testing.T) {
	saved := v
	v = nil
	t.Cleanup(func() { v = saved })

	assert.Empty(t, GetString("storage.backend"))
	assert.False(t, GetBool("json"))
	assert.Zero(t, GetInt("hooks.parallelism"))
	assert.Zero(t, GetDuration("hooks.timeout"))
	assert.Empty(t, AllSettings())
	assert.Empty(t, ConfigFileUsed())
}

// resolved evaluates symlinks so macOS /private/var temp paths compare equal.
func resolved(t *testing.T, path string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(filepath.Dir(filepath.Dir(path)))
	require.NoError(t, err)
	return filepath.Join(dir, filepath.Base(filepath.Dir(path)), filepath.Base(path))
}
