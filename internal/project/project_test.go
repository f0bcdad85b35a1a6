package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/testutil/teststore"
)

func TestInitCreatesLayout(t *testing.T) {
	root := t.TempDir()
	p, err := Init(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(p.Root, config.DirName), p.Dir)
	assert.FileExists(t, p.ConfigPath())
	assert.FileExists(t, filepath.Join(p.Dir, ".gitignore"))
	assert.Equal(t, filepath.Join(p.Dir, "chisel.db"), p.DBPath())
	assert.Equal(t, filepath.Join(p.Dir, "dolt"), p.DoltPath())
}

func TestInitKeepsExistingConfig(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, config.DirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("json: true\n"), 0o600))

	_, err := Init(root)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "json: true\n", string(data))
}

func TestDiscoverFromWalksUp(t *testing.T) {
	root := t.TempDir()
	_, err := Init(root)
	require.NoError(t, err)
	nested := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	p, err := DiscoverFrom(nested)
	require.NoError(t, err)
	want, _ := filepath.Abs(root)
	assert.Equal(t, want, p.Root)
}

func TestDiscoverFromNotInitialized(t *testing.T) {
	_, err := DiscoverFrom(t.TempDir())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestDiscoverHonorsChiselDir(t *testing.T) {
	root := t.TempDir()
	p, err := Init(root)
	require.NoError(t, err)

	t.Chdir(t.TempDir())
	t.Setenv("CHISEL_DIR", p.Dir)
	got, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, p.Dir, got.Dir)
	assert.Equal(t, p.Root, got.Root)

	t.Setenv("CHISEL_DIR", filepath.Join(root, "missing"))
	_, err = Discover()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSeedDefaults(t *testing.T) {
	ctx := context.Background()
	store := teststore.New(t)
	require.NoError(t, store.SetConfig(ctx, KeyIDPrefix, ""))
	p := &Project{Root: "/work/myproj", Dir: "/work/myproj/.chisel"}

	require.NoError(t, Seed(ctx, store, p, "", ""))

	name, _ := store.GetConfig(ctx, KeyProjectName)
	prefix, _ := store.GetConfig(ctx, KeyIDPrefix)
	prio, _ := store.GetConfig(ctx, KeyDefaultPriority)
	assert.Equal(t, "myproj", name)
	assert.Equal(t, "ch", prefix)
	assert.Equal(t, "2", prio)
}

func TestSeedExplicitAndRepeat(t *testing.T) {
	ctx := context.Background()
	store := teststore.New(t)
	p := &Project{Root: "/work/x", Dir: "/work/x/.chisel"}

	require.NoError(t, Seed(ctx, store, p, "Widgets", "wd"))
	require.NoError(t, store.SetConfig(ctx, KeyDefaultPriority, "1"))
	// A second init keeps settings it is not asked to change.
	require.NoError(t, Seed(ctx, store, p, "", ""))

	name, _ := store.GetConfig(ctx, KeyProjectName)
	assert.Equal(t, "Widgets", name)
	assert.Equal(t, "wd", IDPrefixFrom(ctx, store))
	assert.Equal(t, 1, DefaultPriorityFrom(ctx, store))
}

func TestSeedRejectsBadPrefix(t *testing.T) {
	store := teststore.New(t)
	err := Seed(context.Background(), store, &Project{Root: "/x"}, "x", "Bad-Prefix")
	require.Error(t, err)
}

func TestDefaultPriorityFromFallbacks(t *testing.T) {
	ctx := context.Background()
	store := teststore.New(t)
	assert.Equal(t, DefaultPriority, DefaultPriorityFrom(ctx, store))

	for _, raw := range []string{"nine", "7", "-1"} {
		require.NoError(t, store.SetConfig(ctx, KeyDefaultPriority, raw))
		assert.Equal(t, DefaultPriority, DefaultPriorityFrom(ctx, store), raw)
	}
	require.NoError(t, store.SetConfig(ctx, KeyDefaultPriority, "0"))
	assert.Equal(t, 0, DefaultPriorityFrom(ctx, store))
}
