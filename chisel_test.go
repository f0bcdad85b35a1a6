package chisel_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yidong72/chisel"
)

func TestOpenAndReady(t *testing.T) {
	ctx := context.Background()
	store, err := chisel.Open(ctx, filepath.Join(t.TempDir(), "chisel.db"))
	require.NoError(t, err)
	defer store.Close()

	first := &chisel.Task{ID: "ch-1", Title: "first", Status: chisel.StatusOpen, TaskType: chisel.TypeTask, Priority: 1}
	second := &chisel.Task{ID: "ch-2", Title: "second", Status: chisel.StatusOpen, TaskType: chisel.TypeTask, Priority: 0}
	require.NoError(t, store.CreateTask(ctx, first))
	require.NoError(t, store.CreateTask(ctx, second))
	require.NoError(t, store.AddDependency(ctx, &chisel.Dependency{TaskID: "ch-2", DependsOnID: "ch-1", Type: "blocks"}))

	ready, err := chisel.Ready(ctx, store, chisel.WorkFilter{})
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "ch-1", ready[0].ID)
}

func TestFindDatabasePathOutsideProject(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHISEL_DIR", "")
	assert.Empty(t, chisel.FindDatabasePath())
}
