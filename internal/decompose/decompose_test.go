package decompose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/testutil/teststore"
	"github.com/yidong72/chisel/internal/types"
)

// envIDs hands out ids from the test environment's sequence.
type envIDs struct{ env *teststore.Env }

func (e envIDs) Next(context.Context, string, string) (string, error) {
	return e.env.NextID(), nil
}

func children(t *testing.T, env *teststore.Env, parentID string) []*types.Task {
	t.Helper()
	tasks, err := env.Store.ListTasks(env.Ctx, types.TaskFilter{ParentID: &parentID})
	require.NoError(t, err)
	return tasks
}

func TestDecomposeWithPoints(t *testing.T) {
	env := teststore.NewEnv(t)
	parent := env.CreateTaskWith("Build login", types.StatusOpen, 1, types.TypeTask)

	res, err := New(env.Store, envIDs{env}).Decompose(env.Ctx, parent.ID,
		[]string{"Design form", "Wire API", "Write tests"}, []int{2, 5, 3})
	require.NoError(t, err)

	assert.Equal(t, types.TypeEpic, res.Parent.TaskType)
	assert.Equal(t, types.TypeEpic, env.Get(parent.ID).TaskType)
	require.Len(t, res.Subtasks, 3)
	for i, want := range []int{2, 5, 3} {
		sub := env.Get(res.Subtasks[i].ID)
		assert.Equal(t, parent.ID, sub.ParentID)
		assert.Equal(t, 1, sub.Priority, "children inherit the parent's priority")
		assert.Equal(t, types.StatusOpen, sub.Status)
		assert.Equal(t, types.TypeTask, sub.TaskType)
		require.NotNil(t, sub.StoryPoints)
		assert.Equal(t, want, *sub.StoryPoints)
	}
}

func TestDecomposeWithoutPoints(t *testing.T) {
	env := teststore.NewEnv(t)
	parent := env.CreateEpic("already an epic")

	res, err := New(env.Store, envIDs{env}).Decompose(env.Ctx, parent.ID, []string{"a", "b"}, nil)
	require.NoError(t, err)
	require.Len(t, res.Subtasks, 2)
	assert.Nil(t, env.Get(res.Subtasks[0].ID).StoryPoints)
	assert.Equal(t, types.TypeEpic, res.Parent.TaskType)
}

func TestDecomposeRejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name   string
		titles []string
		points []int
	}{
		{"points length mismatch", []string{"a", "b"}, []int{1}},
		{"no titles", nil, nil},
		{"blank title", []string{"a", "  "}, nil},
		{"non-positive points", []string{"a"}, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := teststore.NewEnv(t)
			parent := env.CreateTask("parent")

			_, err := New(env.Store, envIDs{env}).Decompose(env.Ctx, parent.ID, tt.titles, tt.points)
			require.Error(t, err)
			assert.True(t, errors.Is(err, storage.ErrInvalidInput), "got %v", err)
			assert.Empty(t, children(t, env, parent.ID))
			assert.Equal(t, types.TypeTask, env.Get(parent.ID).TaskType)
		})
	}
}

func TestDecomposeMissingParent(t *testing.T) {
	env := teststore.NewEnv(t)
	_, err := New(env.Store, envIDs{env}).Decompose(env.Ctx, "test-404", []string{"a"}, nil)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestTree(t *testing.T) {
	env := teststore.NewEnv(t)
	root := env.CreateEpic("root")
	mid := env.CreateChild(root, "mid", types.StatusOpen, 0)
	env.CreateChild(mid, "leaf", types.StatusDone, 0)
	env.CreateChild(root, "sibling", types.StatusOpen, 0)

	tree, err := New(env.Store, envIDs{env}).Tree(env.Ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, tree.Task.ID)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "mid", tree.Children[0].Task.Title)
	require.Len(t, tree.Children[0].Children, 1)
	assert.Equal(t, "leaf", tree.Children[0].Children[0].Task.Title)
	assert.Empty(t, tree.Children[1].Children)
}

func TestTreeMissing(t *testing.T) {
	env := teststore.NewEnv(t)
	_, err := New(env.Store, envIDs{env}).Tree(env.Ctx, "test-404")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
