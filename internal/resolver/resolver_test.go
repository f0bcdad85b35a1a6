package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yidong72/chisel/internal/testutil/teststore"
	"github.com/yidong72/chisel/internal/types"
)

func ids(tasks []*types.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func blockedIDs(tasks []*types.BlockedTask) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	task := func(id string, status types.Status) *types.Task {
		return &types.Task{ID: id, Title: "task " + id, Status: status}
	}
	edge := func(from, to string, typ types.DependencyType) *types.Dependency {
		return &types.Dependency{TaskID: from, DependsOnID: to, Type: typ}
	}

	tests := []struct {
		name        string
		tasks       []*types.Task
		edges       []*types.Dependency
		wantReady   []string
		wantBlocked []string
	}{
		{
			name:      "no edges all open are ready",
			tasks:     []*types.Task{task("a", types.StatusOpen), task("b", types.StatusOpen)},
			wantReady: []string{"a", "b"},
		},
		{
			name:      "only open status is ready",
			tasks:     []*types.Task{task("a", types.StatusInProgress), task("b", types.StatusReview), task("c", types.StatusDone), task("d", types.StatusBlocked)},
			wantReady: nil,
		},
		{
			name:        "open blocker blocks",
			tasks:       []*types.Task{task("a", types.StatusOpen), task("b", types.StatusOpen)},
			edges:       []*types.Dependency{edge("a", "b", types.DepBlocks)},
			wantReady:   []string{"b"},
			wantBlocked: []string{"a"},
		},
		{
			name:      "done blocker does not block",
			tasks:     []*types.Task{task("a", types.StatusOpen), task("b", types.StatusDone)},
			edges:     []*types.Dependency{edge("a", "b", types.DepBlocks)},
			wantReady: []string{"a"},
		},
		{
			name:      "cancelled blocker does not block",
			tasks:     []*types.Task{task("a", types.StatusOpen), task("b", types.StatusCancelled)},
			edges:     []*types.Dependency{edge("a", "b", types.DepBlocks)},
			wantReady: []string{"a"},
		},
		{
			name:      "non-blocking edge types are ignored",
			tasks:     []*types.Task{task("a", types.StatusOpen), task("b", types.StatusOpen)},
			edges:     []*types.Dependency{edge("a", "b", types.DepRelated), edge("a", "b", types.DepParent), edge("a", "b", types.DepDiscovered)},
			wantReady: []string{"a", "b"},
		},
		{
			name:        "finished dependent is never blocked",
			tasks:       []*types.Task{task("a", types.StatusDone), task("b", types.StatusOpen)},
			edges:       []*types.Dependency{edge("a", "b", types.DepBlocks)},
			wantReady:   []string{"b"},
			wantBlocked: nil,
		},
		{
			name:        "in progress dependent is blocked but not ready",
			tasks:       []*types.Task{task("a", types.StatusInProgress), task("b", types.StatusOpen)},
			edges:       []*types.Dependency{edge("a", "b", types.DepBlocks)},
			wantReady:   []string{"b"},
			wantBlocked: []string{"a"},
		},
		{
			name:        "cycle starves both members",
			tasks:       []*types.Task{task("a", types.StatusOpen), task("b", types.StatusOpen)},
			edges:       []*types.Dependency{edge("a", "b", types.DepBlocks), edge("b", "a", types.DepBlocks)},
			wantReady:   nil,
			wantBlocked: []string{"a", "b"},
		},
		{
			name:      "dangling prerequisite is ignored",
			tasks:     []*types.Task{task("a", types.StatusOpen)},
			edges:     []*types.Dependency{edge("a", "gone", types.DepBlocks)},
			wantReady: []string{"a"},
		},
		{
			name: "defer until hides task until it elapses",
			tasks: []*types.Task{
				{ID: "a", Status: types.StatusOpen, DeferUntil: &future},
				{ID: "b", Status: types.StatusOpen, DeferUntil: &past},
			},
			wantReady: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready, blocked := Compute(tt.tasks, tt.edges, now)
			if tt.wantReady == nil {
				assert.Empty(t, ready)
			} else {
				assert.Equal(t, tt.wantReady, ids(ready))
			}
			if tt.wantBlocked == nil {
				assert.Empty(t, blocked)
			} else {
				assert.Equal(t, tt.wantBlocked, blockedIDs(blocked))
			}
		})
	}
}

func TestComputeAnnotatesBlockers(t *testing.T) {
	tasks := []*types.Task{
		{ID: "a", Title: "dependent", Status: types.StatusOpen},
		{ID: "b", Title: "first", Status: types.StatusInProgress},
		{ID: "c", Title: "second", Status: types.StatusReview},
		{ID: "d", Title: "finished", Status: types.StatusDone},
	}
	edges := []*types.Dependency{
		{TaskID: "a", DependsOnID: "b", Type: types.DepBlocks},
		{TaskID: "a", DependsOnID: "c", Type: types.DepBlocks},
		{TaskID: "a", DependsOnID: "d", Type: types.DepBlocks},
	}
	_, blocked := Compute(tasks, edges, time.Now())
	require.Len(t, blocked, 1)
	assert.Equal(t, []types.Blocker{
		{ID: "b", Title: "first", Status: types.StatusInProgress},
		{ID: "c", Title: "second", Status: types.StatusReview},
	}, blocked[0].BlockedBy)
}

func TestReadyAndBlockedAgainstStore(t *testing.T) {
	env := teststore.NewEnv(t)
	r := New(env.Store)

	low := env.CreateTaskWith("low priority", types.StatusOpen, 3, types.TypeTask)
	high := env.CreateTaskWith("high priority", types.StatusOpen, 0, types.TypeTask)
	blocker := env.CreateTask("blocker")
	dependent := env.CreateTask("dependent")
	env.AddDep(dependent, blocker)

	ready, err := r.Ready(env.Ctx, types.WorkFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{high.ID, blocker.ID, low.ID}, ids(ready))

	blocked, err := r.Blocked(env.Ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, dependent.ID, blocked[0].ID)
	assert.Equal(t, blocker.ID, blocked[0].BlockedBy[0].ID)

	// Finishing the sole blocker frees the dependent on the next query.
	env.SetStatus(blocker, types.StatusDone)
	ready, err = r.Ready(env.Ctx, types.WorkFilter{})
	require.NoError(t, err)
	assert.Contains(t, ids(ready), dependent.ID)
	blocked, err = r.Blocked(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, blocked)
}

func TestReadyLimit(t *testing.T) {
	env := teststore.NewEnv(t)
	for i := 0; i < 5; i++ {
		env.CreateTask("task")
	}
	ready, err := New(env.Store).Ready(env.Ctx, types.WorkFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, ready, 2)
}

func TestReadyHonorsDeferUntil(t *testing.T) {
	env := teststore.NewEnv(t)
	later := time.Now().Add(48 * time.Hour).UTC()
	deferred := env.Insert(&types.Task{Title: "later", DeferUntil: &later})
	r := New(env.Store)

	ready, err := r.Ready(env.Ctx, types.WorkFilter{})
	require.NoError(t, err)
	assert.NotContains(t, ids(ready), deferred.ID)

	ready, err = r.Ready(env.Ctx, types.WorkFilter{Now: later.Add(time.Minute)})
	require.NoError(t, err)
	assert.Contains(t, ids(ready), deferred.ID)
}

type failingStore struct{}

func (failingStore) ListTasks(context.Context, types.TaskFilter) ([]*types.Task, error) {
	return nil, errors.New("boom")
}

func (failingStore) ListDependencies(context.Context, types.DependencyFilter) ([]*types.Dependency, error) {
	return nil, nil
}

func TestReadyPropagatesStoreErrors(t *testing.T) {
	_, err := New(failingStore{}).Ready(context.Background(), types.WorkFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
