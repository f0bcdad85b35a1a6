// Package teststore provides SQLite-backed test helpers for storage consumers.
//
// Each test gets an isolated database file under t.TempDir(). All helper
// methods operate through the storage.Storage interface, so tests of the
// resolver, rollup, decomposition and workflow packages stay backend-agnostic.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    env := teststore.NewEnv(t)
//	    task := env.CreateTask("fix the widget")
//	    env.AddDep(task, env.CreateTask("prerequisite"))
//	}
package teststore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/storage/sqlite"
	"github.com/yidong72/chisel/internal/types"
)

// New creates an isolated SQLite-backed storage.Storage for a single test.
// The store is initialized with id_prefix "test" and closed automatically
// when the test completes.
func New(t testing.TB) storage.Storage {
	t.Helper()

	ctx := context.Background()
	store, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "chisel.db"))
	if err != nil {
		t.Fatalf("teststore: failed to create SQLite store: %v", err)
	}
	if err := store.SetConfig(ctx, "id_prefix", "test"); err != nil {
		_ = store.Close()
		t.Fatalf("teststore: failed to set id_prefix: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// Env provides a test environment with common setup and helpers.
type Env struct {
	t     *testing.T
	Store storage.Storage
	Ctx   context.Context
	seq   int
}

// NewEnv creates a new test environment backed by an isolated store.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	return &Env{
		t:     t,
		Store: New(t),
		Ctx:   context.Background(),
	}
}

// NextID returns a fresh sequential task id ("test-1", "test-2", ...).
func (e *Env) NextID() string {
	e.seq++
	return fmt.Sprintf("test-%d", e.seq)
}

// ---------------------------------------------------------------------------
// Task creation helpers
// ---------------------------------------------------------------------------

// CreateTask creates a test task with the given title and sensible defaults
// (status open, priority 2, type task).
func (e *Env) CreateTask(title string) *types.Task {
	e.t.Helper()
	return e.CreateTaskWith(title, types.StatusOpen, 2, types.TypeTask)
}

// CreateTaskWith creates a test task with the specified attributes.
func (e *Env) CreateTaskWith(title string, status types.Status, priority int, taskType types.TaskType) *types.Task {
	e.t.Helper()
	return e.Insert(&types.Task{
		Title:    title,
		Status:   status,
		Priority: priority,
		TaskType: taskType,
	})
}

// CreateChild creates a task under parent with the given status and an
// optional story-point estimate (0 leaves it unset).
func (e *Env) CreateChild(parent *types.Task, title string, status types.Status, points int) *types.Task {
	e.t.Helper()
	task := &types.Task{
		Title:    title,
		Status:   status,
		Priority: 2,
		TaskType: types.TypeTask,
		ParentID: parent.ID,
	}
	if points > 0 {
		task.StoryPoints = &points
	}
	return e.Insert(task)
}

// CreateEpic creates an epic task with priority 1.
func (e *Env) CreateEpic(title string) *types.Task {
	e.t.Helper()
	return e.CreateTaskWith(title, types.StatusOpen, 1, types.TypeEpic)
}

// Insert stores task, assigning an id when it has none.
func (e *Env) Insert(task *types.Task) *types.Task {
	e.t.Helper()
	if task.ID == "" {
		task.ID = e.NextID()
	}
	if err := e.Store.CreateTask(e.Ctx, task); err != nil {
		e.t.Fatalf("CreateTask(%q) failed: %v", task.Title, err)
	}
	return task
}

// ---------------------------------------------------------------------------
// Dependency helpers
// ---------------------------------------------------------------------------

// AddDep adds a blocking dependency (task depends on dependsOn).
func (e *Env) AddDep(task, dependsOn *types.Task) {
	e.t.Helper()
	e.AddDepType(task, dependsOn, types.DepBlocks)
}

// AddDepType adds a dependency with the specified type.
func (e *Env) AddDepType(task, dependsOn *types.Task, depType types.DependencyType) {
	e.t.Helper()
	dep := &types.Dependency{
		TaskID:      task.ID,
		DependsOnID: dependsOn.ID,
		Type:        depType,
	}
	if err := e.Store.AddDependency(e.Ctx, dep); err != nil {
		e.t.Fatalf("AddDependency(%s -> %s) failed: %v", task.ID, dependsOn.ID, err)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle helpers
// ---------------------------------------------------------------------------

// SetStatus updates only the status of task and refreshes the passed value.
func (e *Env) SetStatus(task *types.Task, status types.Status) {
	e.t.Helper()
	updated, err := e.Store.UpdateTask(e.Ctx, task.ID, types.TaskPatch{Status: &status})
	if err != nil {
		e.t.Fatalf("UpdateTask(%s, status=%s) failed: %v", task.ID, status, err)
	}
	*task = *updated
}

// Get re-reads a task from the store.
func (e *Env) Get(id string) *types.Task {
	e.t.Helper()
	task, err := e.Store.GetTask(e.Ctx, id)
	if err != nil {
		e.t.Fatalf("GetTask(%s) failed: %v", id, err)
	}
	return task
}

// StatusOf returns the stored status of the task with the given id.
func (e *Env) StatusOf(id string) types.Status {
	e.t.Helper()
	return e.Get(id).Status
}
