// Package storage provides the task store contract shared by every backend.
//
// Concrete implementations live in the sqlite and dolt sub-packages; both are
// built on sqlstore. Consumers depend on the Storage interface so that
// alternative implementations (telemetry decorators, fakes) can be substituted.
package storage

import (
	"context"
	"errors"

	"github.com/yidong72/chisel/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness constraint
// (duplicate task id, duplicate dependency edge).
var ErrConflict = errors.New("conflict")

// ErrInvalidInput is returned when a record fails validation before any write.
var ErrInvalidInput = errors.New("invalid input")

// Storage is the task store. Every call is independently atomic; the store
// performs no caching, so each query reflects the current committed state.
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task *types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error)
	// DeleteTask removes the task together with every dependency edge that
	// references it in either direction.
	DeleteTask(ctx context.Context, id string) error

	// Dependencies
	AddDependency(ctx context.Context, dep *types.Dependency) error
	// RemoveDependency deletes the edge; an empty depType matches any type.
	RemoveDependency(ctx context.Context, taskID, dependsOnID string, depType types.DependencyType) error
	ListDependencies(ctx context.Context, filter types.DependencyFilter) ([]*types.Dependency, error)

	// Hooks
	CreateHook(ctx context.Context, hook *types.Hook) error
	// ListHooks returns hooks in creation order. An empty event matches all events.
	ListHooks(ctx context.Context, event string, includeDisabled bool) ([]*types.Hook, error)
	SetHookEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteHook(ctx context.Context, id int64) error

	// Configuration
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, error)
	GetAllConfig(ctx context.Context) (map[string]string, error)

	// Lifecycle
	Close() error
}
