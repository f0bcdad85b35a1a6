// Package chisel provides a minimal public API for programs that want to
// read or drive a chisel project without going through the CLI.
//
// It exports the core task types, a way to open a project's SQLite store,
// and the ready-work query.
package chisel

import (
	"context"

	"github.com/yidong72/chisel/internal/project"
	"github.com/yidong72/chisel/internal/resolver"
	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/storage/sqlite"
	"github.com/yidong72/chisel/internal/types"
)

// Core types for working with tasks
type (
	Task           = types.Task
	Status         = types.Status
	TaskType       = types.TaskType
	Dependency     = types.Dependency
	DependencyType = types.DependencyType
	TaskFilter     = types.TaskFilter
	WorkFilter     = types.WorkFilter
	BlockedTask    = types.BlockedTask
)

// Status constants
const (
	StatusOpen       = types.StatusOpen
	StatusInProgress = types.StatusInProgress
	StatusBlocked    = types.StatusBlocked
	StatusReview     = types.StatusReview
	StatusDone       = types.StatusDone
	StatusCancelled  = types.StatusCancelled
)

// TaskType constants
const (
	TypeTask  = types.TypeTask
	TypeEpic  = types.TypeEpic
	TypeBug   = types.TypeBug
	TypeSpike = types.TypeSpike
	TypeChore = types.TypeChore
)

// Storage is the task store interface.
type Storage = storage.Storage

// Open opens (creating if needed) a chisel SQLite database at dbPath.
func Open(ctx context.Context, dbPath string) (Storage, error) {
	return sqlite.New(ctx, dbPath)
}

// FindDatabasePath returns the SQLite database of the project enclosing the
// working directory, or "" when there is none.
func FindDatabasePath() string {
	p, err := project.Discover()
	if err != nil {
		return ""
	}
	return p.DBPath()
}

// Ready returns open, undeferred tasks with no unfinished blocking
// prerequisite, highest priority first.
func Ready(ctx context.Context, s Storage, filter WorkFilter) ([]*Task, error) {
	return resolver.New(s).Ready(ctx, filter)
}
