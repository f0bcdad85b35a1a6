// Package resolver computes ready and blocked work from the dependency graph.
//
// Nothing is cached: every call re-reads tasks and blocks edges from the
// store. Cycles are not detected; every member of a blocks cycle stays
// blocked until an edge is removed.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/yidong72/chisel/internal/types"
)

// Store is the subset of storage.Storage the resolver reads from.
type Store interface {
	ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error)
	ListDependencies(ctx context.Context, filter types.DependencyFilter) ([]*types.Dependency, error)
}

// Resolver answers "what can be worked on now" queries.
type Resolver struct {
	store Store
	now   func() time.Time
}

// New creates a Resolver reading from store.
func New(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Ready returns open, undeferred tasks with no unfinished blocks prerequisite,
// in store order (priority, then age), truncated to filter.Limit when > 0.
func (r *Resolver) Ready(ctx context.Context, filter types.WorkFilter) ([]*types.Task, error) {
	tasks, edges, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	now := filter.Now
	if now.IsZero() {
		now = r.now()
	}
	ready, _ := Compute(tasks, edges, now)
	if filter.Limit > 0 && len(ready) > filter.Limit {
		ready = ready[:filter.Limit]
	}
	return ready, nil
}

// Blocked returns unfinished tasks with at least one unfinished blocks
// prerequisite, each annotated with its blockers.
func (r *Resolver) Blocked(ctx context.Context) ([]*types.BlockedTask, error) {
	tasks, edges, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	_, blocked := Compute(tasks, edges, r.now())
	return blocked, nil
}

func (r *Resolver) load(ctx context.Context) ([]*types.Task, []*types.Dependency, error) {
	tasks, err := r.store.ListTasks(ctx, types.TaskFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	edges, err := r.store.ListDependencies(ctx, types.DependencyFilter{Type: types.DepBlocks})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	return tasks, edges, nil
}

// Compute partitions tasks into ready and blocked sets. Input order is
// preserved in both outputs. Edges whose type does not affect readiness, or
// whose prerequisite is unknown, are ignored.
func Compute(tasks []*types.Task, edges []*types.Dependency, now time.Time) ([]*types.Task, []*types.BlockedTask) {
	byID := make(map[string]*types.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	blockers := make(map[string][]types.Blocker)
	for _, e := range edges {
		if !e.Type.AffectsReadiness() {
			continue
		}
		prereq, ok := byID[e.DependsOnID]
		if !ok || prereq.Status.IsFinished() {
			continue
		}
		blockers[e.TaskID] = append(blockers[e.TaskID], types.Blocker{
			ID:     prereq.ID,
			Title:  prereq.Title,
			Status: prereq.Status,
		})
	}

	var ready []*types.Task
	var blocked []*types.BlockedTask
	for _, t := range tasks {
		if bs := blockers[t.ID]; len(bs) > 0 {
			if !t.Status.IsFinished() {
				blocked = append(blocked, &types.BlockedTask{Task: *t, BlockedBy: bs})
			}
			continue
		}
		if t.Status == types.StatusOpen && !t.IsDeferred(now) {
			ready = append(ready, t)
		}
	}
	return ready, blocked
}
