// Package rollup propagates child status up the parent chain and aggregates
// progress over a parent's direct children.
package rollup

import (
	"context"
	"fmt"
	"math"

	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/types"
)

// Store is the subset of storage.Storage the rollup engine needs.
type Store interface {
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error)
}

// Engine recomputes ancestor status after a child changes.
type Engine struct {
	store Store
}

// New creates an Engine over store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// Rollup re-evaluates the parent of changedID and then every ancestor above
// it. The walk continues to the root even when a level is left unchanged;
// it stops only at a task without a parent (or on a parent cycle).
//
// Rules for a parent P with direct children C:
//   - every child done or cancelled: P becomes done
//   - otherwise, any child in_progress while P is open: P becomes in_progress
//   - otherwise P is left alone
func (e *Engine) Rollup(ctx context.Context, changedID string) error {
	task, err := e.store.GetTask(ctx, changedID)
	if err != nil {
		return fmt.Errorf("rollup: failed to load %s: %w", changedID, err)
	}
	return e.walk(ctx, task.ParentID, map[string]bool{changedID: true})
}

// RollupFrom re-evaluates parentID itself and then its ancestors. It is used
// when a child has just been removed and can no longer be looked up.
func (e *Engine) RollupFrom(ctx context.Context, parentID string) error {
	return e.walk(ctx, parentID, map[string]bool{})
}

func (e *Engine) walk(ctx context.Context, parentID string, visited map[string]bool) error {
	for parentID != "" && !visited[parentID] {
		visited[parentID] = true
		next, err := e.rollupParent(ctx, parentID)
		if err != nil {
			return err
		}
		parentID = next
	}
	return nil
}

// rollupParent applies the rules to one parent and returns its own parent id.
func (e *Engine) rollupParent(ctx context.Context, parentID string) (string, error) {
	parent, err := e.store.GetTask(ctx, parentID)
	if err != nil {
		return "", fmt.Errorf("rollup: failed to load parent %s: %w", parentID, err)
	}
	children, err := e.children(ctx, parentID)
	if err != nil {
		return "", err
	}

	next, ok := nextStatus(parent.Status, children)
	if !ok || next == parent.Status {
		return parent.ParentID, nil
	}
	if _, err := e.store.UpdateTask(ctx, parentID, types.TaskPatch{Status: &next}); err != nil {
		return "", fmt.Errorf("rollup: failed to update %s: %w", parentID, err)
	}
	debug.Logf("rollup: %s %s -> %s\n", parentID, parent.Status, next)
	debug.LogEvent(debug.EventRollupUpdated, parentID, fmt.Sprintf("%s->%s", parent.Status, next))
	return parent.ParentID, nil
}

// nextStatus applies the rollup rules. ok is false when there are no
// children or neither rule fires.
func nextStatus(current types.Status, children []*types.Task) (types.Status, bool) {
	if len(children) == 0 {
		return current, false
	}
	allFinished := true
	anyInProgress := false
	for _, c := range children {
		if !c.Status.IsFinished() {
			allFinished = false
		}
		if c.Status == types.StatusInProgress {
			anyInProgress = true
		}
	}
	switch {
	case allFinished:
		return types.StatusDone, true
	case anyInProgress && current == types.StatusOpen:
		return types.StatusInProgress, true
	}
	return current, false
}

func (e *Engine) children(ctx context.Context, parentID string) ([]*types.Task, error) {
	children, err := e.store.ListTasks(ctx, types.TaskFilter{ParentID: &parentID})
	if err != nil {
		return nil, fmt.Errorf("rollup: failed to list children of %s: %w", parentID, err)
	}
	return children, nil
}

// Progress summarizes the direct children of parentID. Cancelled children are
// excluded from the percent-done denominator.
func (e *Engine) Progress(ctx context.Context, parentID string) (*types.Progress, error) {
	if _, err := e.store.GetTask(ctx, parentID); err != nil {
		return nil, err
	}
	children, err := e.children(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return Summarize(parentID, children), nil
}

// Summarize computes progress over children without touching the store.
func Summarize(parentID string, children []*types.Task) *types.Progress {
	p := &types.Progress{
		TaskID: parentID,
		Total:  len(children),
		Counts: make(map[types.Status]int, len(types.AllStatuses)),
	}
	for _, s := range types.AllStatuses {
		p.Counts[s] = 0
	}
	for _, c := range children {
		p.Counts[c.Status]++
		if c.StoryPoints != nil {
			p.TotalPoints += *c.StoryPoints
			if c.Status == types.StatusDone {
				p.CompletedPoints += *c.StoryPoints
			}
		}
	}
	if denom := p.Total - p.Counts[types.StatusCancelled]; denom > 0 {
		pct := float64(p.Counts[types.StatusDone]) / float64(denom) * 100
		p.PercentDone = math.Round(pct*10) / 10
	}
	return p
}
