// Package decompose breaks a task into child tasks and reads task trees.
package decompose

import (
	"context"
	"fmt"
	"strings"

	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/types"
)

// Store is the subset of storage.Storage used here.
type Store interface {
	CreateTask(ctx context.Context, task *types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error)
}

// IDSource allocates ids for new tasks.
type IDSource interface {
	Next(ctx context.Context, title, description string) (string, error)
}

// Result is the outcome of a decomposition.
type Result struct {
	Parent   *types.Task   `json:"parent"`
	Subtasks []*types.Task `json:"subtasks"`
}

// Orchestrator creates subtasks under a parent.
type Orchestrator struct {
	store Store
	ids   IDSource
}

// New creates an Orchestrator.
func New(store Store, ids IDSource) *Orchestrator {
	return &Orchestrator{store: store, ids: ids}
}

// Decompose creates one child of parentID per title. Children inherit the
// parent's priority; points, when given, must match titles one-to-one. The
// parent becomes an epic. Input is validated before anything is written.
func (o *Orchestrator) Decompose(ctx context.Context, parentID string, titles []string, points []int) (*Result, error) {
	parent, err := o.store.GetTask(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(titles, points); err != nil {
		return nil, err
	}

	subtasks := make([]*types.Task, 0, len(titles))
	for i, title := range titles {
		child := &types.Task{
			Title:    strings.TrimSpace(title),
			TaskType: types.TypeTask,
			Status:   types.StatusOpen,
			Priority: parent.Priority,
			ParentID: parent.ID,
		}
		if points != nil {
			p := points[i]
			child.StoryPoints = &p
		}
		child.ID, err = o.ids.Next(ctx, child.Title, "")
		if err != nil {
			return nil, err
		}
		if err := o.store.CreateTask(ctx, child); err != nil {
			return nil, fmt.Errorf("failed to create subtask %q: %w", child.Title, err)
		}
		subtasks = append(subtasks, child)
	}

	if parent.TaskType != types.TypeEpic {
		epic := types.TypeEpic
		parent, err = o.store.UpdateTask(ctx, parent.ID, types.TaskPatch{TaskType: &epic})
		if err != nil {
			return nil, fmt.Errorf("failed to mark %s as epic: %w", parentID, err)
		}
	}

	debug.LogEvent(debug.EventTaskDecomposed, parent.ID, fmt.Sprintf("subtasks=%d", len(subtasks)))
	return &Result{Parent: parent, Subtasks: subtasks}, nil
}

func validateInput(titles []string, points []int) error {
	if len(titles) == 0 {
		return fmt.Errorf("%w: at least one subtask title is required", storage.ErrInvalidInput)
	}
	for i, title := range titles {
		if strings.TrimSpace(title) == "" {
			return fmt.Errorf("%w: subtask title %d is empty", storage.ErrInvalidInput, i+1)
		}
	}
	if points == nil {
		return nil
	}
	if len(points) != len(titles) {
		return fmt.Errorf("%w: got %d story point values for %d subtasks", storage.ErrInvalidInput, len(points), len(titles))
	}
	for i, p := range points {
		if p <= 0 {
			return fmt.Errorf("%w: story points for subtask %d must be positive, got %d", storage.ErrInvalidInput, i+1, p)
		}
	}
	return nil
}

// Tree returns taskID with all of its descendants. It issues one child
// query per node.
func (o *Orchestrator) Tree(ctx context.Context, taskID string) (*types.TreeNode, error) {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return o.buildNode(ctx, task, map[string]bool{})
}

func (o *Orchestrator) buildNode(ctx context.Context, task *types.Task, seen map[string]bool) (*types.TreeNode, error) {
	node := &types.TreeNode{Task: task}
	if seen[task.ID] {
		return node, nil
	}
	seen[task.ID] = true

	id := task.ID
	children, err := o.store.ListTasks(ctx, types.TaskFilter{ParentID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", task.ID, err)
	}
	for _, child := range children {
		childNode, err := o.buildNode(ctx, child, seen)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}
