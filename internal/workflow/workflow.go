// Package workflow composes the store, hook pipeline, rollup engine and id
// generator into the task lifecycle operations exposed by the CLI.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/hooks"
	"github.com/yidong72/chisel/internal/idgen"
	"github.com/yidong72/chisel/internal/project"
	"github.com/yidong72/chisel/internal/rollup"
	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/types"
)

// ErrPreconditionFailed is returned when a gate (pre-close hooks, children
// on delete) refuses an operation. The store is left unchanged.
var ErrPreconditionFailed = errors.New("precondition failed")

// GateError carries the hook results that made a close fail.
type GateError struct {
	TaskID  string
	Results []*types.HookResult
}

func (e *GateError) Error() string {
	failed := hooks.Failed(e.Results)
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Command)
	}
	return fmt.Sprintf("cannot close %s: %d of %d pre-close hooks failed (%s)",
		e.TaskID, len(failed), len(e.Results), strings.Join(names, ", "))
}

// Unwrap lets errors.Is match ErrPreconditionFailed.
func (e *GateError) Unwrap() error {
	return ErrPreconditionFailed
}

// HookRunner runs the hooks registered for an event.
type HookRunner interface {
	RunEvent(ctx context.Context, event, taskID string) ([]*types.HookResult, error)
}

// Service implements task lifecycle operations on top of a store.
type Service struct {
	store  storage.Storage
	hooks  HookRunner
	rollup *rollup.Engine
	actor  string
	now    func() time.Time
}

// New creates a Service. actor is recorded as the id-generation creator.
func New(store storage.Storage, runner HookRunner, actor string) *Service {
	return &Service{
		store:  store,
		hooks:  runner,
		rollup: rollup.New(store),
		actor:  actor,
		now:    time.Now,
	}
}

// IDs returns an id generator bound to the project's configured prefix.
func (s *Service) IDs(ctx context.Context) *idgen.Generator {
	return &idgen.Generator{
		Prefix:  project.IDPrefixFrom(ctx, s.store),
		Creator: s.actor,
		Now:     s.now,
		Exists: func(ctx context.Context, id string) (bool, error) {
			_, err := s.store.GetTask(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	}
}

// CreateInput describes a new task. A nil Priority uses the project's
// default_priority.
type CreateInput struct {
	Title              string
	Description        string
	TaskType           types.TaskType
	Priority           *int
	StoryPoints        *int
	EstimatedMinutes   *int
	ParentID           string
	Assignee           string
	Labels             []string
	AcceptanceCriteria []string
	DueAt              *time.Time
	DeferUntil         *time.Time
}

// CreateResult is the stored task plus the post-create hook outcomes.
type CreateResult struct {
	Task        *types.Task         `json:"task"`
	HookResults []*types.HookResult `json:"hook_results,omitempty"`
}

// Create validates and stores a new task, then runs post-create hooks.
// Hook failures are reported but never undo the create.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", storage.ErrInvalidInput)
	}
	if in.ParentID != "" {
		if _, err := s.store.GetTask(ctx, in.ParentID); err != nil {
			return nil, fmt.Errorf("parent %s: %w", in.ParentID, err)
		}
	}

	task := &types.Task{
		Title:              title,
		Description:        in.Description,
		TaskType:           in.TaskType,
		StoryPoints:        in.StoryPoints,
		EstimatedMinutes:   in.EstimatedMinutes,
		Status:             types.StatusOpen,
		ParentID:           in.ParentID,
		Assignee:           in.Assignee,
		Labels:             in.Labels,
		AcceptanceCriteria: in.AcceptanceCriteria,
		DueAt:              in.DueAt,
		DeferUntil:         in.DeferUntil,
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	} else {
		task.Priority = project.DefaultPriorityFrom(ctx, s.store)
	}
	task.SetDefaults()
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	id, err := s.IDs(ctx).Next(ctx, task.Title, task.Description)
	if err != nil {
		return nil, err
	}
	task.ID = id
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	debug.LogEvent(debug.EventTaskCreated, task.ID, task.Title)

	res := &CreateResult{Task: task}
	if s.hooks != nil {
		results, err := s.hooks.RunEvent(ctx, types.EventPostCreate, task.ID)
		if err != nil {
			// The task exists; a broken hook table must not hide that.
			debug.Logf("post-create hooks for %s: %v\n", task.ID, err)
		}
		res.HookResults = results
	}
	return res, nil
}

// Update applies patch to id. When the status changes on a task with a
// parent, the change is rolled up through the ancestors.
func (s *Service) Update(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error) {
	before, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.ParentID != nil && *patch.ParentID != "" {
		if *patch.ParentID == id {
			return nil, fmt.Errorf("%w: task cannot be its own parent", storage.ErrInvalidInput)
		}
		if _, err := s.store.GetTask(ctx, *patch.ParentID); err != nil {
			return nil, fmt.Errorf("parent %s: %w", *patch.ParentID, err)
		}
	}

	updated, err := s.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated.Status != before.Status {
		s.logStatusChange(updated, before.Status)
		if updated.ParentID != "" {
			if err := s.rollup.Rollup(ctx, id); err != nil {
				return updated, err
			}
		}
	}
	return updated, nil
}

func (s *Service) logStatusChange(task *types.Task, from types.Status) {
	switch {
	case task.Status.IsFinished() && !from.IsFinished():
		debug.LogEvent(debug.EventTaskClosed, task.ID, string(task.Status))
	case from.IsFinished() && !task.Status.IsFinished():
		debug.LogEvent(debug.EventTaskReopened, task.ID, string(task.Status))
	}
}

// CloseResult is the closed task plus the pre-close hook outcomes.
type CloseResult struct {
	Task        *types.Task         `json:"task"`
	HookResults []*types.HookResult `json:"hook_results,omitempty"`
}

// Close marks id done. Unless force is set, every pre-close hook must pass;
// otherwise a *GateError is returned and the task is untouched. A non-empty
// reason is appended to the description.
func (s *Service) Close(ctx context.Context, id, reason string, force bool) (*CloseResult, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &CloseResult{}
	if !force && s.hooks != nil {
		results, err := s.hooks.RunEvent(ctx, types.EventPreClose, id)
		if err != nil {
			return nil, err
		}
		res.HookResults = results
		if !hooks.AllPassed(results) {
			return nil, &GateError{TaskID: id, Results: results}
		}
	}

	done := types.StatusDone
	patch := types.TaskPatch{Status: &done}
	if reason = strings.TrimSpace(reason); reason != "" {
		desc := "Closed: " + reason
		if strings.TrimSpace(task.Description) != "" {
			desc = task.Description + "\n\n" + desc
		}
		patch.Description = &desc
	}
	updated, err := s.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	debug.LogEvent(debug.EventTaskClosed, id, reason)

	if err := s.rollup.Rollup(ctx, id); err != nil {
		return nil, err
	}
	res.Task = updated
	return res, nil
}

// Reopen moves a done or cancelled task back to open.
func (s *Service) Reopen(ctx context.Context, id string) (*types.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.Status.IsFinished() {
		return nil, fmt.Errorf("%w: %s is %s; only done or cancelled tasks can be reopened",
			storage.ErrInvalidInput, id, task.Status)
	}
	open := types.StatusOpen
	updated, err := s.store.UpdateTask(ctx, id, types.TaskPatch{Status: &open})
	if err != nil {
		return nil, err
	}
	debug.LogEvent(debug.EventTaskReopened, id, string(task.Status))

	if err := s.rollup.Rollup(ctx, id); err != nil {
		return nil, err
	}
	return updated, nil
}

// ValidateResult reports a validation run.
type ValidateResult struct {
	Task         *types.Task         `json:"task"`
	HookResults  []*types.HookResult `json:"hook_results"`
	QualityScore *float64            `json:"quality_score"`
}

// Validate runs the pre-close hooks without closing. The fraction that
// passed is stored as the task's quality score when at least one hook ran.
func (s *Service) Validate(ctx context.Context, id string) (*ValidateResult, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &ValidateResult{Task: task}
	if s.hooks == nil {
		return res, nil
	}
	results, err := s.hooks.RunEvent(ctx, types.EventPreClose, id)
	if err != nil {
		return nil, err
	}
	res.HookResults = results
	res.QualityScore = hooks.QualityScore(results)
	if res.QualityScore != nil {
		updated, err := s.store.UpdateTask(ctx, id, types.TaskPatch{QualityScore: res.QualityScore})
		if err != nil {
			return nil, err
		}
		res.Task = updated
	}
	return res, nil
}

// AddDependency records that taskID depends on dependsOnID.
func (s *Service) AddDependency(ctx context.Context, taskID, dependsOnID string, depType types.DependencyType) (*types.Dependency, error) {
	if taskID == dependsOnID {
		return nil, fmt.Errorf("%w: task cannot depend on itself", storage.ErrInvalidInput)
	}
	if depType == "" {
		depType = types.DepBlocks
	}
	if !depType.IsValid() {
		return nil, fmt.Errorf("%w: invalid dependency type %q", storage.ErrInvalidInput, depType)
	}
	for _, id := range []string{taskID, dependsOnID} {
		if _, err := s.store.GetTask(ctx, id); err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
	}

	dep := &types.Dependency{TaskID: taskID, DependsOnID: dependsOnID, Type: depType}
	if err := s.store.AddDependency(ctx, dep); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", storage.ErrInvalidInput, err)
		}
		return nil, err
	}
	return dep, nil
}

// RemoveDependency deletes an edge; an empty depType matches any type.
func (s *Service) RemoveDependency(ctx context.Context, taskID, dependsOnID string, depType types.DependencyType) error {
	return s.store.RemoveDependency(ctx, taskID, dependsOnID, depType)
}

// Delete removes id. A task with children is refused unless force is set,
// in which case the children become top-level tasks. The former parent is
// rolled up afterwards.
func (s *Service) Delete(ctx context.Context, id string, force bool) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	parentID := id
	children, err := s.store.ListTasks(ctx, types.TaskFilter{ParentID: &parentID})
	if err != nil {
		return err
	}
	if len(children) > 0 && !force {
		return fmt.Errorf("%w: %s has %d subtasks (use --force to detach them)",
			ErrPreconditionFailed, id, len(children))
	}
	none := ""
	for _, child := range children {
		if _, err := s.store.UpdateTask(ctx, child.ID, types.TaskPatch{ParentID: &none}); err != nil {
			return fmt.Errorf("failed to detach %s: %w", child.ID, err)
		}
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	if task.ParentID != "" {
		return s.rollup.RollupFrom(ctx, task.ParentID)
	}
	return nil
}
