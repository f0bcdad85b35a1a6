// Package types defines core data structures for the chisel task tracker.
package types

import (
	"fmt"
	"time"
)

// Task represents a trackable unit of work
type Task struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	TaskType           TaskType   `json:"task_type"`
	Priority           int        `json:"priority"` // No omitempty: 0 is valid (P0/critical)
	StoryPoints        *int       `json:"story_points,omitempty"`
	EstimatedMinutes   *int       `json:"estimated_minutes,omitempty"`
	Status             Status     `json:"status"`
	ParentID           string     `json:"parent_id,omitempty"`
	AcceptanceCriteria []string   `json:"acceptance_criteria,omitempty"`
	QualityScore       *float64   `json:"quality_score,omitempty"` // Set only by validation
	Assignee           string     `json:"assignee,omitempty"`
	Labels             []string   `json:"labels,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	DueAt              *time.Time `json:"due_at,omitempty"`
	DeferUntil         *time.Time `json:"defer_until,omitempty"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if len(t.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(t.Title))
	}
	if t.Priority < 0 || t.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", t.Priority)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if !t.TaskType.IsValid() {
		return fmt.Errorf("invalid task type: %s", t.TaskType)
	}
	if t.StoryPoints != nil && *t.StoryPoints <= 0 {
		return fmt.Errorf("story_points must be positive (got %d)", *t.StoryPoints)
	}
	if t.EstimatedMinutes != nil && *t.EstimatedMinutes < 0 {
		return fmt.Errorf("estimated_minutes cannot be negative")
	}
	if t.QualityScore != nil && (*t.QualityScore < 0 || *t.QualityScore > 1) {
		return fmt.Errorf("quality_score must be between 0 and 1 (got %g)", *t.QualityScore)
	}
	if t.ParentID != "" && t.ParentID == t.ID {
		return fmt.Errorf("task cannot be its own parent")
	}
	return nil
}

// SetDefaults fills status and type when they were omitted.
// Priority is left alone because 0 is a valid (critical) value.
func (t *Task) SetDefaults() {
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.TaskType == "" {
		t.TaskType = TypeTask
	}
}

// IsDeferred reports whether the task is hidden from ready work at now.
func (t *Task) IsDeferred(now time.Time) bool {
	return t.DeferUntil != nil && t.DeferUntil.After(now)
}

// Status represents the current state of a task
type Status string

// Task status constants
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusOpen, StatusInProgress, StatusBlocked, StatusReview, StatusDone, StatusCancelled,
}

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusReview, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// IsFinished reports whether no more work is expected (done or cancelled).
func (s Status) IsFinished() bool {
	return s == StatusDone || s == StatusCancelled
}

// TaskType categorizes the kind of work
type TaskType string

// Task type constants
const (
	TypeTask  TaskType = "task"
	TypeEpic  TaskType = "epic"
	TypeBug   TaskType = "bug"
	TypeSpike TaskType = "spike"
	TypeChore TaskType = "chore"
)

// IsValid checks if the task type value is valid
func (t TaskType) IsValid() bool {
	switch t {
	case TypeTask, TypeEpic, TypeBug, TypeSpike, TypeChore:
		return true
	}
	return false
}

// Dependency represents a directed edge: TaskID depends on DependsOnID
type Dependency struct {
	ID          int64          `json:"id"`
	TaskID      string         `json:"task_id"`
	DependsOnID string         `json:"depends_on_id"`
	Type        DependencyType `json:"type"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DependencyType categorizes the relationship
type DependencyType string

// Dependency type constants
const (
	DepBlocks     DependencyType = "blocks"
	DepParent     DependencyType = "parent"
	DepRelated    DependencyType = "related"
	DepDiscovered DependencyType = "discovered"
)

// IsValid checks if the dependency type value is valid
func (d DependencyType) IsValid() bool {
	switch d {
	case DepBlocks, DepParent, DepRelated, DepDiscovered:
		return true
	}
	return false
}

// AffectsReadiness returns true if this dependency type gates ready work.
// Only "blocks" edges participate in the ready/blocked calculation.
func (d DependencyType) AffectsReadiness() bool {
	return d == DepBlocks
}

// Hook is an event-scoped external validation command
type Hook struct {
	ID        int64     `json:"id"`
	Event     string    `json:"event"`
	Command   string    `json:"command"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Well-known hook events
const (
	EventPreClose   = "pre-close"
	EventPostCreate = "post-create"
)

// HookResult is the outcome of running one hook
type HookResult struct {
	HookID   int64         `json:"hook_id"`
	Event    string        `json:"event"`
	Command  string        `json:"command"`
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration_ns"`
}

// TaskFilter is used to filter task queries. Nil/empty fields are ignored;
// set fields are ANDed together.
type TaskFilter struct {
	Status    *Status
	Priority  *int
	TaskType  *TaskType
	ParentID  *string
	Assignee  *string
	LabelsAny []string // OR semantics: task must have AT LEAST ONE of these labels
	IDs       []string
	Limit     int
}

// TaskPatch carries a partial update. A nil field means "not supplied".
type TaskPatch struct {
	Title              *string
	Description        *string
	TaskType           *TaskType
	Priority           *int
	StoryPoints        *int
	EstimatedMinutes   *int
	Status             *Status
	ParentID           *string // pointer to "" clears the parent
	AcceptanceCriteria *[]string
	QualityScore       *float64
	Assignee           *string
	Labels             *[]string
	DueAt              *time.Time
	DeferUntil         *time.Time
	ClearDueAt         bool
	ClearDeferUntil    bool
}

// IsEmpty reports whether the patch changes nothing besides updated_at.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.TaskType == nil &&
		p.Priority == nil && p.StoryPoints == nil && p.EstimatedMinutes == nil &&
		p.Status == nil && p.ParentID == nil && p.AcceptanceCriteria == nil &&
		p.QualityScore == nil && p.Assignee == nil && p.Labels == nil &&
		p.DueAt == nil && p.DeferUntil == nil && !p.ClearDueAt && !p.ClearDeferUntil
}

// Apply copies the supplied fields of p onto t. It does not touch UpdatedAt.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.TaskType != nil {
		t.TaskType = *p.TaskType
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.StoryPoints != nil {
		v := *p.StoryPoints
		t.StoryPoints = &v
	}
	if p.EstimatedMinutes != nil {
		v := *p.EstimatedMinutes
		t.EstimatedMinutes = &v
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ParentID != nil {
		t.ParentID = *p.ParentID
	}
	if p.AcceptanceCriteria != nil {
		t.AcceptanceCriteria = append([]string(nil), (*p.AcceptanceCriteria)...)
	}
	if p.QualityScore != nil {
		v := *p.QualityScore
		t.QualityScore = &v
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Labels != nil {
		t.Labels = append([]string(nil), (*p.Labels)...)
	}
	if p.ClearDueAt {
		t.DueAt = nil
	} else if p.DueAt != nil {
		v := *p.DueAt
		t.DueAt = &v
	}
	if p.ClearDeferUntil {
		t.DeferUntil = nil
	} else if p.DeferUntil != nil {
		v := *p.DeferUntil
		t.DeferUntil = &v
	}
}

// DependencyFilter selects dependency edges. Empty fields are ignored.
type DependencyFilter struct {
	TaskID      string
	DependsOnID string
	Type        DependencyType
}

// WorkFilter is used to filter ready work queries
type WorkFilter struct {
	Limit int
	Now   time.Time // zero means time.Now()
}

// Blocker describes one unfinished prerequisite of a blocked task
type Blocker struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

// BlockedTask extends Task with the prerequisites holding it back
type BlockedTask struct {
	Task
	BlockedBy []Blocker `json:"blocked_by"`
}

// TreeNode is a task together with its full descendant chain
type TreeNode struct {
	Task     *Task       `json:"task"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Progress aggregates the state of a parent's direct children
type Progress struct {
	TaskID          string         `json:"task_id"`
	Total           int            `json:"total"`
	Counts          map[Status]int `json:"counts"`
	PercentDone     float64        `json:"percent_done"`
	TotalPoints     int            `json:"total_points"`
	CompletedPoints int            `json:"completed_points"`
}
