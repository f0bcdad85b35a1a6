package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/types"
)

const taskColumns = `i.id, i.title, i.description, i.task_type, i.priority, i.story_points,
	i.estimated_minutes, i.status, i.parent_id, i.acceptance_criteria, i.quality_score,
	i.assignee, i.created_at, i.updated_at, i.closed_at, i.due_at, i.defer_until`

// CreateTask inserts a new task and its labels. CreatedAt/UpdatedAt are set
// to the store clock when zero.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	task.SetDefaults()
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if task.ID == "" {
		return fmt.Errorf("%w: task id is required", storage.ErrInvalidInput)
	}

	now := s.timestamp()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	manageClosedAt(task, now)
	task.Labels = normalizeLabels(task.Labels)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				id, title, description, task_type, priority, story_points,
				estimated_minutes, status, parent_id, acceptance_criteria, quality_score,
				assignee, created_at, updated_at, closed_at, due_at, defer_until
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			task.ID, task.Title, task.Description, string(task.TaskType), task.Priority,
			nullInt(task.StoryPoints), nullInt(task.EstimatedMinutes), string(task.Status),
			nullString(task.ParentID), formatJSONStringArray(task.AcceptanceCriteria),
			nullFloat(task.QualityScore), task.Assignee,
			formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
			formatNullableTime(task.ClosedAt), formatNullableTime(task.DueAt),
			formatNullableTime(task.DeferUntil),
		)
		if err != nil {
			return s.wrapWriteError("insert task", err)
		}
		return insertLabels(ctx, tx, task.ID, task.Labels)
	})
}

// GetTask retrieves a task by ID, including its labels.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	tasks, err := s.ListTasks(ctx, types.TaskFilter{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, wrapDBError("get task", err)
	}
	if len(tasks) == 0 {
		return nil, notFound("task", id)
	}
	return tasks[0], nil
}

// ListTasks returns tasks matching every supplied filter, ordered by
// priority then creation time.
func (s *Store) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	whereClauses := []string{}
	args := []any{}

	if filter.Status != nil {
		whereClauses = append(whereClauses, "i.status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		whereClauses = append(whereClauses, "i.priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.TaskType != nil {
		whereClauses = append(whereClauses, "i.task_type = ?")
		args = append(args, string(*filter.TaskType))
	}
	if filter.ParentID != nil {
		if *filter.ParentID == "" {
			whereClauses = append(whereClauses, "i.parent_id IS NULL")
		} else {
			whereClauses = append(whereClauses, "i.parent_id = ?")
			args = append(args, *filter.ParentID)
		}
	}
	if filter.Assignee != nil {
		whereClauses = append(whereClauses, "i.assignee = ?")
		args = append(args, *filter.Assignee)
	}
	if len(filter.LabelsAny) > 0 {
		// OR semantics: the task holds at least one of the requested labels.
		placeholders := make([]string, len(filter.LabelsAny))
		for i, label := range filter.LabelsAny {
			placeholders[i] = "?"
			args = append(args, label)
		}
		whereClauses = append(whereClauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM labels l WHERE l.task_id = i.id AND l.label IN (%s))",
			strings.Join(placeholders, ", ")))
	}
	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		whereClauses = append(whereClauses, fmt.Sprintf("i.id IN (%s)", strings.Join(placeholders, ", ")))
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}
	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = " LIMIT ?"
		args = append(args, filter.Limit)
	}

	// #nosec G201 - safe SQL with controlled formatting
	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks i
		%s
		ORDER BY i.priority ASC, i.created_at ASC, i.id ASC
		%s
	`, taskColumns, whereSQL, limitSQL)

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list tasks", err)
	}
	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateLabels(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask applies patch to the task. Only supplied fields change;
// updated_at is always refreshed and closed_at follows the status.
func (s *Store) UpdateTask(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error) {
	old, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *old
	patch.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	now := s.timestamp()
	setClauses := []string{"updated_at = ?"}
	args := []any{formatTime(now)}
	set := func(column string, value any) {
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		set("title", merged.Title)
	}
	if patch.Description != nil {
		set("description", merged.Description)
	}
	if patch.TaskType != nil {
		set("task_type", string(merged.TaskType))
	}
	if patch.Priority != nil {
		set("priority", merged.Priority)
	}
	if patch.StoryPoints != nil {
		set("story_points", nullInt(merged.StoryPoints))
	}
	if patch.EstimatedMinutes != nil {
		set("estimated_minutes", nullInt(merged.EstimatedMinutes))
	}
	if patch.Status != nil {
		set("status", string(merged.Status))
		manageClosedAt(&merged, now)
		set("closed_at", formatNullableTime(merged.ClosedAt))
	}
	if patch.ParentID != nil {
		set("parent_id", nullString(merged.ParentID))
	}
	if patch.AcceptanceCriteria != nil {
		set("acceptance_criteria", formatJSONStringArray(merged.AcceptanceCriteria))
	}
	if patch.QualityScore != nil {
		set("quality_score", nullFloat(merged.QualityScore))
	}
	if patch.Assignee != nil {
		set("assignee", merged.Assignee)
	}
	if patch.DueAt != nil || patch.ClearDueAt {
		set("due_at", formatNullableTime(merged.DueAt))
	}
	if patch.DeferUntil != nil || patch.ClearDeferUntil {
		set("defer_until", formatNullableTime(merged.DeferUntil))
	}
	args = append(args, id)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		// #nosec G201 - column names come from the fixed list above
		query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(setClauses, ", "))
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return wrapDBError("update task", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return notFound("task", id)
		}
		if patch.Labels != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM labels WHERE task_id = ?`, id); err != nil {
				return wrapDBError("clear labels", err)
			}
			return insertLabels(ctx, tx, id, normalizeLabels(merged.Labels))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task, its labels and every dependency edge that
// references it in either direction.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM dependencies WHERE task_id = ? OR depends_on_id = ?`, id, id); err != nil {
			return wrapDBError("delete dependencies", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM labels WHERE task_id = ?`, id); err != nil {
			return wrapDBError("delete labels", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete task", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return notFound("task", id)
		}
		return nil
	})
}

// manageClosedAt keeps closed_at set exactly while the status is finished.
func manageClosedAt(task *types.Task, now time.Time) {
	if task.Status.IsFinished() {
		if task.ClosedAt == nil {
			closedAt := now
			task.ClosedAt = &closedAt
		}
		return
	}
	task.ClosedAt = nil
}

func scanTasks(rows *sql.Rows) ([]*types.Task, error) {
	defer func() { _ = rows.Close() }()

	var tasks []*types.Task
	for rows.Next() {
		var (
			task               types.Task
			taskType, status   string
			storyPoints        sql.NullInt64
			estimatedMinutes   sql.NullInt64
			parentID           sql.NullString
			acceptanceCriteria sql.NullString
			qualityScore       sql.NullFloat64
			createdAt          string
			updatedAt          string
			closedAt           sql.NullString
			dueAt              sql.NullString
			deferUntil         sql.NullString
		)
		if err := rows.Scan(
			&task.ID, &task.Title, &task.Description, &taskType, &task.Priority, &storyPoints,
			&estimatedMinutes, &status, &parentID, &acceptanceCriteria, &qualityScore,
			&task.Assignee, &createdAt, &updatedAt, &closedAt, &dueAt, &deferUntil,
		); err != nil {
			return nil, wrapDBError("scan task", err)
		}
		task.TaskType = types.TaskType(taskType)
		task.Status = types.Status(status)
		if storyPoints.Valid {
			v := int(storyPoints.Int64)
			task.StoryPoints = &v
		}
		if estimatedMinutes.Valid {
			v := int(estimatedMinutes.Int64)
			task.EstimatedMinutes = &v
		}
		if parentID.Valid {
			task.ParentID = parentID.String
		}
		task.AcceptanceCriteria = parseJSONStringArray(acceptanceCriteria.String)
		if qualityScore.Valid {
			v := qualityScore.Float64
			task.QualityScore = &v
		}
		task.CreatedAt = parseTimeString(createdAt)
		task.UpdatedAt = parseTimeString(updatedAt)
		task.ClosedAt = parseNullableTimeString(closedAt)
		task.DueAt = parseNullableTimeString(dueAt)
		task.DeferUntil = parseNullableTimeString(deferUntil)
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate tasks", err)
	}
	return tasks, nil
}

// hydrateLabels loads labels for all tasks in one query.
func (s *Store) hydrateLabels(ctx context.Context, tasks []*types.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*types.Task, len(tasks))
	placeholders := make([]string, 0, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		placeholders = append(placeholders, "?")
		args = append(args, t.ID)
	}

	// #nosec G201 - placeholders only
	query := fmt.Sprintf(`SELECT task_id, label FROM labels WHERE task_id IN (%s) ORDER BY task_id, label`,
		strings.Join(placeholders, ", "))
	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return wrapDBError("get labels", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var taskID, label string
		if err := rows.Scan(&taskID, &label); err != nil {
			return wrapDBError("scan label", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Labels = append(t.Labels, label)
		}
	}
	return wrapDBError("iterate labels", rows.Err())
}

func insertLabels(ctx context.Context, tx *sql.Tx, taskID string, labels []string) error {
	for _, label := range labels {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO labels (task_id, label) VALUES (?, ?)`, taskID, label); err != nil {
			return wrapDBError("insert label", err)
		}
	}
	return nil
}

// normalizeLabels trims, drops empties and deduplicates. Labels are a set,
// so the stored order is sorted.
func normalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

// parseTimeString parses a required timestamp column.
// Returns zero time if parsing fails.
func parseTimeString(s string) time.Time {
	if t := parseNullableTimeString(sql.NullString{String: s, Valid: true}); t != nil {
		return *t
	}
	return time.Time{}
}

// parseNullableTimeString accepts our fixed layout as well as RFC3339 and
// SQLite's native format, for rows written by other tools.
func parseNullableTimeString(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

// parseJSONStringArray parses a JSON string array from a TEXT column.
// Returns nil if the string is empty or invalid JSON.
func parseJSONStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil
	}
	return result
}

// formatJSONStringArray formats a string slice as JSON for storage.
// Returns empty string if the slice is nil or empty.
func formatJSONStringArray(arr []string) string {
	if len(arr) == 0 {
		return ""
	}
	data, err := json.Marshal(arr)
	if err != nil {
		return ""
	}
	return string(data)
}
