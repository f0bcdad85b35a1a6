package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/types"
)

// AddDependency records that dep.TaskID depends on dep.DependsOnID.
// A second edge with the same (task, prerequisite, type) triple is rejected
// with storage.ErrConflict. Self-edges are the caller's concern.
func (s *Store) AddDependency(ctx context.Context, dep *types.Dependency) error {
	if dep.Type == "" {
		dep.Type = types.DepBlocks
	}
	if !dep.Type.IsValid() {
		return fmt.Errorf("%w: invalid dependency type: %s", storage.ErrInvalidInput, dep.Type)
	}
	if dep.TaskID == "" || dep.DependsOnID == "" {
		return fmt.Errorf("%w: dependency endpoints are required", storage.ErrInvalidInput)
	}

	existing, err := s.ListDependencies(ctx, types.DependencyFilter{
		TaskID:      dep.TaskID,
		DependsOnID: dep.DependsOnID,
		Type:        dep.Type,
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("dependency %s -> %s (%s) already exists: %w",
			dep.TaskID, dep.DependsOnID, dep.Type, storage.ErrConflict)
	}

	if dep.CreatedAt.IsZero() {
		dep.CreatedAt = s.timestamp()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO dependencies (task_id, depends_on_id, dep_type, created_at)
			VALUES (?, ?, ?, ?)
		`, dep.TaskID, dep.DependsOnID, string(dep.Type), formatTime(dep.CreatedAt))
		if err != nil {
			return s.wrapWriteError("add dependency", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			dep.ID = id
		}
		return nil
	})
}

// RemoveDependency deletes the matching edge. An empty depType removes the
// edge regardless of type.
func (s *Store) RemoveDependency(ctx context.Context, taskID, dependsOnID string, depType types.DependencyType) error {
	query := `DELETE FROM dependencies WHERE task_id = ? AND depends_on_id = ?`
	args := []any{taskID, dependsOnID}
	if depType != "" {
		query += ` AND dep_type = ?`
		args = append(args, string(depType))
	}
	result, err := s.execContext(ctx, query, args...)
	if err != nil {
		return wrapDBError("remove dependency", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("dependency", taskID+" -> "+dependsOnID)
	}
	return nil
}

// ListDependencies returns edges matching the filter in creation order.
func (s *Store) ListDependencies(ctx context.Context, filter types.DependencyFilter) ([]*types.Dependency, error) {
	whereClauses := []string{}
	args := []any{}
	if filter.TaskID != "" {
		whereClauses = append(whereClauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.DependsOnID != "" {
		whereClauses = append(whereClauses, "depends_on_id = ?")
		args = append(args, filter.DependsOnID)
	}
	if filter.Type != "" {
		whereClauses = append(whereClauses, "dep_type = ?")
		args = append(args, string(filter.Type))
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	// #nosec G201 - safe SQL with controlled formatting
	query := fmt.Sprintf(`
		SELECT id, task_id, depends_on_id, dep_type, created_at
		FROM dependencies
		%s
		ORDER BY id ASC
	`, whereSQL)

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list dependencies", err)
	}
	defer func() { _ = rows.Close() }()

	var deps []*types.Dependency
	for rows.Next() {
		var (
			dep       types.Dependency
			depType   string
			createdAt string
		)
		if err := rows.Scan(&dep.ID, &dep.TaskID, &dep.DependsOnID, &depType, &createdAt); err != nil {
			return nil, wrapDBError("scan dependency", err)
		}
		dep.Type = types.DependencyType(depType)
		dep.CreatedAt = parseTimeString(createdAt)
		deps = append(deps, &dep)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate dependencies", err)
	}
	return deps, nil
}
