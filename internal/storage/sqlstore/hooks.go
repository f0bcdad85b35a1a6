package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/types"
)

// CreateHook registers a hook with the Enabled flag as given.
func (s *Store) CreateHook(ctx context.Context, hook *types.Hook) error {
	hook.Event = strings.TrimSpace(hook.Event)
	if hook.Event == "" {
		return fmt.Errorf("%w: hook event is required", storage.ErrInvalidInput)
	}
	if strings.TrimSpace(hook.Command) == "" {
		return fmt.Errorf("%w: hook command is required", storage.ErrInvalidInput)
	}
	if hook.CreatedAt.IsZero() {
		hook.CreatedAt = s.timestamp()
	}

	result, err := s.execContext(ctx, `
		INSERT INTO hooks (event, command, enabled, created_at)
		VALUES (?, ?, ?, ?)
	`, hook.Event, hook.Command, boolToInt(hook.Enabled), formatTime(hook.CreatedAt))
	if err != nil {
		return s.wrapWriteError("create hook", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		hook.ID = id
	}
	return nil
}

// ListHooks returns hooks in registration order. Disabled hooks are
// excluded unless includeDisabled is set.
func (s *Store) ListHooks(ctx context.Context, event string, includeDisabled bool) ([]*types.Hook, error) {
	whereClauses := []string{}
	args := []any{}
	if event != "" {
		whereClauses = append(whereClauses, "event = ?")
		args = append(args, event)
	}
	if !includeDisabled {
		whereClauses = append(whereClauses, "enabled = 1")
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	// #nosec G201 - safe SQL with controlled formatting
	query := fmt.Sprintf(`
		SELECT id, event, command, enabled, created_at
		FROM hooks
		%s
		ORDER BY id ASC
	`, whereSQL)

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list hooks", err)
	}
	defer func() { _ = rows.Close() }()

	var hooks []*types.Hook
	for rows.Next() {
		var (
			hook      types.Hook
			enabled   int
			createdAt string
		)
		if err := rows.Scan(&hook.ID, &hook.Event, &hook.Command, &enabled, &createdAt); err != nil {
			return nil, wrapDBError("scan hook", err)
		}
		hook.Enabled = enabled != 0
		hook.CreatedAt = parseTimeString(createdAt)
		hooks = append(hooks, &hook)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate hooks", err)
	}
	return hooks, nil
}

// SetHookEnabled toggles a hook.
func (s *Store) SetHookEnabled(ctx context.Context, id int64, enabled bool) error {
	result, err := s.execContext(ctx, `UPDATE hooks SET enabled = ? WHERE id = ?`, boolToInt(enabled), id)
	if err != nil {
		return wrapDBError("set hook enabled", err)
	}
	// MySQL reports 0 affected rows when the value is unchanged, so confirm existence.
	if n, _ := result.RowsAffected(); n == 0 {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hooks WHERE id = ?`, id).Scan(&count); err != nil {
			return wrapDBError("check hook", err)
		}
		if count == 0 {
			return notFound("hook", id)
		}
	}
	return nil
}

// DeleteHook removes a hook.
func (s *Store) DeleteHook(ctx context.Context, id int64) error {
	result, err := s.execContext(ctx, `DELETE FROM hooks WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete hook", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("hook", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
