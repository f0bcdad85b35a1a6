package sqlstore

import (
	"context"
	"database/sql"
	"errors"
)

// SetConfig sets a project configuration value
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.execContext(ctx, s.dialect.UpsertConfig, key, value)
	return wrapDBError("set config", err)
}

// GetConfig gets a project configuration value ("" when unset)
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE name = ?`, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, wrapDBError("get config", err)
}

// GetAllConfig gets all configuration key-value pairs
func (s *Store) GetAllConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.queryContext(ctx, `SELECT name, value FROM config ORDER BY name`)
	if err != nil {
		return nil, wrapDBError("get all config", err)
	}
	defer func() { _ = rows.Close() }()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, wrapDBError("scan config", err)
		}
		config[key] = value
	}
	return config, wrapDBError("iterate config", rows.Err())
}
