package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/yidong72/chisel/internal/storage"
)

// wrapDBError wraps a database error with operation context.
// It converts sql.ErrNoRows to storage.ErrNotFound for consistent error handling.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// wrapWriteError is wrapDBError plus mapping of constraint failures to
// storage.ErrConflict.
func (s *Store) wrapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrConflict, err)
	}
	return wrapDBError(op, err)
}

func notFound(kind, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, storage.ErrNotFound)
}
