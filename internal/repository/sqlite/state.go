package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/tinkers/internal/apperror"
	"github.com/sakif/tinkers/internal/repository"
)

// Compile-time check that *DB implements repository.StateRepository.
var _ repository.StateRepository = (*DB)(nil)

// Load returns the record stored under namespace.
// A missing record is reported as apperror.ErrNotFound.
func (db *DB) Load(ctx context.Context, namespace string) ([]byte, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM state WHERE namespace = ?`,
		namespace,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("state", namespace)
		}
		return nil, fmt.Errorf("sqlite: loading state %s: %w", namespace, err)
	}
	return []byte(value), nil
}

// Save replaces the record stored under namespace in one statement, so a
// reader never observes a half-written collection.
func (db *DB) Save(ctx context.Context, namespace string, data []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO state (namespace, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		namespace,
		string(data),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving state %s: %w", namespace, err)
	}
	return nil
}
