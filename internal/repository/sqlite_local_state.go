package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/weekendly/internal/db"
)

// SQLiteLocalStateRepo implements StateRepo on the local_state table.
type SQLiteLocalStateRepo struct {
	db db.DBTX
}

// NewSQLiteLocalStateRepo creates a new SQLiteLocalStateRepo.
func NewSQLiteLocalStateRepo(conn db.DBTX) *SQLiteLocalStateRepo {
	return &SQLiteLocalStateRepo{db: conn}
}

func (r *SQLiteLocalStateRepo) Save(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, string(value), nowUTC()); err != nil {
		return fmt.Errorf("saving local state %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteLocalStateRepo) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM local_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("local state %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("loading local state %q: %w", key, err)
	}
	return []byte(value), nil
}

func (r *SQLiteLocalStateRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting local state %q: %w", key, err)
	}
	return nil
}
