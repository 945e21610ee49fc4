package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/weekendly/internal/db"
)

// SQLitePlanCache implements PlanCache on the plan_cache table.
type SQLitePlanCache struct {
	db db.DBTX
}

// NewSQLitePlanCache creates a new SQLitePlanCache.
func NewSQLitePlanCache(conn db.DBTX) *SQLitePlanCache {
	return &SQLitePlanCache{db: conn}
}

func (r *SQLitePlanCache) Put(ctx context.Context, userID, planID string, body []byte) error {
	query := `INSERT INTO plan_cache (user_id, plan_id, body, cached_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, plan_id) DO UPDATE SET body = excluded.body, cached_at = excluded.cached_at`
	if _, err := r.db.ExecContext(ctx, query, userID, planID, string(body), nowUTC()); err != nil {
		return fmt.Errorf("caching plan %s/%s: %w", userID, planID, err)
	}
	return nil
}

func (r *SQLitePlanCache) Get(ctx context.Context, userID, planID string) (*CachedBody, error) {
	var body, cachedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT body, cached_at FROM plan_cache WHERE user_id = ? AND plan_id = ?`,
		userID, planID).Scan(&body, &cachedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("cached plan %s/%s: %w", userID, planID, ErrNotFound)
		}
		return nil, fmt.Errorf("reading cached plan: %w", err)
	}
	at, err := parseTime(cachedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing cached_at: %w", err)
	}
	return &CachedBody{Body: []byte(body), CachedAt: at}, nil
}

func (r *SQLitePlanCache) Delete(ctx context.Context, userID, planID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM plan_cache WHERE user_id = ? AND plan_id = ?`, userID, planID); err != nil {
		return fmt.Errorf("evicting cached plan: %w", err)
	}
	return nil
}

func (r *SQLitePlanCache) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM plan_cache`); err != nil {
		return fmt.Errorf("clearing plan cache: %w", err)
	}
	return nil
}
