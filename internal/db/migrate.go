package db

import (
	"database/sql"
	"fmt"
)

// Migrate creates the schema. Every statement is safe to re-run, so it is
// applied on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS offline_actions (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL CHECK(type IN ('CREATE','UPDATE','DELETE')),
		endpoint   TEXT NOT NULL,
		method     TEXT NOT NULL,
		user_id    TEXT NOT NULL DEFAULT '',
		plan_id    TEXT NOT NULL DEFAULT '',
		payload    TEXT,
		timestamp  INTEGER NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		seq        INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_offline_actions_plan ON offline_actions(user_id, plan_id)`,
	`CREATE INDEX IF NOT EXISTS idx_offline_actions_seq ON offline_actions(seq)`,

	`CREATE TABLE IF NOT EXISTS local_state (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS plan_cache (
		user_id    TEXT NOT NULL,
		plan_id    TEXT NOT NULL,
		body       TEXT NOT NULL,
		cached_at  TEXT NOT NULL,
		PRIMARY KEY (user_id, plan_id)
	)`,
}
