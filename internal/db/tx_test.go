package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/alexanderramin/weekendly/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func putState(ctx context.Context, tx db.DBTX, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, '2025-06-07T09:00:00Z')`, key, value)
	return err
}

func stateExists(t *testing.T, database *sql.DB, key string) bool {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM local_state WHERE key = ?`, key).Scan(&n))
	return n == 1
}

func TestWithinTx_CommitsEveryStatement(t *testing.T) {
	database := openMemDB(t)
	uow := db.NewSQLiteUnitOfWork(database)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := putState(ctx, tx, "a", "1"); err != nil {
			return err
		}
		return putState(ctx, tx, "b", "2")
	})
	require.NoError(t, err)
	assert.True(t, stateExists(t, database, "a"))
	assert.True(t, stateExists(t, database, "b"))
}

func TestWithinTx_ErrorRollsBack(t *testing.T) {
	database := openMemDB(t)
	uow := db.NewSQLiteUnitOfWork(database)
	boom := errors.New("boom")

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := putState(ctx, tx, "a", "1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, stateExists(t, database, "a"))
}

func TestWithinTx_ConstraintViolationRollsBackEarlierWrites(t *testing.T) {
	database := openMemDB(t)
	uow := db.NewSQLiteUnitOfWork(database)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := putState(ctx, tx, "a", "1"); err != nil {
			return err
		}
		return putState(ctx, tx, "a", "again")
	})
	require.Error(t, err)
	assert.False(t, stateExists(t, database, "a"))
}

func TestWithinTx_PanicRollsBackAndRepanics(t *testing.T) {
	database := openMemDB(t)
	uow := db.NewSQLiteUnitOfWork(database)

	assert.PanicsWithValue(t, "boom", func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = putState(ctx, tx, "a", "1")
			panic("boom")
		})
	})
	assert.False(t, stateExists(t, database, "a"))
}
