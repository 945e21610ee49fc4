package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/weekendly/internal/db"
	"github.com/stretchr/testify/require"
)

// NewTestDB opens a migrated in-memory database. The pool holds a single
// connection, so the queue, the local snapshot and the plan cache of one
// test all see the same tables, as they do in the on-disk file.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { _ = database.Close() })
	return database
}
