package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/weekendly/internal/db"
	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConcurrentTestDB creates a file-backed SQLite database in a temp directory
// so the test exercises the same WAL setup the CLI runs with.
func newConcurrentTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	database, err := db.OpenDB(filepath.Join(dir, "concurrent_test.db"))
	require.NoError(t, err, "failed to create concurrent test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// TestConcurrentEnqueue_OneActionPerPlan verifies that collapsing holds when
// persistence goroutines race to enqueue for the same plans.
func TestConcurrentEnqueue_OneActionPerPlan(t *testing.T) {
	database := newConcurrentTestDB(t)
	q := NewSQLiteActionQueue(database)
	ctx := context.Background()

	const plans, writersPerPlan = 4, 10
	var wg sync.WaitGroup
	errs := make(chan error, plans*writersPerPlan)
	for p := 0; p < plans; p++ {
		for w := 0; w < writersPerPlan; w++ {
			wg.Add(1)
			go func(p, w int) {
				defer wg.Done()
				name := fmt.Sprintf("plan-%d-rev-%d", p, w)
				u := domain.PlanUpdate{Name: &name}
				at := time.Now().Add(time.Duration(w) * time.Millisecond)
				if _, _, err := q.Enqueue(ctx, domain.NewUpdateAction("u1", fmt.Sprintf("p%d", p), u, at)); err != nil {
					errs <- err
				}
			}(p, w)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, plans, n)

	ids, err := q.PlanIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p0", "p1", "p2", "p3"}, ids)
}
