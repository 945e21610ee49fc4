package repository

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestActionQueue_EnqueueAndList_PreservesOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	// Later timestamp enqueued first still replays first.
	_, _, err := q.Enqueue(ctx, domain.NewDeleteAction("u1", "p2", t0.Add(time.Minute)))
	require.NoError(t, err)
	_, _, err = q.Enqueue(ctx, domain.NewUpdateAction("u1", "p1", domain.PlanUpdate{Name: strPtr("A")}, t0))
	require.NoError(t, err)

	actions, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "p2", actions[0].PlanID)
	assert.Equal(t, domain.ActionDelete, actions[0].Type)
	assert.Equal(t, "p1", actions[1].PlanID)
	require.NotNil(t, actions[1].Data)
	assert.Equal(t, "A", *actions[1].Data.Name)
	assert.NotEmpty(t, actions[1].ID)
}

func TestActionQueue_Enqueue_CollapsesPerPlan(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	first, kept, err := q.Enqueue(ctx, domain.NewUpdateAction("u1", "p1", domain.PlanUpdate{Name: strPtr("A")}, t0))
	require.NoError(t, err)
	require.True(t, kept)

	color := "#ff0000"
	second, kept, err := q.Enqueue(ctx, domain.NewUpdateAction("u1", "p1", domain.PlanUpdate{Color: &color}, t0.Add(time.Second)))
	require.NoError(t, err)
	require.True(t, kept)
	assert.Equal(t, first.ID, second.ID, "collapsed action keeps its identity")

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.GetByPlan(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "A", *got.Data.Name)
	assert.Equal(t, color, *got.Data.Color)
	assert.Equal(t, t0.Add(time.Second).UnixMilli(), got.Timestamp)
}

func TestActionQueue_Enqueue_CreateThenDeleteCancels(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	plan := testutil.NewTestPlan("Trip")
	_, _, err := q.Enqueue(ctx, domain.NewCreateAction("u1", plan, t0))
	require.NoError(t, err)

	_, kept, err := q.Enqueue(ctx, domain.NewDeleteAction("u1", plan.ID, t0.Add(time.Second)))
	require.NoError(t, err)
	assert.False(t, kept)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestActionQueue_Enqueue_RollsBackOnFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	q := NewSQLiteActionQueue(database)
	_, _, err := q.Enqueue(ctx, domain.NewUpdateAction("u1", "p1", domain.PlanUpdate{Name: strPtr("A")}, t0))
	require.NoError(t, err)

	boom := errors.New("disk full")
	failing := NewSQLiteActionQueueWithUoW(database, &testutil.FailingUoW{DB: database, FailOn: 1, Err: boom})
	_, _, err = failing.Enqueue(ctx, domain.NewDeleteAction("u1", "p1", t0.Add(time.Second)))
	require.ErrorIs(t, err, boom)

	got, err := q.GetByPlan(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUpdate, got.Type, "failed collapse leaves the queued action untouched")
}

func TestActionQueue_RemapPlan_RollsBackOnFailedInsert(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	q := NewSQLiteActionQueue(database)
	_, _, err := q.Enqueue(ctx, domain.NewUpdateAction("u1", "client-1", domain.PlanUpdate{Name: strPtr("A")}, t0))
	require.NoError(t, err)

	boom := errors.New("disk full")
	failing := NewSQLiteActionQueueWithUoW(database, &testutil.FailingUoW{DB: database, Match: "INSERT", FailOn: 1, Err: boom})
	require.ErrorIs(t, failing.RemapPlan(ctx, "client-1", "server-1"), boom)

	got, err := q.GetByPlan(ctx, "u1", "client-1")
	require.NoError(t, err, "the delete is rolled back with the failed insert")
	assert.Equal(t, "A", *got.Data.Name)
	_, err = q.GetByPlan(ctx, "u1", "server-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActionQueue_Promote(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	plan := testutil.NewTestPlan("Trip", testutil.WithCategory(domain.CategoryTravel))
	created, _, err := q.Enqueue(ctx, domain.NewCreateAction("u1", plan, t0))
	require.NoError(t, err)
	_, err = q.RecordFailure(ctx, created.ID, "boom")
	require.NoError(t, err)

	promoted, err := q.Promote(ctx, created.ID, "server-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, promoted.ID)
	assert.Equal(t, domain.ActionUpdate, promoted.Type)
	assert.Equal(t, http.MethodPut, promoted.Method)
	assert.Equal(t, "server-1", promoted.PlanID)
	assert.Zero(t, promoted.Attempts)
	require.NotNil(t, promoted.Data.Category)
	assert.Equal(t, domain.CategoryTravel, *promoted.Data.Category)

	_, err = q.GetByPlan(ctx, "u1", plan.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActionQueue_RemapPlan_CollapsesIntoTarget(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, domain.NewUpdateAction("u1", "server-1", domain.PlanUpdate{Name: strPtr("A")}, t0))
	require.NoError(t, err)
	_, _, err = q.Enqueue(ctx, domain.NewDeleteAction("u1", "client-1", t0.Add(time.Second)))
	require.NoError(t, err)

	require.NoError(t, q.RemapPlan(ctx, "client-1", "server-1"))

	actions, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionDelete, actions[0].Type)
	assert.Equal(t, "server-1", actions[0].PlanID)
	assert.Contains(t, actions[0].Endpoint, "planId=server-1")
}

func TestActionQueue_RemapPlan_NothingQueued(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)

	assert.NoError(t, q.RemapPlan(context.Background(), "missing", "other"))
}

func TestActionQueue_RecordFailure(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	a, _, err := q.Enqueue(ctx, domain.NewDeleteAction("u1", "p1", t0))
	require.NoError(t, err)

	n, err := q.RecordFailure(ctx, a.ID, "500 Internal Server Error")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = q.RecordFailure(ctx, a.ID, "502 Bad Gateway")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := q.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "502 Bad Gateway", got.LastError)

	_, err = q.RecordFailure(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActionQueue_PlanIDsRemoveClear(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	a, _, err := q.Enqueue(ctx, domain.NewDeleteAction("u1", "p1", t0))
	require.NoError(t, err)
	_, _, err = q.Enqueue(ctx, domain.NewDeleteAction("u1", "p2", t0))
	require.NoError(t, err)

	ids, err := q.PlanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	require.NoError(t, q.Remove(ctx, a.ID))
	_, err = q.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, q.Clear(ctx))
	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestActionQueue_Enqueue_KeepsUsersApart(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, domain.NewUpdateAction("alice", domain.DefaultPlanID, domain.PlanUpdate{Name: strPtr("Alice's")}, t0))
	require.NoError(t, err)
	_, _, err = q.Enqueue(ctx, domain.NewDeleteAction("bob", domain.DefaultPlanID, t0.Add(time.Second)))
	require.NoError(t, err)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "same plan ID under different users never collapses")

	alice, err := q.GetByPlan(ctx, "alice", domain.DefaultPlanID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUpdate, alice.Type)
	bob, err := q.GetByPlan(ctx, "bob", domain.DefaultPlanID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionDelete, bob.Type)
	_, err = q.GetByPlan(ctx, "carol", domain.DefaultPlanID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActionQueue_Ack_KeepsRewrittenAction(t *testing.T) {
	db := testutil.NewTestDB(t)
	q := NewSQLiteActionQueue(db)
	ctx := context.Background()

	delivered, _, err := q.Enqueue(ctx, domain.NewUpdateAction("u1", "p1", domain.PlanUpdate{Name: strPtr("A")}, t0))
	require.NoError(t, err)

	// A later edit collapses into the same row while delivery is in flight.
	_, _, err = q.Enqueue(ctx, domain.NewUpdateAction("u1", "p1", domain.PlanUpdate{Color: strPtr("red")}, t0.Add(time.Second)))
	require.NoError(t, err)

	acked, err := q.Ack(ctx, delivered)
	require.NoError(t, err)
	assert.False(t, acked)
	got, err := q.Get(ctx, delivered.ID)
	require.NoError(t, err)
	assert.Equal(t, "red", *got.Data.Color)

	acked, err = q.Ack(ctx, *got)
	require.NoError(t, err)
	assert.True(t, acked)
	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	acked, err = q.Ack(ctx, *got)
	require.NoError(t, err)
	assert.True(t, acked, "already gone counts as delivered")
}
