package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/weekendly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCache_PutGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	cache := NewSQLitePlanCache(db)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "u1", ListKey, []byte(`[]`)))
	require.NoError(t, cache.Put(ctx, "u1", "p1", []byte(`{"id":"p1"}`)))
	require.NoError(t, cache.Put(ctx, "u1", "p1", []byte(`{"id":"p1","name":"B"}`)))

	list, err := cache.Get(ctx, "u1", ListKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(list.Body))
	assert.False(t, list.CachedAt.IsZero())

	one, err := cache.Get(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p1","name":"B"}`, string(one.Body))

	_, err = cache.Get(ctx, "u2", "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlanCache_DeleteAndClear(t *testing.T) {
	db := testutil.NewTestDB(t)
	cache := NewSQLitePlanCache(db)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "u1", "p1", []byte(`{}`)))
	require.NoError(t, cache.Put(ctx, "u1", "p2", []byte(`{}`)))

	require.NoError(t, cache.Delete(ctx, "u1", "p1"))
	_, err := cache.Get(ctx, "u1", "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cache.Clear(ctx))
	_, err = cache.Get(ctx, "u1", "p2")
	assert.ErrorIs(t, err, ErrNotFound)
}
