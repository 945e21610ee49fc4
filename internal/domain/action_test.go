package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCollapseActions(t *testing.T) {
	t0 := time.UnixMilli(1_000)
	t1 := time.UnixMilli(2_000)
	plan := NewPlan("p1", "Trip", "red")
	lazy := CategoryLazy

	create := NewCreateAction("u1", plan, t0)
	create.ID = "q1"
	update := NewUpdateAction("u1", "p1", PlanUpdate{Category: &lazy}, t1)
	del := NewDeleteAction("u1", "p1", t1)

	t.Run("create absorbs update", func(t *testing.T) {
		merged, keep := CollapseActions(create, update)
		require.True(t, keep)
		assert.Equal(t, ActionCreate, merged.Type)
		assert.Equal(t, "q1", merged.ID)
		assert.Equal(t, "Trip", *merged.Data.Name)
		assert.Equal(t, CategoryLazy, *merged.Data.Category)
		assert.Equal(t, t1.UnixMilli(), merged.Timestamp)
	})

	t.Run("create then delete cancels", func(t *testing.T) {
		_, keep := CollapseActions(create, del)
		assert.False(t, keep)
	})

	t.Run("updates merge field by field", func(t *testing.T) {
		first := NewUpdateAction("u1", "p1", PlanUpdate{Name: strPtr("Old")}, t0)
		first.ID = "q2"
		second := NewUpdateAction("u1", "p1", PlanUpdate{Name: strPtr("New"), Color: strPtr("blue")}, t1)
		third := NewUpdateAction("u1", "p1", PlanUpdate{Category: &lazy}, t1)

		merged, keep := CollapseActions(first, second)
		require.True(t, keep)
		merged, keep = CollapseActions(merged, third)
		require.True(t, keep)
		assert.Equal(t, "q2", merged.ID)
		assert.Equal(t, "New", *merged.Data.Name)
		assert.Equal(t, "blue", *merged.Data.Color)
		assert.Equal(t, CategoryLazy, *merged.Data.Category)
	})

	t.Run("delete supersedes update", func(t *testing.T) {
		u := update
		u.ID = "q3"
		merged, keep := CollapseActions(u, del)
		require.True(t, keep)
		assert.Equal(t, ActionDelete, merged.Type)
		assert.Equal(t, "q3", merged.ID)
		assert.Nil(t, merged.Data)
	})

	t.Run("update after delete stays deleted", func(t *testing.T) {
		merged, keep := CollapseActions(del, update)
		require.True(t, keep)
		assert.Equal(t, ActionDelete, merged.Type)
	})
}

func TestOfflineAction_JSONShape(t *testing.T) {
	a := NewDeleteAction("u 1", "p1", time.UnixMilli(1234))
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "DELETE", raw["type"])
	assert.Equal(t, "DELETE", raw["method"])
	assert.Equal(t, "/api/plans?planId=p1&userId=u+1", raw["endpoint"])
	assert.Equal(t, "p1", raw["planId"])
	assert.EqualValues(t, 1234, raw["timestamp"])
	assert.NotContains(t, raw, "data")
}

func TestPlanUpdate_ApplyIsShallowOverwrite(t *testing.T) {
	p := NewPlan("p1", "Trip", "red")
	p.Schedule, _ = p.Schedule.AddActivity("saturday", act("a1"))

	replacement := Schedule{{Key: "friday", Activities: []ScheduledActivity{}}}
	out := PlanUpdate{Schedule: &replacement}.Apply(p)

	assert.Equal(t, []string{"friday"}, out.Schedule.Keys(), "schedule is replaced wholesale")
	assert.Equal(t, "Trip", out.Name)
	assert.Equal(t, []string{"saturday", "sunday"}, p.Schedule.Keys())
}

func TestPlanUpdate_FieldsAndOnly(t *testing.T) {
	lazy := CategoryLazy
	s := DefaultSchedule()
	u := PlanUpdate{Name: strPtr("x"), Category: &lazy, Schedule: &s}

	assert.Equal(t, []Field{FieldName, FieldCategory, FieldSchedule}, u.Fields())
	only := u.Only(FieldCategory)
	assert.Equal(t, []Field{FieldCategory}, only.Fields())
	assert.True(t, PlanUpdate{}.IsEmpty())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("foodie")
	require.NoError(t, err)
	assert.Equal(t, CategoryFoodie, c)

	_, err = ParseCategory("boring")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}
