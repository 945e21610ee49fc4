package cli

import (
	"testing"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/store"
	"github.com/alexanderramin/weekendly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePlanID(t *testing.T) {
	st := store.State{
		ActivePlanID: "abc-123",
		Plans: []domain.Plan{
			testutil.NewTestPlan("Trip", testutil.WithPlanID("abc-123")),
			testutil.NewTestPlan("trip", testutil.WithPlanID("abd-456")),
			testutil.NewTestPlan("Lazy", testutil.WithPlanID("xyz-789")),
		},
	}

	tests := []struct {
		input   string
		want    string
		wantErr string
	}{
		{input: "", want: "abc-123"},
		{input: "xyz-789", want: "xyz-789"},
		{input: "LAZY", want: "xyz-789"},
		{input: "abd", want: "abd-456"},
		{input: "Trip", wantErr: "ambiguous"},
		{input: "ab", wantErr: "ambiguous"},
		{input: "nope", wantErr: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := resolvePlanID(st, tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePlanID_NoActivePlan(t *testing.T) {
	_, err := resolvePlanID(store.State{}, "")
	assert.ErrorIs(t, err, store.ErrNoActivePlan)
}

func TestResolveInstance(t *testing.T) {
	p := testutil.NewTestPlan("Trip",
		testutil.WithActivities("saturday",
			testutil.NewTestActivity("Brunch", testutil.WithInstanceID("aa11")),
			testutil.NewTestActivity("Hike", testutil.WithInstanceID("aa22"))),
		testutil.WithActivities("sunday",
			testutil.NewTestActivity("Movie", testutil.WithInstanceID("bb33"))))

	day, act, err := resolveInstance(p, "bb")
	require.NoError(t, err)
	assert.Equal(t, "sunday", day)
	assert.Equal(t, "Movie", act.Name)

	day, act, err = resolveInstance(p, "aa22")
	require.NoError(t, err)
	assert.Equal(t, "saturday", day)
	assert.Equal(t, "Hike", act.Name)

	_, _, err = resolveInstance(p, "aa")
	assert.ErrorContains(t, err, "ambiguous")
	_, _, err = resolveInstance(p, "zz")
	assert.ErrorContains(t, err, "not found")
	_, _, err = resolveInstance(p, "")
	assert.Error(t, err)
}

func TestValidateColor(t *testing.T) {
	for _, ok := range []string{"#fff", "#0000ff", "#A855F7"} {
		assert.NoError(t, validateColor(ok), ok)
	}
	for _, bad := range []string{"", "blue", "#ggg", "#12345", "0000ff"} {
		assert.Error(t, validateColor(bad), bad)
	}
}

func TestValidateClock(t *testing.T) {
	for _, ok := range []string{"", "00:00", "09:30", "23:59"} {
		assert.NoError(t, validateClock(ok), ok)
	}
	for _, bad := range []string{"9:30", "24:00", "12:60", "noon", "12:3a"} {
		assert.Error(t, validateClock(bad), bad)
	}
}

func TestFlagValues(t *testing.T) {
	var c categoryValue
	require.NoError(t, c.Set(" Foodie "))
	assert.True(t, c.set)
	assert.Equal(t, domain.CategoryFoodie, c.value)
	assert.Error(t, c.Set("sporty"))

	var v vibeValue
	require.NoError(t, v.Set("relaxed"))
	assert.Equal(t, "Relaxed", v.value.Name)
	assert.Error(t, v.Set("grumpy"))
}
