package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func act(id string) ScheduledActivity {
	return ScheduledActivity{InstanceID: id, ActivityID: "2", Name: "Hike", Time: "10:00", Vibe: Vibe{ID: "happy", Name: "Happy"}}
}

func instanceIDs(acts []ScheduledActivity) []string {
	ids := make([]string, 0, len(acts))
	for _, a := range acts {
		ids = append(ids, a.InstanceID)
	}
	return ids
}

func TestNormalizeDayKey(t *testing.T) {
	cases := map[string]string{
		"Saturday":         "saturday",
		"  Long   Weekend ": "long_weekend",
		"Bank Holiday":     "bank_holiday",
		"friday\tnight":    "friday_night",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDayKey(in), "input %q", in)
	}
}

func TestSchedule_JSONPreservesDayOrder(t *testing.T) {
	raw := `{"sunday":[],"saturday":[{"instanceId":"a1","id":"2","name":"Hike","time":"10:00","vibe":{"id":"happy","name":"Happy"}}],"monday":[]}`

	var s Schedule
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, []string{"sunday", "saturday", "monday"}, s.Keys())
	assert.Equal(t, []string{"a1"}, instanceIDs(s[1].Activities))
	assert.NotNil(t, s[0].Activities, "empty days decode to empty, not nil, slices")

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
	assert.Equal(t, raw[:20], string(out)[:20], "key order survives re-encoding")
}

func TestSchedule_AddActivityRequiresExistingDay(t *testing.T) {
	s := DefaultSchedule()

	_, err := s.AddActivity("monday", act("a1"))
	assert.ErrorIs(t, err, ErrDayNotFound)

	out, err := s.AddActivity("Saturday", act("a1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, instanceIDs(out[0].Activities))
	assert.Empty(t, s[0].Activities, "receiver is not modified")
}

func TestSchedule_AddActivityRejectsDuplicateInstanceAcrossDays(t *testing.T) {
	s, err := DefaultSchedule().AddActivity("saturday", act("a1"))
	require.NoError(t, err)

	_, err = s.AddActivity("sunday", act("a1"))
	assert.ErrorIs(t, err, ErrDuplicateInstance)
}

func TestSchedule_ScenarioAddThenMoveAcrossDays(t *testing.T) {
	s, err := DefaultSchedule().AddActivity("saturday", act("a1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, instanceIDs(s[0].Activities))
	assert.Empty(t, s[1].Activities)

	s, moved, err := s.MoveActivity("a1", "saturday", "sunday", 0)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Empty(t, s[0].Activities)
	assert.Equal(t, []string{"a1"}, instanceIDs(s[1].Activities))
}

func TestSchedule_MoveActivityPreservesCount(t *testing.T) {
	s := DefaultSchedule()
	var err error
	for _, id := range []string{"a1", "a2", "a3"} {
		s, err = s.AddActivity("saturday", act(id))
		require.NoError(t, err)
	}
	s, err = s.AddActivity("sunday", act("b1"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		toIndex int
		want    []string
	}{
		{"front", 0, []string{"a2", "b1"}},
		{"end", 1, []string{"b1", "a2"}},
		{"append sentinel", AppendIndex, []string{"b1", "a2"}},
		{"out of range appends", 99, []string{"b1", "a2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, moved, err := s.MoveActivity("a2", "saturday", "sunday", tc.toIndex)
			require.NoError(t, err)
			assert.True(t, moved)
			assert.Equal(t, tc.want, instanceIDs(out[1].Activities))
			assert.Equal(t, []string{"a1", "a3"}, instanceIDs(out[0].Activities))
			assert.Equal(t, s.ActivityCount(), out.ActivityCount())
			assert.NoError(t, out.Validate())
		})
	}
}

func TestSchedule_MoveActivityWithinSameDay(t *testing.T) {
	s := DefaultSchedule()
	var err error
	for _, id := range []string{"a1", "a2", "a3"} {
		s, err = s.AddActivity("saturday", act(id))
		require.NoError(t, err)
	}

	out, moved, err := s.MoveActivity("a3", "saturday", "saturday", 0)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"a3", "a1", "a2"}, instanceIDs(out[0].Activities))
}

func TestSchedule_MoveActivityMissingIsNoop(t *testing.T) {
	s := DefaultSchedule()
	out, moved, err := s.MoveActivity("ghost", "saturday", "sunday", 0)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, s, out)
}

func TestSchedule_MoveDayRoundTrip(t *testing.T) {
	s := DefaultSchedule()
	s, _, _ = s.AddDay("Monday")
	s, _ = s.AddActivity("sunday", act("a1"))

	swapped, err := s.MoveDay("saturday", "sunday")
	require.NoError(t, err)
	assert.Equal(t, []string{"sunday", "saturday", "monday"}, swapped.Keys())

	restored, err := swapped.MoveDay("sunday", "saturday")
	require.NoError(t, err)
	assert.Equal(t, s, restored)

	far, err := s.MoveDay("saturday", "monday")
	require.NoError(t, err)
	assert.Equal(t, []string{"sunday", "monday", "saturday"}, far.Keys())
	assert.Equal(t, []string{"a1"}, instanceIDs(far[0].Activities), "activities travel with their day")

	back, err := far.MoveDay("saturday", "sunday")
	require.NoError(t, err)
	assert.Equal(t, s.Keys(), back.Keys())
}

func TestSchedule_AddDayBounds(t *testing.T) {
	s := DefaultSchedule()

	same, added, err := s.AddDay("Saturday")
	require.NoError(t, err)
	assert.False(t, added, "existing day is a no-op")
	assert.Len(t, same, 2)

	s, _, err = s.AddDay("Friday")
	require.NoError(t, err)
	s, _, err = s.AddDay("Monday")
	require.NoError(t, err)
	assert.Len(t, s, MaxDays)

	_, _, err = s.AddDay("Tuesday")
	assert.ErrorIs(t, err, ErrTooManyDays)

	_, _, err = s.AddDay("   ")
	assert.ErrorIs(t, err, ErrDayNameRequired)
}

func TestSchedule_RemoveDayKeepsOthers(t *testing.T) {
	s, err := DefaultSchedule().AddActivity("saturday", act("a1"))
	require.NoError(t, err)

	out, err := s.RemoveDay("sunday")
	require.NoError(t, err)
	assert.Equal(t, []string{"saturday"}, out.Keys())
	assert.Equal(t, []string{"a1"}, instanceIDs(out[0].Activities))

	_, err = out.RemoveDay("saturday")
	assert.ErrorIs(t, err, ErrLastDay)

	_, err = s.RemoveDay("friday")
	assert.ErrorIs(t, err, ErrDayNotFound)
}

func TestSchedule_ReorderRequiresPermutation(t *testing.T) {
	s := DefaultSchedule()
	var err error
	for _, id := range []string{"a1", "a2"} {
		s, err = s.AddActivity("saturday", act(id))
		require.NoError(t, err)
	}

	out, err := s.ReorderActivities("saturday", []ScheduledActivity{act("a2"), act("a1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, instanceIDs(out[0].Activities))

	_, err = s.ReorderActivities("saturday", []ScheduledActivity{act("a1"), act("a1")})
	assert.ErrorIs(t, err, ErrNotPermutation)

	_, err = s.ReorderActivities("saturday", []ScheduledActivity{act("a1")})
	assert.ErrorIs(t, err, ErrNotPermutation)
}

func TestSchedule_UpdateAndRemoveActivity(t *testing.T) {
	s, err := DefaultSchedule().AddActivity("saturday", act("a1"))
	require.NoError(t, err)

	edited := act("a1")
	edited.Time = "14:30"
	edited.Location = "Griffith Park"
	out, err := s.UpdateActivity("saturday", edited)
	require.NoError(t, err)
	assert.Equal(t, "14:30", out[0].Activities[0].Time)
	assert.Equal(t, "10:00", s[0].Activities[0].Time)

	_, err = s.UpdateActivity("saturday", act("ghost"))
	assert.ErrorIs(t, err, ErrActivityNotFound)

	same, removed, err := out.RemoveActivity("saturday", "ghost")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, same[0].Activities, 1)

	out, removed, err = out.RemoveActivity("saturday", "a1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, out[0].Activities)
}

func TestSchedule_CloneIsDeep(t *testing.T) {
	a := act("a1")
	a.LocationData = &LocationData{Name: "Beach", Coordinates: &Coordinates{Lat: 1, Lng: 2}}
	s, err := DefaultSchedule().AddActivity("saturday", a)
	require.NoError(t, err)

	c := s.Clone()
	c[0].Activities[0].LocationData.Coordinates.Lat = 42
	assert.Equal(t, 1.0, s[0].Activities[0].LocationData.Coordinates.Lat)
}
