package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

const (
	MinDays = 1
	MaxDays = 4

	// AppendIndex asks MoveActivity to place the activity at the end of the target day.
	AppendIndex = -1
)

// Day is one entry of a plan's schedule. Its position in the Schedule is the
// display order.
type Day struct {
	Key        string
	Activities []ScheduledActivity
}

// Schedule is the ordered day -> activities mapping of a plan. It is encoded
// as a JSON object whose key order is the day order.
//
// All mutating helpers are pure: they return a new Schedule and never touch
// the receiver's backing arrays.
type Schedule []Day

// NormalizeDayKey lowercases name and replaces whitespace runs with underscores.
func NormalizeDayKey(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), unicode.IsSpace)
	return strings.Join(fields, "_")
}

// DefaultSchedule returns the two empty weekend days every new plan starts with.
func DefaultSchedule() Schedule {
	return Schedule{
		{Key: "saturday", Activities: []ScheduledActivity{}},
		{Key: "sunday", Activities: []ScheduledActivity{}},
	}
}

// Clone returns a deep copy of s.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	for i, d := range s {
		acts := make([]ScheduledActivity, len(d.Activities))
		for j, a := range d.Activities {
			acts[j] = a.Clone()
		}
		out[i] = Day{Key: d.Key, Activities: acts}
	}
	return out
}

// Keys returns the day keys in display order.
func (s Schedule) Keys() []string {
	keys := make([]string, len(s))
	for i, d := range s {
		keys[i] = d.Key
	}
	return keys
}

// Index returns the position of the day with the given (already normalized) key, or -1.
func (s Schedule) Index(key string) int {
	for i, d := range s {
		if d.Key == key {
			return i
		}
	}
	return -1
}

// Activities returns the activities of the named day.
func (s Schedule) Activities(day string) ([]ScheduledActivity, bool) {
	i := s.Index(NormalizeDayKey(day))
	if i < 0 {
		return nil, false
	}
	return s[i].Activities, true
}

// FindActivity locates an activity by instance ID across every day.
func (s Schedule) FindActivity(instanceID string) (dayKey string, index int, ok bool) {
	for _, d := range s {
		for j, a := range d.Activities {
			if a.InstanceID == instanceID {
				return d.Key, j, true
			}
		}
	}
	return "", -1, false
}

// ActivityCount returns the number of scheduled activities across all days.
func (s Schedule) ActivityCount() int {
	n := 0
	for _, d := range s {
		n += len(d.Activities)
	}
	return n
}

// Validate checks the day-count bounds, key uniqueness and plan-wide
// instance ID uniqueness.
func (s Schedule) Validate() error {
	if len(s) < MinDays {
		return ErrLastDay
	}
	if len(s) > MaxDays {
		return ErrTooManyDays
	}
	keys := make(map[string]bool, len(s))
	instances := make(map[string]bool)
	for _, d := range s {
		if d.Key == "" {
			return ErrDayNameRequired
		}
		if keys[d.Key] {
			return fmt.Errorf("%w: %q", ErrDuplicateDay, d.Key)
		}
		keys[d.Key] = true
		for _, a := range d.Activities {
			if instances[a.InstanceID] {
				return fmt.Errorf("%w: %q", ErrDuplicateInstance, a.InstanceID)
			}
			instances[a.InstanceID] = true
		}
	}
	return nil
}

// AddDay appends an empty day. Adding a day that already exists is a no-op
// and reports added=false.
func (s Schedule) AddDay(name string) (out Schedule, added bool, err error) {
	key := NormalizeDayKey(name)
	if key == "" {
		return s, false, ErrDayNameRequired
	}
	if s.Index(key) >= 0 {
		return s, false, nil
	}
	if len(s) >= MaxDays {
		return s, false, ErrTooManyDays
	}
	out = s.Clone()
	out = append(out, Day{Key: key, Activities: []ScheduledActivity{}})
	return out, true, nil
}

// RemoveDay drops a day and every activity it held.
func (s Schedule) RemoveDay(name string) (Schedule, error) {
	i := s.Index(NormalizeDayKey(name))
	if i < 0 {
		return s, fmt.Errorf("%w: %q", ErrDayNotFound, name)
	}
	if len(s) <= MinDays {
		return s, ErrLastDay
	}
	out := s.Clone()
	return append(out[:i], out[i+1:]...), nil
}

// MoveDay removes dragged from its position and reinserts it at target's
// original position. Activities are untouched.
func (s Schedule) MoveDay(dragged, target string) (Schedule, error) {
	from := s.Index(NormalizeDayKey(dragged))
	if from < 0 {
		return s, fmt.Errorf("%w: %q", ErrDayNotFound, dragged)
	}
	to := s.Index(NormalizeDayKey(target))
	if to < 0 {
		return s, fmt.Errorf("%w: %q", ErrDayNotFound, target)
	}
	out := s.Clone()
	if from == to {
		return out, nil
	}
	day := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append(Schedule{day}, out[to:]...)...)
	return out, nil
}

// AddActivity appends a to an existing day. The instance ID must not be
// used anywhere else in the schedule.
func (s Schedule) AddActivity(day string, a ScheduledActivity) (Schedule, error) {
	i := s.Index(NormalizeDayKey(day))
	if i < 0 {
		return s, fmt.Errorf("%w: %q", ErrDayNotFound, day)
	}
	if _, _, exists := s.FindActivity(a.InstanceID); exists {
		return s, fmt.Errorf("%w: %q", ErrDuplicateInstance, a.InstanceID)
	}
	out := s.Clone()
	out[i].Activities = append(out[i].Activities, a.Clone())
	return out, nil
}

// RemoveActivity filters the activity with instanceID out of day. It
// reports false, with s unchanged, when day holds no such instance.
func (s Schedule) RemoveActivity(day, instanceID string) (Schedule, bool, error) {
	i := s.Index(NormalizeDayKey(day))
	if i < 0 {
		return s, false, fmt.Errorf("%w: %q", ErrDayNotFound, day)
	}
	out := s.Clone()
	kept := out[i].Activities[:0]
	for _, a := range out[i].Activities {
		if a.InstanceID != instanceID {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(s[i].Activities) {
		return s, false, nil
	}
	out[i].Activities = kept
	return out, true, nil
}

// UpdateActivity replaces the entry of day whose instance ID matches updated.
func (s Schedule) UpdateActivity(day string, updated ScheduledActivity) (Schedule, error) {
	i := s.Index(NormalizeDayKey(day))
	if i < 0 {
		return s, fmt.Errorf("%w: %q", ErrDayNotFound, day)
	}
	out := s.Clone()
	for j, a := range out[i].Activities {
		if a.InstanceID == updated.InstanceID {
			out[i].Activities[j] = updated.Clone()
			return out, nil
		}
	}
	return s, fmt.Errorf("%w: %q", ErrActivityNotFound, updated.InstanceID)
}

// ReorderActivities replaces day's sequence with seq, which must be a
// permutation of the current sequence (compared by instance ID).
func (s Schedule) ReorderActivities(day string, seq []ScheduledActivity) (Schedule, error) {
	i := s.Index(NormalizeDayKey(day))
	if i < 0 {
		return s, fmt.Errorf("%w: %q", ErrDayNotFound, day)
	}
	if !samePlacements(s[i].Activities, seq) {
		return s, ErrNotPermutation
	}
	out := s.Clone()
	acts := make([]ScheduledActivity, len(seq))
	for j, a := range seq {
		acts[j] = a.Clone()
	}
	out[i].Activities = acts
	return out, nil
}

// MoveActivity moves an activity from one day to another, inserting it at
// toIndex when 0 <= toIndex <= len(target) and appending otherwise. An
// activity that is not on the source day is a no-op (moved=false).
func (s Schedule) MoveActivity(instanceID, fromDay, toDay string, toIndex int) (out Schedule, moved bool, err error) {
	from := s.Index(NormalizeDayKey(fromDay))
	if from < 0 {
		return s, false, fmt.Errorf("%w: %q", ErrDayNotFound, fromDay)
	}
	to := s.Index(NormalizeDayKey(toDay))
	if to < 0 {
		return s, false, fmt.Errorf("%w: %q", ErrDayNotFound, toDay)
	}
	pos := -1
	for j, a := range s[from].Activities {
		if a.InstanceID == instanceID {
			pos = j
			break
		}
	}
	if pos < 0 {
		return s, false, nil
	}

	out = s.Clone()
	act := out[from].Activities[pos]
	out[from].Activities = append(out[from].Activities[:pos], out[from].Activities[pos+1:]...)

	target := out[to].Activities
	if toIndex < 0 || toIndex > len(target) {
		toIndex = len(target)
	}
	target = append(target, ScheduledActivity{})
	copy(target[toIndex+1:], target[toIndex:])
	target[toIndex] = act
	out[to].Activities = target
	return out, true, nil
}

func samePlacements(a, b []ScheduledActivity) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, x := range a {
		counts[x.InstanceID]++
	}
	for _, x := range b {
		counts[x.InstanceID]--
		if counts[x.InstanceID] < 0 {
			return false
		}
	}
	return true
}

// MarshalJSON encodes s as an object keyed by day, in day order.
func (s Schedule) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Key)
		if err != nil {
			return nil, fmt.Errorf("encoding day key: %w", err)
		}
		acts := d.Activities
		if acts == nil {
			acts = []ScheduledActivity{}
		}
		val, err := json.Marshal(acts)
		if err != nil {
			return nil, fmt.Errorf("encoding day %q: %w", d.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by day, keeping the document's key order.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding schedule: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding schedule: expected object")
	}
	out := Schedule{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding schedule key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decoding schedule: expected string key")
		}
		var acts []ScheduledActivity
		if err := dec.Decode(&acts); err != nil {
			return fmt.Errorf("decoding day %q: %w", key, err)
		}
		if acts == nil {
			acts = []ScheduledActivity{}
		}
		out = append(out, Day{Key: key, Activities: acts})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decoding schedule: %w", err)
	}
	*s = out
	return nil
}
