package store

import (
	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/google/uuid"
)

// AddActivity appends a to an existing day of the active plan. An empty
// instance ID is filled with a fresh one; a duplicate anywhere in the plan
// is rejected. It returns the instance ID used.
func (s *Store) AddActivity(day string, a domain.ScheduledActivity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return "", err
	}
	if a.InstanceID == "" {
		a.InstanceID = uuid.New().String()
	}
	next, err := sched.AddActivity(day, a)
	if err := s.commitScheduleLocked("addActivity", id, next, err); err != nil {
		return "", err
	}
	return a.InstanceID, nil
}

// RemoveActivity drops the activity with instanceID from day. An instance
// not on day is a no-op.
func (s *Store) RemoveActivity(day, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return err
	}
	next, removed, err := sched.RemoveActivity(day, instanceID)
	if err != nil {
		return s.failLocked(err)
	}
	if !removed {
		return nil
	}
	return s.commitScheduleLocked("removeActivity", id, next, nil)
}

// UpdateActivity replaces the entry of day with the same instance ID.
func (s *Store) UpdateActivity(day string, updated domain.ScheduledActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return err
	}
	next, err := sched.UpdateActivity(day, updated)
	return s.commitScheduleLocked("updateActivity", id, next, err)
}

// ReorderActivities replaces day's sequence with seq, which must be a
// permutation of the day's current activities.
func (s *Store) ReorderActivities(day string, seq []domain.ScheduledActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return err
	}
	next, err := sched.ReorderActivities(day, seq)
	return s.commitScheduleLocked("reorderActivities", id, next, err)
}

// MoveActivityBetweenDays moves an activity to toDay at toIndex, or to the
// end when toIndex is out of range (domain.AppendIndex). Both days change
// in one update. An activity not on fromDay is a no-op.
func (s *Store) MoveActivityBetweenDays(instanceID, fromDay, toDay string, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return err
	}
	next, moved, err := sched.MoveActivity(instanceID, fromDay, toDay, toIndex)
	if err != nil {
		return s.failLocked(err)
	}
	if !moved {
		return nil
	}
	return s.commitScheduleLocked("moveActivityBetweenDays", id, next, nil)
}
