package store

// AddDay adds an empty day to the active plan. A day that already exists
// is left alone; a fifth day is rejected.
func (s *Store) AddDay(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return err
	}
	next, added, err := sched.AddDay(name)
	if err != nil {
		return s.failLocked(err)
	}
	if !added {
		return nil
	}
	return s.commitScheduleLocked("addDay", id, next, nil)
}

// RemoveDay deletes a day and all its activities. The last day cannot be
// removed.
func (s *Store) RemoveDay(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return err
	}
	next, err := sched.RemoveDay(name)
	return s.commitScheduleLocked("removeDay", id, next, err)
}

// MoveDay moves dragged to target's position. Day contents are untouched.
func (s *Store) MoveDay(dragged, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, sched, err := s.activeScheduleLocked()
	if err != nil {
		return err
	}
	next, err := sched.MoveDay(dragged, target)
	return s.commitScheduleLocked("moveDay", id, next, err)
}
