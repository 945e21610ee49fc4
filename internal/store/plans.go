package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/google/uuid"
)

// LoadPlans fetches the user's plans. The backend materializes a default
// plan for a user with none, so this means load-or-initialize. Queued
// offline actions are laid over the result so unsynced edits survive a
// reload. Failures keep the current plans and only set State.Error.
func (s *Store) LoadPlans(ctx context.Context, userID string) {
	s.mu.Lock()
	if strings.TrimSpace(userID) == "" {
		_ = s.failLocked(ErrUserRequired)
		s.mu.Unlock()
		return
	}
	s.userID = userID
	s.state.Loading = true
	s.state.Error = ""
	s.notifyLocked()
	s.mu.Unlock()

	plans, err := s.gateway.ListPlans(ctx, userID)
	var actions []domain.OfflineAction
	if err == nil {
		actions, err = s.queue.List(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.state.Error = MsgLoadFailed
		s.commitLocked()
		return
	}

	loaded := overlay(plans, actions, userID)
	for _, p := range s.state.Plans {
		if p.IsTemporary() {
			loaded = append(loaded, p.Clone())
		}
	}
	// A delete still in flight keeps the plan out of the reloaded list.
	kept := loaded[:0]
	for _, p := range loaded {
		if !s.deleting[p.ID] {
			kept = append(kept, p)
		}
	}
	loaded = kept

	s.base = make(map[string]domain.Plan, len(loaded))
	for i, p := range loaded {
		s.base[p.ID] = p.Clone()
		// Writes still on their way to the server outrank the copy just
		// read; base stays the server's so a failing write reverts to it.
		fields := s.inflightFieldsLocked(p.ID)
		if j := s.planIndexLocked(p.ID); j >= 0 && len(fields) > 0 {
			loaded[i] = s.state.Plans[j].Document().Only(fields...).Apply(p)
		}
	}
	s.state.Plans = loaded
	s.unconfirmed = make(map[string]bool)
	s.pending = make(map[string]bool)
	for _, a := range actions {
		if a.UserID != "" && a.UserID != userID {
			continue
		}
		if a.PlanID != "" {
			s.pending[a.PlanID] = true
		}
		if a.Type == domain.ActionCreate {
			s.unconfirmed[a.PlanID] = true
		}
	}
	if s.planIndexLocked(s.state.ActivePlanID) < 0 {
		s.state.ActivePlanID = firstPlanID(loaded)
	}
	s.commitLocked()
}

// overlay applies queued actions of userID on top of the server's plans.
func overlay(plans []domain.Plan, actions []domain.OfflineAction, userID string) []domain.Plan {
	out := domain.ClonePlans(plans)
	if out == nil {
		out = []domain.Plan{}
	}
	for _, a := range actions {
		if a.UserID != "" && a.UserID != userID {
			continue
		}
		idx := -1
		for i, p := range out {
			if p.ID == a.PlanID {
				idx = i
				break
			}
		}
		switch a.Type {
		case domain.ActionCreate:
			if idx < 0 && a.Data != nil {
				p := a.Data.Apply(domain.NewPlan(a.PlanID, "", ""))
				out = append(out, p)
			}
		case domain.ActionUpdate:
			if idx >= 0 && a.Data != nil {
				out[idx] = a.Data.Apply(out[idx])
			}
		case domain.ActionDelete:
			if idx >= 0 {
				out = append(out[:idx], out[idx+1:]...)
			}
		}
	}
	return out
}

// AddPlan inserts a new plan with two empty weekend days and makes it
// active. While the create call is in flight the plan carries a temp_ ID;
// offline it gets a permanent client ID instead. The returned ID is the
// one assigned now and may be replaced by the server's.
func (s *Store) AddPlan(name, color string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return "", s.failLocked(domain.ErrNameRequired)
	}
	if s.userID == "" {
		return "", s.failLocked(ErrUserRequired)
	}

	id := domain.TempIDPrefix + uuid.New().String()
	if !s.onlineLocked() {
		id = uuid.New().String()
	}
	plan := domain.NewPlan(id, name, color)
	s.state.Plans = append(s.state.Plans, plan)
	s.state.ActivePlanID = id
	s.state.Error = ""
	doc := plan.Document()
	rev := s.stampLocked(id, doc.Fields())
	s.commitLocked()

	s.scheduleLocked(job{
		op:     "addPlan",
		kind:   domain.ActionCreate,
		planID: id,
		update: domain.PlanUpdate{Name: doc.Name, Color: doc.Color},
		rev:    rev,
	})
	return id, nil
}

// RemovePlan removes a plan; if it was active the first remaining plan
// becomes active. Deletion is terminal for every continuation still in
// flight for the plan.
func (s *Store) RemovePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.planIndexLocked(id)
	if i < 0 {
		return s.failLocked(fmt.Errorf("%w: %s", ErrPlanNotFound, id))
	}
	removed := s.state.Plans[i].Clone()
	wasActive := s.state.ActivePlanID == id
	s.state.Plans = append(s.state.Plans[:i], s.state.Plans[i+1:]...)
	if wasActive {
		s.state.ActivePlanID = firstPlanID(s.state.Plans)
	}
	s.state.Error = ""
	s.deleting[id] = true
	s.commitLocked()

	s.scheduleLocked(job{
		op:          "removePlan",
		kind:        domain.ActionDelete,
		planID:      id,
		removed:     removed,
		removedAt:   i,
		wasActive:   wasActive,
		activeAfter: s.state.ActivePlanID,
	})
	return nil
}

// UpdatePlan shallow-merges u into the plan: every field u sets replaces
// the plan's field wholesale.
func (s *Store) UpdatePlan(id string, u domain.PlanUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked("updatePlan", id, u)
}

// SetActivePlan selects the plan the day and activity operations act on.
func (s *Store) SetActivePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planIndexLocked(id) < 0 {
		return s.failLocked(fmt.Errorf("%w: %s", ErrPlanNotFound, id))
	}
	s.state.ActivePlanID = id
	s.commitLocked()
	return nil
}

// SetCategory persists the category of the active plan.
func (s *Store) SetCategory(c domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := domain.ParseCategory(string(c)); err != nil {
		return s.failLocked(err)
	}
	return s.updateLocked("setCategory", s.state.ActivePlanID, domain.PlanUpdate{Category: &c})
}

// updateLocked validates u, applies it in memory, stamps the fields it
// writes and schedules its persistence. Every mutator funnels through here.
func (s *Store) updateLocked(op, id string, u domain.PlanUpdate) error {
	if id == "" {
		return s.failLocked(ErrNoActivePlan)
	}
	i := s.planIndexLocked(id)
	if i < 0 {
		return s.failLocked(fmt.Errorf("%w: %s", ErrPlanNotFound, id))
	}
	if u.IsEmpty() {
		return s.failLocked(ErrEmptyUpdate)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return s.failLocked(domain.ErrNameRequired)
	}
	if u.Category != nil {
		if _, err := domain.ParseCategory(string(*u.Category)); err != nil {
			return s.failLocked(err)
		}
	}
	if u.Schedule != nil {
		if err := u.Schedule.Validate(); err != nil {
			return s.failLocked(err)
		}
	}

	u = u.Clone()
	s.state.Plans[i] = u.Apply(s.state.Plans[i])
	s.state.Error = ""
	rev := s.stampLocked(id, u.Fields())
	s.commitLocked()

	s.scheduleLocked(job{
		op:     op,
		kind:   domain.ActionUpdate,
		planID: id,
		update: u,
		rev:    rev,
	})
	return nil
}

// activeScheduleLocked returns the active plan's schedule for editing.
func (s *Store) activeScheduleLocked() (string, domain.Schedule, error) {
	id := s.state.ActivePlanID
	if id == "" {
		return "", nil, s.failLocked(ErrNoActivePlan)
	}
	i := s.planIndexLocked(id)
	if i < 0 {
		return "", nil, s.failLocked(fmt.Errorf("%w: %s", ErrPlanNotFound, id))
	}
	return id, s.state.Plans[i].Schedule, nil
}

// commitScheduleLocked persists a schedule computed from the active plan.
func (s *Store) commitScheduleLocked(op, id string, sched domain.Schedule, err error) error {
	if err != nil {
		return s.failLocked(err)
	}
	return s.updateLocked(op, id, domain.PlanUpdate{Schedule: &sched})
}
