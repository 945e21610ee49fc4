package store

import (
	"context"
	"errors"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/google/uuid"
)

// job is the persistence half of one mutation. Jobs for the same plan run
// one at a time in mutation order.
type job struct {
	op     string
	kind   domain.ActionType
	planID string
	update domain.PlanUpdate
	rev    uint64

	// delete rollback
	removed     domain.Plan
	removedAt   int
	wasActive   bool
	activeAfter string
}

// scheduleLocked appends j to its plan's lane and starts it.
func (s *Store) scheduleLocked(j job) {
	prev := s.lanes[j.planID]
	done := make(chan struct{})
	s.lanes[j.planID] = done
	s.trackLocked(j.planID, j.update.Fields(), 1)
	s.wg.Add(1)
	go s.run(j, prev, done)
}

func (s *Store) run(j job, prev <-chan struct{}, done chan struct{}) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		id := s.resolveLocked(j.planID)
		if s.lanes[id] == done {
			delete(s.lanes, id)
		}
		s.trackLocked(id, j.update.Fields(), -1)
		s.mu.Unlock()
		close(done)
	}()
	if prev != nil {
		<-prev
	}

	start := s.now()
	var outcome Outcome
	var err error
	switch j.kind {
	case domain.ActionCreate:
		outcome, err = s.runCreate(j)
	case domain.ActionUpdate:
		outcome, err = s.runUpdate(j)
	case domain.ActionDelete:
		outcome, err = s.runDelete(j)
	}

	s.mu.Lock()
	id := s.resolveLocked(j.planID)
	s.mu.Unlock()
	s.observer.ObservePersist(s.ctx, PersistEvent{
		Op:        j.op,
		PlanID:    id,
		Outcome:   outcome,
		Duration:  s.now().Sub(start),
		Err:       err,
		StartedAt: start,
	})
}

func (s *Store) trackLocked(planID string, fields []domain.Field, delta int) {
	if len(fields) == 0 {
		return
	}
	m := s.inflight[planID]
	if m == nil {
		if delta < 0 {
			return
		}
		m = make(map[domain.Field]int)
		s.inflight[planID] = m
	}
	for _, f := range fields {
		if m[f] += delta; m[f] <= 0 {
			delete(m, f)
		}
	}
	if len(m) == 0 {
		delete(s.inflight, planID)
	}
}

type result int

const (
	resultOK result = iota
	resultOffline
	resultNotFound
	resultFailed
)

func classify(err error) result {
	switch {
	case err == nil:
		return resultOK
	case gateway.IsOffline(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resultOffline
	case errors.Is(err, gateway.ErrNotFound):
		return resultNotFound
	default:
		return resultFailed
	}
}

// mustQueueLocked reports whether a write for planID has to go through the
// offline queue: the network is down, the server does not know the plan
// yet, or older writes for it are still queued and must land first.
func (s *Store) mustQueueLocked(planID string) bool {
	return !s.onlineLocked() || s.pending[planID] || s.unconfirmed[planID]
}

func (s *Store) runUpdate(j job) (Outcome, error) {
	s.mu.Lock()
	id := s.resolveLocked(j.planID)
	if s.planIndexLocked(id) < 0 && !s.deleting[id] {
		s.mu.Unlock()
		return OutcomeSkipped, nil
	}
	userID := s.userID
	if s.mustQueueLocked(id) {
		s.mu.Unlock()
		return s.enqueue(domain.NewUpdateAction(userID, id, j.update, s.now()), j.update)
	}
	s.mu.Unlock()

	err := s.gateway.UpdatePlan(s.ctx, userID, id, j.update)

	switch classify(err) {
	case resultOK:
		s.mu.Lock()
		s.confirmLocked(id, j.update)
		s.mu.Unlock()
		return OutcomeSynced, nil
	case resultOffline:
		return s.enqueue(domain.NewUpdateAction(userID, id, j.update, s.now()), j.update)
	case resultNotFound:
		s.mu.Lock()
		s.state.Error = MsgPlanNotFound
		s.commitLocked()
		s.mu.Unlock()
		return OutcomeNotFound, err
	default:
		s.mu.Lock()
		s.rollbackFieldsLocked(id, j)
		s.state.Error = MsgUpdateFailed
		s.commitLocked()
		s.mu.Unlock()
		return OutcomeRolledBack, err
	}
}

// rollbackFieldsLocked reverts the fields j wrote to their last known
// server values, skipping fields a later mutation has written since. A
// plan that no longer exists stays gone.
func (s *Store) rollbackFieldsLocked(id string, j job) {
	i := s.planIndexLocked(id)
	base, ok := s.base[id]
	if i < 0 || !ok {
		return
	}
	revs := s.revs[id]
	var restore []domain.Field
	for _, f := range j.update.Fields() {
		if revs[f] == j.rev {
			restore = append(restore, f)
		}
	}
	if len(restore) == 0 {
		return
	}
	s.state.Plans[i] = base.Document().Only(restore...).Apply(s.state.Plans[i])
}

// confirmLocked records u as delivered (or durably queued) for planID.
func (s *Store) confirmLocked(planID string, u domain.PlanUpdate) {
	if b, ok := s.base[planID]; ok {
		s.base[planID] = u.Apply(b)
	}
}

func (s *Store) runCreate(j job) (Outcome, error) {
	s.mu.Lock()
	tempID := j.planID
	userID := s.userID
	online := s.onlineLocked()
	s.mu.Unlock()

	var (
		created domain.Plan
		err     = gateway.ErrOffline
	)
	if online {
		created, err = s.gateway.CreatePlan(s.ctx, userID, *j.update.Name, *j.update.Color)
	}

	switch classify(err) {
	case resultOK:
		s.mu.Lock()
		i := s.planIndexLocked(tempID)
		if i < 0 {
			// Removed while the create was in flight; the server copy must go too.
			s.forgetLocked(tempID)
			s.mu.Unlock()
			return s.compensateCreate(userID, created.ID)
		}
		s.renameLocked(tempID, created.ID)
		s.base[created.ID] = created.Clone()
		s.commitLocked()
		s.mu.Unlock()
		return OutcomeSynced, nil

	case resultOffline:
		s.mu.Lock()
		i := s.planIndexLocked(tempID)
		if i < 0 {
			s.forgetLocked(tempID)
			s.mu.Unlock()
			return OutcomeSkipped, nil
		}
		clientID := tempID
		if s.state.Plans[i].IsTemporary() {
			clientID = uuid.New().String()
			s.renameLocked(tempID, clientID)
			i = s.planIndexLocked(clientID)
		}
		s.unconfirmed[clientID] = true
		plan := s.state.Plans[i].Clone()
		s.base[clientID] = plan.Clone()
		s.mu.Unlock()
		return s.enqueue(domain.NewCreateAction(userID, plan, s.now()), domain.PlanUpdate{})

	default:
		s.mu.Lock()
		if i := s.planIndexLocked(tempID); i >= 0 {
			s.state.Plans = append(s.state.Plans[:i], s.state.Plans[i+1:]...)
			if s.state.ActivePlanID == tempID {
				s.state.ActivePlanID = firstPlanID(s.state.Plans)
			}
		}
		s.forgetLocked(tempID)
		s.state.Error = MsgCreateFailed
		s.commitLocked()
		s.mu.Unlock()
		return OutcomeRolledBack, err
	}
}

// compensateCreate deletes a server plan whose local counterpart was
// removed before the create call returned.
func (s *Store) compensateCreate(userID, serverID string) (Outcome, error) {
	err := s.gateway.DeletePlan(s.ctx, userID, serverID)
	switch classify(err) {
	case resultOK, resultNotFound:
		return OutcomeSkipped, nil
	case resultOffline:
		return s.enqueue(domain.NewDeleteAction(userID, serverID, s.now()), domain.PlanUpdate{})
	default:
		return OutcomeFailed, err
	}
}

func (s *Store) runDelete(j job) (Outcome, error) {
	s.mu.Lock()
	id := s.resolveLocked(j.planID)
	userID := s.userID
	if domain.IsTemporaryID(id) {
		// The create never reached the server, or its continuation already
		// cleaned up after it.
		s.forgetLocked(id)
		s.mu.Unlock()
		return OutcomeSkipped, nil
	}
	if s.mustQueueLocked(id) {
		s.mu.Unlock()
		outcome, err := s.enqueue(domain.NewDeleteAction(userID, id, s.now()), domain.PlanUpdate{})
		s.mu.Lock()
		s.forgetLocked(id)
		s.mu.Unlock()
		return outcome, err
	}
	s.mu.Unlock()

	err := s.gateway.DeletePlan(s.ctx, userID, id)

	switch classify(err) {
	case resultOK:
		s.mu.Lock()
		s.forgetLocked(id)
		s.mu.Unlock()
		return OutcomeSynced, nil
	case resultOffline:
		outcome, qerr := s.enqueue(domain.NewDeleteAction(userID, id, s.now()), domain.PlanUpdate{})
		s.mu.Lock()
		s.forgetLocked(id)
		s.mu.Unlock()
		return outcome, qerr
	case resultNotFound:
		s.mu.Lock()
		s.forgetLocked(id)
		s.state.Error = MsgPlanNotFound
		s.commitLocked()
		s.mu.Unlock()
		return OutcomeNotFound, err
	default:
		s.mu.Lock()
		delete(s.deleting, id)
		if s.planIndexLocked(id) < 0 {
			at := j.removedAt
			if at > len(s.state.Plans) {
				at = len(s.state.Plans)
			}
			restored := j.removed.Clone()
			restored.ID = id
			s.state.Plans = append(s.state.Plans[:at], append([]domain.Plan{restored}, s.state.Plans[at:]...)...)
			if j.wasActive && s.state.ActivePlanID == s.resolveLocked(j.activeAfter) {
				s.state.ActivePlanID = id
			}
		}
		s.state.Error = MsgDeleteFailed
		s.commitLocked()
		s.mu.Unlock()
		return OutcomeRolledBack, err
	}
}

// enqueue stores a for replay and marks its plan pending. queued is the part
// of the plan document the action now carries to the server.
func (s *Store) enqueue(a domain.OfflineAction, queued domain.PlanUpdate) (Outcome, error) {
	_, kept, err := s.queue.Enqueue(s.ctx, a)

	s.mu.Lock()
	if err != nil {
		s.state.Error = MsgQueueFailed
		s.commitLocked()
		s.mu.Unlock()
		return OutcomeFailed, err
	}
	if kept {
		s.pending[a.PlanID] = true
	} else {
		delete(s.pending, a.PlanID)
	}
	s.confirmLocked(a.PlanID, queued)
	s.state.Notice = NoticeSavedLocal
	s.commitLocked()
	online := s.onlineLocked()
	kicker := s.kicker
	s.mu.Unlock()

	if online && kicker != nil {
		kicker.Kick()
	}
	return OutcomeQueued, nil
}
