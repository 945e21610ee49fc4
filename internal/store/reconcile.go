package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/repository"
	"github.com/google/uuid"
)

// persisted is the local snapshot layout.
type persisted struct {
	UserID            string        `json:"userId,omitempty"`
	Plans             []domain.Plan `json:"plans"`
	ActivePlanID      string        `json:"activePlanId"`
	LastSyncTimestamp int64         `json:"lastSyncTimestamp,omitempty"`
	PendingChanges    []string      `json:"pendingChanges"`
}

// Hydrate restores the last saved snapshot before any network call. Plans
// whose create call never resolved are kept under a permanent client ID and
// queued for creation. A snapshot saved for another user is ignored.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.local == nil {
		return nil
	}
	data, err := s.local.Load(ctx, StorageKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}
	var snap persisted
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("hydrate: decoding snapshot: %w", err)
	}

	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()
	if userID == "" {
		userID = snap.UserID
	}
	if snap.UserID != "" && snap.UserID != userID {
		return nil
	}

	for i, p := range snap.Plans {
		if !p.IsTemporary() {
			continue
		}
		clientID := uuid.New().String()
		if snap.ActivePlanID == p.ID {
			snap.ActivePlanID = clientID
		}
		snap.Plans[i].ID = clientID
		if _, _, err := s.queue.Enqueue(ctx, domain.NewCreateAction(userID, snap.Plans[i], s.now())); err != nil {
			return fmt.Errorf("hydrate: queueing unfinished create: %w", err)
		}
	}

	actions, err := s.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.state.Plans = domain.ClonePlans(snap.Plans)
	s.state.ActivePlanID = snap.ActivePlanID
	if snap.LastSyncTimestamp > 0 {
		s.state.LastSyncAt = time.UnixMilli(snap.LastSyncTimestamp)
	}
	s.base = make(map[string]domain.Plan, len(snap.Plans))
	for _, p := range s.state.Plans {
		s.base[p.ID] = p.Clone()
	}
	s.pending = make(map[string]bool)
	s.unconfirmed = make(map[string]bool)
	for _, a := range actions {
		if a.PlanID == "" || (a.UserID != "" && a.UserID != userID) {
			continue
		}
		s.pending[a.PlanID] = true
		if a.Type == domain.ActionCreate {
			s.unconfirmed[a.PlanID] = true
		}
	}
	if s.planIndexLocked(s.state.ActivePlanID) < 0 {
		s.state.ActivePlanID = firstPlanID(s.state.Plans)
	}
	s.commitLocked()
	return nil
}

func (s *Store) saveLocked() {
	if s.local == nil {
		return
	}
	snap := persisted{
		UserID:         s.userID,
		Plans:          s.state.Plans,
		ActivePlanID:   s.state.ActivePlanID,
		PendingChanges: s.pendingListLocked(),
	}
	if snap.Plans == nil {
		snap.Plans = []domain.Plan{}
	}
	if !s.state.LastSyncAt.IsZero() {
		snap.LastSyncTimestamp = s.state.LastSyncAt.UnixMilli()
	}
	data, err := json.Marshal(snap)
	if err == nil {
		err = s.local.Save(s.ctx, StorageKey, data)
	}
	if err != nil {
		s.observer.ObservePersist(s.ctx, PersistEvent{
			Op:        "saveSnapshot",
			Outcome:   OutcomeFailed,
			Err:       err,
			StartedAt: s.now(),
		})
	}
}

// PlanCreated is called by the sync coordinator once a plan created offline
// exists on the server. The plan and everything queued for it move to the
// server ID.
func (s *Store) PlanCreated(ctx context.Context, clientID, serverID string) error {
	s.mu.Lock()
	id := s.resolveLocked(clientID)
	if id != serverID {
		s.renameLocked(id, serverID)
	}
	delete(s.unconfirmed, serverID)
	s.commitLocked()
	s.mu.Unlock()

	if err := s.queue.RemapPlan(ctx, id, serverID); err != nil {
		return fmt.Errorf("remapping queued actions for %s: %w", serverID, err)
	}
	return s.refreshPending(ctx, nil)
}

// SyncCompleted is called after a drain; it refreshes the pending set from
// the queue and records the sync time.
func (s *Store) SyncCompleted(ctx context.Context, at time.Time) error {
	return s.refreshPending(ctx, &at)
}

func (s *Store) refreshPending(ctx context.Context, syncedAt *time.Time) error {
	ids, err := s.queue.PlanIDs(ctx)
	if err != nil {
		return fmt.Errorf("reading pending plans: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.pending[s.resolveLocked(id)] = true
	}
	if syncedAt != nil {
		s.state.LastSyncAt = *syncedAt
	}
	if len(s.pending) == 0 {
		s.state.Notice = ""
	}
	s.commitLocked()
	return nil
}
