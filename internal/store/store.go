// Package store holds the in-memory plans of the signed-in user and applies
// every mutation optimistically: the new state is committed synchronously,
// then persisted in the background. Offline failures are queued for replay;
// other failures roll back only the fields the failed call wrote.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/alexanderramin/weekendly/internal/repository"
)

// StorageKey is the local state key the store snapshot is saved under.
const StorageKey = "schedule-storage"

// User-visible messages.
const (
	MsgLoadFailed    = "Failed to load plans"
	MsgCreateFailed  = "Failed to create plan"
	MsgUpdateFailed  = "Failed to update plan"
	MsgDeleteFailed  = "Failed to delete plan"
	MsgPlanNotFound  = "Plan not found"
	MsgQueueFailed   = "Failed to save change for later sync"
	NoticeSavedLocal = "Saved offline. Changes will sync when you're back online."
)

var (
	ErrNoActivePlan = errors.New("no active plan")
	ErrPlanNotFound = errors.New("plan not found")
	ErrUserRequired = errors.New("user id is required")
	ErrEmptyUpdate  = errors.New("update touches no field")
)

// State is the observable store state. Snapshot returns deep copies.
type State struct {
	Plans          []domain.Plan
	ActivePlanID   string
	Loading        bool
	Error          string
	Notice         string
	LastSyncAt     time.Time
	PendingChanges []string
}

// ActivePlan returns the active plan, if any.
func (s State) ActivePlan() (domain.Plan, bool) {
	for _, p := range s.Plans {
		if p.ID == s.ActivePlanID {
			return p, true
		}
	}
	return domain.Plan{}, false
}

// Network reports connectivity. *netstatus.Monitor implements it.
type Network interface {
	Online() bool
}

// Kicker asks the sync coordinator to drain soon.
type Kicker interface {
	Kick()
}

type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }

type subscriber struct {
	id int
	fn func(State)
}

// Store is the single owner of plan state. It is safe for concurrent use.
type Store struct {
	gateway  gateway.PlanGateway
	queue    repository.ActionQueue
	local    repository.StateRepo
	network  Network
	observer Observer
	now      func() time.Time
	ctx      context.Context

	mu     sync.Mutex
	kicker Kicker
	userID string
	state  State

	// base holds the last field values known to be on (or queued for) the
	// server, used as the rollback target.
	base map[string]domain.Plan
	// revs stamps every field write so a failing call only reverts fields
	// no later mutation has touched.
	revs map[string]map[domain.Field]uint64
	rev  uint64
	// inflight counts scheduled writes per field that have not resolved.
	// A reload keeps the local value of those fields.
	inflight map[string]map[domain.Field]int

	pending     map[string]bool
	unconfirmed map[string]bool
	deleting    map[string]bool
	aliases     map[string]string
	lanes       map[string]chan struct{}

	subs   []subscriber
	nextID int
	wg     sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

func WithUser(userID string) Option {
	return func(s *Store) { s.userID = userID }
}

// WithLocalState enables snapshot persistence under StorageKey.
func WithLocalState(repo repository.StateRepo) Option {
	return func(s *Store) { s.local = repo }
}

func WithNetwork(n Network) Option {
	return func(s *Store) {
		if n != nil {
			s.network = n
		}
	}
}

func WithKicker(k Kicker) Option {
	return func(s *Store) { s.kicker = k }
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithContext sets the context background persistence runs under.
func WithContext(ctx context.Context) Option {
	return func(s *Store) { s.ctx = ctx }
}

// New creates a Store persisting through gw and queueing into queue.
func New(gw gateway.PlanGateway, queue repository.ActionQueue, opts ...Option) *Store {
	s := &Store{
		gateway:     gw,
		queue:       queue,
		network:     alwaysOnline{},
		observer:    NoopObserver{},
		now:         time.Now,
		ctx:         context.Background(),
		base:        make(map[string]domain.Plan),
		revs:        make(map[string]map[domain.Field]uint64),
		inflight:    make(map[string]map[domain.Field]int),
		pending:     make(map[string]bool),
		unconfirmed: make(map[string]bool),
		deleting:    make(map[string]bool),
		aliases:     make(map[string]string),
		lanes:       make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetKicker wires the coordinator after construction; the coordinator
// itself depends on the store.
func (s *Store) SetKicker(k Kicker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kicker = k
}

// UserID returns the user the store is loaded for.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run after every committed transition. fn runs
// with the store lock held and receives a copy of the new state; it must
// not call back into the store.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Wait blocks until every in-flight persistence continuation has resolved.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Reset clears all user state, the offline queue and the local snapshot.
// It is used on sign-out.
func (s *Store) Reset(ctx context.Context) error {
	s.Wait()

	var errs []error
	if err := s.queue.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.local != nil {
		if err := s.local.Delete(ctx, StorageKey); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.userID = ""
	s.state = State{}
	s.base = make(map[string]domain.Plan)
	s.revs = make(map[string]map[domain.Field]uint64)
	s.inflight = make(map[string]map[domain.Field]int)
	s.pending = make(map[string]bool)
	s.unconfirmed = make(map[string]bool)
	s.deleting = make(map[string]bool)
	s.aliases = make(map[string]string)
	s.lanes = make(map[string]chan struct{})
	s.notifyLocked()
	s.mu.Unlock()
	return errors.Join(errs...)
}

func (s *Store) snapshotLocked() State {
	out := s.state
	out.Plans = domain.ClonePlans(s.state.Plans)
	out.PendingChanges = s.pendingListLocked()
	return out
}

func (s *Store) pendingListLocked() []string {
	if len(s.pending) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// commitLocked saves the local snapshot and notifies subscribers. Every
// state transition ends here.
func (s *Store) commitLocked() {
	s.saveLocked()
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, sub := range s.subs {
		sub.fn(snap)
	}
}

func (s *Store) failLocked(err error) error {
	s.state.Error = err.Error()
	s.notifyLocked()
	return err
}

func (s *Store) planIndexLocked(id string) int {
	for i, p := range s.state.Plans {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) resolveLocked(id string) string {
	for i := 0; i < 4; i++ {
		next, ok := s.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
	return id
}

// renameLocked moves every piece of per-plan bookkeeping from oldID to newID.
func (s *Store) renameLocked(oldID, newID string) {
	if i := s.planIndexLocked(oldID); i >= 0 {
		s.state.Plans[i].ID = newID
	}
	if s.state.ActivePlanID == oldID {
		s.state.ActivePlanID = newID
	}
	if b, ok := s.base[oldID]; ok {
		b.ID = newID
		s.base[newID] = b
		delete(s.base, oldID)
	}
	if r, ok := s.revs[oldID]; ok {
		s.revs[newID] = r
		delete(s.revs, oldID)
	}
	if f, ok := s.inflight[oldID]; ok {
		s.inflight[newID] = f
		delete(s.inflight, oldID)
	}
	if s.pending[oldID] {
		s.pending[newID] = true
		delete(s.pending, oldID)
	}
	if s.deleting[oldID] {
		s.deleting[newID] = true
		delete(s.deleting, oldID)
	}
	if lane, ok := s.lanes[oldID]; ok {
		s.lanes[newID] = lane
		delete(s.lanes, oldID)
	}
	delete(s.unconfirmed, oldID)
	s.aliases[oldID] = newID
}

// forgetLocked drops bookkeeping for a plan that no longer exists.
func (s *Store) forgetLocked(id string) {
	delete(s.base, id)
	delete(s.revs, id)
	delete(s.unconfirmed, id)
	delete(s.deleting, id)
}

func (s *Store) stampLocked(planID string, fields []domain.Field) uint64 {
	s.rev++
	r := s.revs[planID]
	if r == nil {
		r = make(map[domain.Field]uint64)
		s.revs[planID] = r
	}
	for _, f := range fields {
		r[f] = s.rev
	}
	return s.rev
}

// inflightFieldsLocked lists the fields of planID with unresolved writes.
func (s *Store) inflightFieldsLocked(planID string) []domain.Field {
	var out []domain.Field
	for f, n := range s.inflight[planID] {
		if n > 0 {
			out = append(out, f)
		}
	}
	return out
}

func (s *Store) onlineLocked() bool {
	return s.network.Online()
}

func firstPlanID(plans []domain.Plan) string {
	if len(plans) == 0 {
		return ""
	}
	return plans[0].ID
}
