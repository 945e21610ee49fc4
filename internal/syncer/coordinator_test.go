package syncer

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/alexanderramin/weekendly/internal/netstatus"
	"github.com/alexanderramin/weekendly/internal/repository"
	"github.com/alexanderramin/weekendly/internal/store"
	"github.com/alexanderramin/weekendly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "u1"

var t0 = time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

type fixture struct {
	fake  *testutil.FakeBackend
	gw    *gateway.Client
	net   *netstatus.Monitor
	queue *repository.SQLiteActionQueue
	coord *Coordinator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	gw, err := gateway.NewClient(fake.URL(), 2*time.Second)
	require.NoError(t, err)
	f := &fixture{
		fake:  fake,
		gw:    gw,
		net:   netstatus.NewMonitor(1, nil),
		queue: repository.NewSQLiteActionQueue(testutil.NewTestDB(t)),
	}
	f.coord = New(gw, f.queue, append([]Option{WithNetwork(f.net), WithClock(func() time.Time { return t0 })}, opts...)...)
	return f
}

func (f *fixture) enqueue(t *testing.T, a domain.OfflineAction) domain.OfflineAction {
	t.Helper()
	stored, _, err := f.queue.Enqueue(context.Background(), a)
	require.NoError(t, err)
	return stored
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.queue.Count(context.Background())
	require.NoError(t, err)
	return n
}

// drainAsync runs Drain in the background and returns a channel with its result.
func (f *fixture) drainAsync() <-chan Result {
	out := make(chan Result, 1)
	go func() {
		res, _ := f.coord.Drain(context.Background())
		out <- res
	}()
	return out
}

func TestCoordinator_Drain_ReplaysInOrder(t *testing.T) {
	f := newFixture(t)
	keep := testutil.NewTestPlan("Beach")
	drop := testutil.NewTestPlan("Museum")
	f.fake.Seed(testUser, keep, drop)

	f.enqueue(t, domain.NewUpdateAction(testUser, keep.ID, domain.PlanUpdate{Name: strPtr("Lake")}, t0))
	f.enqueue(t, domain.NewDeleteAction(testUser, drop.ID, t0.Add(time.Second)))

	res, err := f.coord.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 2}, res)

	plans := f.fake.Plans(testUser)
	require.Len(t, plans, 1)
	assert.Equal(t, "Lake", plans[0].Name)
	assert.Zero(t, f.count(t))

	var methods []string
	for _, r := range f.fake.Requests() {
		methods = append(methods, r.Method)
	}
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestCoordinator_Drain_TransportFailureStops(t *testing.T) {
	f := newFixture(t)
	p := testutil.NewTestPlan("Beach")
	f.fake.Seed(testUser, p)
	f.enqueue(t, domain.NewUpdateAction(testUser, p.ID, domain.PlanUpdate{Name: strPtr("Lake")}, t0))
	f.enqueue(t, domain.NewDeleteAction(testUser, "other", t0))
	f.fake.SetDown(true)

	res, err := f.coord.Drain(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.True(t, res.Offline)
	assert.Equal(t, 2, res.Remaining)

	actions, err := f.queue.List(context.Background())
	require.NoError(t, err)
	assert.Zero(t, actions[0].Attempts, "unreachable is not an attempt")
}

func TestCoordinator_Drain_SkipsWhileOffline(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, domain.NewDeleteAction(testUser, "p1", t0))
	f.net.Force(false)

	res, err := f.coord.Drain(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.True(t, res.Offline)
	assert.Equal(t, 1, res.Remaining)
	assert.Empty(t, f.fake.Requests())
}

func TestCoordinator_Drain_UpdateForMissingPlanIsDropped(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, domain.NewUpdateAction(testUser, "gone", domain.PlanUpdate{Name: strPtr("x")}, t0))

	res, err := f.coord.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Zero(t, f.count(t))
}

func TestCoordinator_Drain_DeleteOfMissingPlanSucceeds(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, domain.NewDeleteAction(testUser, "gone", t0))

	res, err := f.coord.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Zero(t, f.count(t))
}

func TestCoordinator_Drain_FailuresRetryThenAbandon(t *testing.T) {
	f := newFixture(t, WithMaxAttempts(2))
	p := testutil.NewTestPlan("Beach")
	other := testutil.NewTestPlan("Museum")
	f.fake.Seed(testUser, p, other)
	failing := f.enqueue(t, domain.NewUpdateAction(testUser, p.ID, domain.PlanUpdate{Name: strPtr("Lake")}, t0))
	f.enqueue(t, domain.NewDeleteAction(testUser, other.ID, t0.Add(time.Second)))
	f.fake.FailWith(http.MethodPut, http.StatusInternalServerError)

	res, err := f.coord.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Replayed, "a failing action does not block other plans")
	assert.Equal(t, 1, res.Remaining)

	got, err := f.queue.Get(context.Background(), failing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.NotEmpty(t, got.LastError)

	res, err = f.coord.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Abandoned)
	assert.Zero(t, f.count(t))
}

func TestCoordinator_Drain_ReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := testutil.NewTestPlan("Beach")
	f.fake.Seed(testUser, p)
	sched := domain.Schedule{{Key: "friday", Activities: []domain.ScheduledActivity{testutil.NewTestActivity("Hike")}}}
	a := f.enqueue(t, domain.NewUpdateAction(testUser, p.ID, domain.PlanUpdate{Name: strPtr("Lake"), Schedule: &sched}, t0))

	o, err := f.coord.replay(context.Background(), a)
	require.NoError(t, err)
	require.Equal(t, outcomeDelivered, o)
	first, _ := f.fake.Plan(testUser, p.ID)

	// Delivered again, as after a crash between the PUT and the ack.
	o, err = f.coord.replay(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, outcomeDelivered, o)
	second, _ := f.fake.Plan(testUser, p.ID)
	assert.Equal(t, first, second)
	assert.Zero(t, f.count(t))
}

func TestCoordinator_Drain_EditDuringDeliveryIsReplayedToo(t *testing.T) {
	f := newFixture(t)
	p := testutil.NewTestPlan("Beach")
	f.fake.Seed(testUser, p)
	f.enqueue(t, domain.NewUpdateAction(testUser, p.ID, domain.PlanUpdate{Name: strPtr("Lake")}, t0))
	release := f.fake.Block(http.MethodPut)
	defer release()

	done := f.drainAsync()
	require.Eventually(t, func() bool { return f.fake.CountRequests(http.MethodPut) == 1 },
		time.Second, 5*time.Millisecond)
	f.enqueue(t, domain.NewUpdateAction(testUser, p.ID, domain.PlanUpdate{Color: strPtr("green")}, t0.Add(time.Second)))
	release()

	res := <-done
	assert.Equal(t, 2, res.Replayed)
	server, _ := f.fake.Plan(testUser, p.ID)
	assert.Equal(t, "Lake", server.Name)
	assert.Equal(t, "green", server.Color)
	assert.Zero(t, f.count(t))
}

func TestCoordinator_Drain_SingleFlight(t *testing.T) {
	f := newFixture(t)
	a := testutil.NewTestPlan("A")
	b := testutil.NewTestPlan("B")
	f.fake.Seed(testUser, a, b)
	f.enqueue(t, domain.NewUpdateAction(testUser, a.ID, domain.PlanUpdate{Name: strPtr("A2")}, t0))
	release := f.fake.Block(http.MethodPut)
	defer release()

	done := f.drainAsync()
	require.Eventually(t, func() bool { return f.fake.CountRequests(http.MethodPut) == 1 },
		time.Second, 5*time.Millisecond)

	f.enqueue(t, domain.NewUpdateAction(testUser, b.ID, domain.PlanUpdate{Name: strPtr("B2")}, t0))
	res, err := f.coord.Drain(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	release()
	res = <-done
	assert.Equal(t, 2, res.Replayed, "the skipped request is folded into the running drain")
	assert.Zero(t, f.count(t))
}

func TestCoordinator_Drain_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, domain.NewDeleteAction(testUser, "p1", t0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.coord.Drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.count(t))
}

func TestCoordinator_Run_DrainsOnKickAndReconnect(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		f.coord.Run(ctx, time.Hour)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	f.enqueue(t, domain.NewDeleteAction(testUser, "p1", t0))
	f.coord.Kick()
	require.Eventually(t, func() bool { return f.count(t) == 0 }, 2*time.Second, 10*time.Millisecond)

	f.net.Force(false)
	f.enqueue(t, domain.NewDeleteAction(testUser, "p2", t0))
	f.coord.Kick()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.count(t), "nothing replays while offline")

	f.net.Force(true)
	require.Eventually(t, func() bool { return f.count(t) == 0 }, 2*time.Second, 10*time.Millisecond)
}

// storeFixture wires a real store to the coordinator the way the binary does.
func storeFixture(t *testing.T) (*fixture, *store.Store) {
	t.Helper()
	f := newFixture(t)
	s := store.New(f.gw, f.queue, store.WithUser(testUser), store.WithNetwork(f.net))
	f.coord.reconciler = s
	s.SetKicker(f.coord)
	s.LoadPlans(context.Background(), testUser)
	require.Empty(t, s.Snapshot().Error)
	return f, s
}

func TestCoordinator_OfflineCreateSyncsAndRenames(t *testing.T) {
	f, s := storeFixture(t)
	f.net.Force(false)

	clientID, err := s.AddPlan("Trip", "red")
	require.NoError(t, err)
	require.NoError(t, s.SetCategory(domain.CategoryTravel))
	hike := testutil.NewTestActivity("Hike")
	_, err = s.AddActivity("saturday", hike)
	require.NoError(t, err)
	s.Wait()
	require.Equal(t, []string{clientID}, s.Snapshot().PendingChanges)

	f.net.Force(true)
	res, err := f.coord.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Zero(t, res.Remaining)

	snap := s.Snapshot()
	active, ok := snap.ActivePlan()
	require.True(t, ok)
	assert.NotEqual(t, clientID, active.ID)
	assert.Empty(t, snap.PendingChanges)
	assert.Empty(t, snap.Notice)
	assert.True(t, t0.Equal(snap.LastSyncAt))

	server, ok := f.fake.Plan(testUser, active.ID)
	require.True(t, ok)
	assert.Equal(t, "Trip", server.Name)
	assert.Equal(t, "red", server.Color)
	assert.Equal(t, domain.CategoryTravel, server.Category)
	acts, _ := server.Schedule.Activities("saturday")
	require.Len(t, acts, 1)
	assert.Equal(t, hike.InstanceID, acts[0].InstanceID)

	// Once confirmed, edits go straight to the server.
	require.NoError(t, s.UpdatePlan(active.ID, domain.PlanUpdate{Color: strPtr("green")}))
	s.Wait()
	server, _ = f.fake.Plan(testUser, active.ID)
	assert.Equal(t, "green", server.Color)
	assert.Zero(t, f.count(t))
}

func TestCoordinator_CreateCarriesEditsMadeDuringReplay(t *testing.T) {
	f, s := storeFixture(t)
	f.net.Force(false)
	clientID, err := s.AddPlan("Trip", "red")
	require.NoError(t, err)
	s.Wait()
	f.net.Force(true)

	release := f.fake.Block(http.MethodPost)
	defer release()
	done := f.drainAsync()
	require.Eventually(t, func() bool { return f.fake.CountRequests(http.MethodPost) == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, s.UpdatePlan(clientID, domain.PlanUpdate{Name: strPtr("Road trip")}))
	s.Wait()
	release()
	<-done

	server := f.fake.Plans(testUser)
	require.Len(t, server, 2)
	assert.Equal(t, "Road trip", server[1].Name)

	active, _ := s.Snapshot().ActivePlan()
	assert.Equal(t, server[1].ID, active.ID)
	assert.Equal(t, "Road trip", active.Name)
	assert.Zero(t, f.count(t))
}

func TestCoordinator_CreateDeletedDuringReplayIsRemovedFromServer(t *testing.T) {
	f, s := storeFixture(t)
	f.net.Force(false)
	clientID, err := s.AddPlan("Trip", "red")
	require.NoError(t, err)
	s.Wait()
	f.net.Force(true)

	release := f.fake.Block(http.MethodPost)
	defer release()
	done := f.drainAsync()
	require.Eventually(t, func() bool { return f.fake.CountRequests(http.MethodPost) == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, s.RemovePlan(clientID))
	s.Wait()
	release()
	res := <-done

	assert.Equal(t, 1, res.Dropped)
	plans := f.fake.Plans(testUser)
	require.Len(t, plans, 1)
	assert.Equal(t, domain.DefaultPlanID, plans[0].ID)
	assert.Zero(t, f.count(t))
	assert.Len(t, s.Snapshot().Plans, 1)
}
