package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(baseURL, 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, u.String())

	u, err = parseBaseURL("example.com:1234/path?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:1234", u.String())
}

func TestClient_ListPlans_MaterializesDefaultPlan(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())

	plans, err := c.ListPlans(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, domain.DefaultPlanID, plans[0].ID)
	assert.Equal(t, domain.DefaultPlanName, plans[0].Name)
	assert.Equal(t, []string{"saturday", "sunday"}, plans[0].Schedule.Keys())
	assert.NotNil(t, plans[0].Schedule[0].Activities)
}

func TestClient_ListPlans_RequiresUser(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	_, err := c.ListPlans(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())
	ctx := context.Background()

	plan, err := c.CreatePlan(ctx, "u1", "Trip", "#ef4444")
	require.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, domain.CategoryAll, plan.Category)

	cat := domain.CategoryTravel
	require.NoError(t, c.UpdatePlan(ctx, "u1", plan.ID, domain.PlanUpdate{Category: &cat}))
	stored, ok := backend.Plan("u1", plan.ID)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryTravel, stored.Category)
	assert.Equal(t, "Trip", stored.Name, "untouched fields survive a partial update")

	require.NoError(t, c.DeletePlan(ctx, "u1", plan.ID))
	_, ok = backend.Plan("u1", plan.ID)
	assert.False(t, ok)
}

func TestClient_StatusErrorsAreClassified(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())
	ctx := context.Background()

	err := c.UpdatePlan(ctx, "u1", "missing", domain.PlanUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsOffline(err))

	err = c.DeletePlan(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.CreatePlan(ctx, "u1", "", "#fff")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, se.Error(), "Missing required fields")

	backend.FailWith(http.MethodGet, http.StatusInternalServerError)
	_, err = c.ListPlans(ctx, "u1")
	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClient_TransportFailureIsOffline(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())
	backend.SetDown(true)

	_, err := c.ListPlans(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrOffline)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrOffline)

	backend.SetDown(false)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_TimeoutIsOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, 20*time.Millisecond)
	require.NoError(t, err)

	err = c.DeletePlan(context.Background(), "u1", "p1")
	assert.ErrorIs(t, err, ErrOffline)
}

func TestClient_CallerCancellationIsNotOffline(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListPlans(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsOffline(err))
}

func TestClient_GetPublicPlanAndShareURL(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())
	plan := testutil.NewTestPlan("Emily's Birthday", testutil.WithPlanID("p1"),
		testutil.WithActivities("saturday", testutil.NewTestActivity("Brunch")))
	backend.Seed("u1", plan)

	got, err := c.GetPublicPlan(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, plan, got)

	_, err = c.GetPublicPlan(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, backend.URL()+"/view/u1/p1", c.ShareURL("u1", "p1"))
}

func TestClient_Forward(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())

	status, body, err := c.Forward(context.Background(), http.MethodGet, "/api/plans?userId=u1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), domain.DefaultPlanID)

	backend.SetDown(true)
	_, _, err = c.Forward(context.Background(), http.MethodGet, "/api/plans?userId=u1", nil)
	assert.ErrorIs(t, err, ErrOffline)
}
