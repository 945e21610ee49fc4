package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// ActionQueue is the durable offline action queue. It holds at most one
// action per user and plan: Enqueue folds a new action into the one already
// queued for the same user and plan.
type ActionQueue interface {
	// Enqueue stores a, collapsing it into any queued action for the same
	// user and plan. It returns the action now queued for the plan, or false when the
	// two cancelled out and nothing remains.
	Enqueue(ctx context.Context, a domain.OfflineAction) (domain.OfflineAction, bool, error)
	List(ctx context.Context) ([]domain.OfflineAction, error)
	Get(ctx context.Context, id string) (*domain.OfflineAction, error)
	// GetByPlan returns the action queued for userID's plan, or ErrNotFound.
	GetByPlan(ctx context.Context, userID, planID string) (*domain.OfflineAction, error)
	Remove(ctx context.Context, id string) error
	// Ack removes a delivered action only if it is unchanged since it was
	// read; false means a newer version is queued under the same ID.
	Ack(ctx context.Context, delivered domain.OfflineAction) (bool, error)
	// Promote turns a replayed CREATE into an UPDATE addressed to the
	// server-assigned plan ID, keeping whatever document is queued now.
	Promote(ctx context.Context, id, serverPlanID string) (*domain.OfflineAction, error)
	RemapPlan(ctx context.Context, fromPlanID, toPlanID string) error
	RecordFailure(ctx context.Context, id, cause string) (int, error)
	Count(ctx context.Context) (int, error)
	PlanIDs(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// StateRepo persists opaque local snapshots by key.
type StateRepo interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// CachedBody is a response body held by the plan cache.
type CachedBody struct {
	Body     []byte
	CachedAt time.Time
}

// PlanCache stores the last good backend response per user and plan. The
// plan list for a user is stored under ListKey.
type PlanCache interface {
	Put(ctx context.Context, userID, planID string, body []byte) error
	Get(ctx context.Context, userID, planID string) (*CachedBody, error)
	Delete(ctx context.Context, userID, planID string) error
	Clear(ctx context.Context) error
}

// ListKey is the plan cache key for a user's full plan list.
const ListKey = ""
