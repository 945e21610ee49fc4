// Package syncer replays the offline action queue against the backend once
// connectivity returns.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/alexanderramin/weekendly/internal/repository"
)

const (
	// DefaultMaxAttempts bounds how often a failing action is retried
	// before it is abandoned.
	DefaultMaxAttempts = 10

	defaultInterval = time.Minute
)

// ErrStopped is returned by Drain when the backend became unreachable
// mid-drain; the remaining actions stay queued.
var ErrStopped = errors.New("sync stopped: backend unreachable")

// Network is the connectivity source. *netstatus.Monitor implements it.
type Network interface {
	Online() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Reconciler is told how replays ended. *store.Store implements it.
type Reconciler interface {
	PlanCreated(ctx context.Context, clientID, serverID string) error
	SyncCompleted(ctx context.Context, at time.Time) error
}

// Result summarizes one drain.
type Result struct {
	Replayed  int
	Dropped   int // plan gone on the server
	Failed    int
	Abandoned int
	Remaining int
	Offline   bool
	Skipped   bool // another drain was already running
}

// Coordinator drains the queue. Drains never overlap; a drain requested
// while one is running is folded into it as an extra pass.
type Coordinator struct {
	gateway     gateway.PlanGateway
	queue       repository.ActionQueue
	reconciler  Reconciler
	network     Network
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time

	flight sync.Mutex
	rerun  atomic.Bool
	kick   chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithReconciler(r Reconciler) Option {
	return func(c *Coordinator) { c.reconciler = r }
}

func WithNetwork(n Network) Option {
	return func(c *Coordinator) { c.network = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator replaying queue through gw.
func New(gw gateway.PlanGateway, queue repository.ActionQueue, opts ...Option) *Coordinator {
	c := &Coordinator{
		gateway:     gw,
		queue:       queue,
		logger:      slog.New(slog.DiscardHandler),
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		kick:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kick asks Run to drain soon. It never blocks.
func (c *Coordinator) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run drains on start, on every offline to online transition, on Kick and
// at the given interval, until ctx is done.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}
	if c.network != nil {
		unsubscribe := c.network.Subscribe(func(online bool) {
			if online {
				c.Kick()
			}
		})
		defer unsubscribe()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Drain(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, ErrStopped) {
			c.logger.Error("sync drain failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-c.kick:
		case <-ticker.C:
		}
	}
}

// Drain replays every queued action in enqueue order.
func (c *Coordinator) Drain(ctx context.Context) (Result, error) {
	if !c.flight.TryLock() {
		c.rerun.Store(true)
		return Result{Skipped: true}, nil
	}
	defer c.flight.Unlock()

	var total Result
	for {
		c.rerun.Store(false)
		res, err := c.pass(ctx)
		total.add(res)
		if err != nil || res.Offline {
			total.Remaining = c.remaining(ctx)
			if res.Offline && err == nil {
				err = ErrStopped
			}
			return total, err
		}
		if !c.rerun.Load() {
			break
		}
	}

	total.Remaining = c.remaining(ctx)
	if c.reconciler != nil {
		if err := c.reconciler.SyncCompleted(ctx, c.now()); err != nil {
			return total, fmt.Errorf("sync completed: %w", err)
		}
	}
	c.logger.Info("sync drained",
		"replayed", total.Replayed,
		"dropped", total.Dropped,
		"failed", total.Failed,
		"abandoned", total.Abandoned,
		"remaining", total.Remaining)
	return total, nil
}

func (r *Result) add(o Result) {
	r.Replayed += o.Replayed
	r.Dropped += o.Dropped
	r.Failed += o.Failed
	r.Abandoned += o.Abandoned
	r.Offline = r.Offline || o.Offline
}

func (c *Coordinator) remaining(ctx context.Context) int {
	n, err := c.queue.Count(ctx)
	if err != nil {
		return -1
	}
	return n
}

func (c *Coordinator) pass(ctx context.Context) (Result, error) {
	var res Result
	if c.network != nil && !c.network.Online() {
		res.Offline = true
		return res, nil
	}
	actions, err := c.queue.List(ctx)
	if err != nil {
		return res, fmt.Errorf("listing queue: %w", err)
	}

	for _, listed := range actions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		// Earlier replays in this pass may have remapped or folded this row.
		current, err := c.queue.Get(ctx, listed.ID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("reading action %s: %w", listed.ID, err)
		}
		a := *current
		if a.Attempts >= c.maxAttempts {
			if err := c.abandon(ctx, a); err != nil {
				return res, err
			}
			res.Abandoned++
			continue
		}

		outcome, err := c.replay(ctx, a)
		switch outcome {
		case outcomeDelivered:
			res.Replayed++
		case outcomeDropped:
			res.Dropped++
		case outcomeOffline:
			res.Offline = true
			c.logger.Warn("sync stopped, backend unreachable", "action_id", a.ID, "error", err)
			return res, nil
		case outcomeFailed:
			res.Failed++
			attempts, rerr := c.queue.RecordFailure(ctx, a.ID, err.Error())
			if errors.Is(rerr, repository.ErrNotFound) {
				continue
			}
			if rerr != nil {
				return res, fmt.Errorf("recording failure: %w", rerr)
			}
			c.logger.Warn("sync action failed",
				"action_id", a.ID, "type", string(a.Type), "plan_id", a.PlanID,
				"attempts", attempts, "error", err)
			if attempts >= c.maxAttempts {
				a.Attempts = attempts
				if err := c.abandon(ctx, a); err != nil {
					return res, err
				}
				res.Abandoned++
			}
		case outcomeError:
			return res, err
		}
	}
	return res, nil
}

func (c *Coordinator) abandon(ctx context.Context, a domain.OfflineAction) error {
	if err := c.queue.Remove(ctx, a.ID); err != nil {
		return fmt.Errorf("abandoning action %s: %w", a.ID, err)
	}
	c.logger.Error("sync action abandoned",
		"action_id", a.ID, "type", string(a.Type), "plan_id", a.PlanID,
		"attempts", a.Attempts, "last_error", a.LastError)
	return nil
}
