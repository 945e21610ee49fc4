package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/alexanderramin/weekendly/internal/repository"
)

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeDropped
	outcomeOffline
	outcomeFailed
	// outcomeError is a local failure (queue, cancellation) that aborts the drain.
	outcomeError
)

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeDelivered
	case errors.Is(err, context.Canceled):
		return outcomeError
	case gateway.IsOffline(err), errors.Is(err, context.DeadlineExceeded):
		return outcomeOffline
	default:
		return outcomeFailed
	}
}

func (c *Coordinator) replay(ctx context.Context, a domain.OfflineAction) (outcome, error) {
	switch a.Type {
	case domain.ActionCreate:
		return c.replayCreate(ctx, a)
	case domain.ActionUpdate:
		return c.replayUpdate(ctx, a)
	case domain.ActionDelete:
		return c.replayDelete(ctx, a)
	default:
		return outcomeFailed, fmt.Errorf("unknown action type %q", a.Type)
	}
}

func (c *Coordinator) replayUpdate(ctx context.Context, a domain.OfflineAction) (outcome, error) {
	if a.Data == nil || a.Data.IsEmpty() {
		return c.ack(ctx, a)
	}
	err := c.gateway.UpdatePlan(ctx, a.UserID, a.PlanID, *a.Data)
	if errors.Is(err, gateway.ErrNotFound) {
		c.logger.Warn("sync dropped update for missing plan", "action_id", a.ID, "plan_id", a.PlanID)
		if _, err := c.ack(ctx, a); err != nil {
			return outcomeError, err
		}
		return outcomeDropped, nil
	}
	if o := classify(err); o != outcomeDelivered {
		return o, err
	}
	return c.ack(ctx, a)
}

func (c *Coordinator) replayDelete(ctx context.Context, a domain.OfflineAction) (outcome, error) {
	err := c.gateway.DeletePlan(ctx, a.UserID, a.PlanID)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return classify(err), err
	}
	return c.ack(ctx, a)
}

// replayCreate creates the plan, readdresses the queued document to the
// server ID, lets the store rename its copy and then delivers the document
// as an ordinary update.
func (c *Coordinator) replayCreate(ctx context.Context, a domain.OfflineAction) (outcome, error) {
	if a.Data == nil || a.Data.Name == nil || a.Data.Color == nil {
		return outcomeFailed, fmt.Errorf("create action %s carries no name or color", a.ID)
	}
	created, err := c.gateway.CreatePlan(ctx, a.UserID, *a.Data.Name, *a.Data.Color)
	if o := classify(err); o != outcomeDelivered {
		return o, err
	}

	promoted, err := c.queue.Promote(ctx, a.ID, created.ID)
	if errors.Is(err, repository.ErrNotFound) {
		// Deleted locally while the POST was in flight.
		return c.discardCreated(ctx, a.UserID, created.ID)
	}
	if err != nil {
		return outcomeError, fmt.Errorf("promoting action %s: %w", a.ID, err)
	}
	c.logger.Info("sync created plan", "client_id", a.PlanID, "server_id", created.ID)

	if c.reconciler != nil {
		if err := c.reconciler.PlanCreated(ctx, a.PlanID, created.ID); err != nil {
			return outcomeError, fmt.Errorf("renaming plan %s: %w", a.PlanID, err)
		}
	}

	// Edits remapped from the client ID may have been folded in meanwhile.
	current, err := c.queue.Get(ctx, promoted.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return outcomeDelivered, nil
	}
	if err != nil {
		return outcomeError, err
	}
	return c.replay(ctx, *current)
}

func (c *Coordinator) discardCreated(ctx context.Context, userID, serverID string) (outcome, error) {
	err := c.gateway.DeletePlan(ctx, userID, serverID)
	if err == nil || errors.Is(err, gateway.ErrNotFound) {
		return outcomeDropped, nil
	}
	if _, _, qerr := c.queue.Enqueue(ctx, domain.NewDeleteAction(userID, serverID, c.now())); qerr != nil {
		return outcomeError, fmt.Errorf("queueing delete of orphaned plan %s: %w", serverID, qerr)
	}
	return outcomeDropped, nil
}

// ack removes a delivered action. A row rewritten during delivery stays
// queued and triggers another pass.
func (c *Coordinator) ack(ctx context.Context, a domain.OfflineAction) (outcome, error) {
	acked, err := c.queue.Ack(ctx, a)
	if err != nil {
		return outcomeError, fmt.Errorf("acknowledging action %s: %w", a.ID, err)
	}
	if !acked {
		c.rerun.Store(true)
	}
	return outcomeDelivered, nil
}
