package domain

import (
	"net/http"
	"net/url"
	"time"
)

// PlansEndpoint is the backend collection path for plans.
const PlansEndpoint = "/api/plans"

// OfflineAction is a durable, replayable record of a plan mutation that has
// not been acknowledged by the backend.
type OfflineAction struct {
	ID        string      `json:"id,omitempty"`
	Type      ActionType  `json:"type"`
	Endpoint  string      `json:"endpoint"`
	Method    string      `json:"method"`
	UserID    string      `json:"userId,omitempty"`
	PlanID    string      `json:"planId,omitempty"`
	Data      *PlanUpdate `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Attempts  int         `json:"attempts,omitempty"`
	LastError string      `json:"lastError,omitempty"`
}

// Time returns the action timestamp.
func (a OfflineAction) Time() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// NewCreateAction records a plan created while offline. The full document
// travels with the action so replay needs nothing else.
func NewCreateAction(userID string, p Plan, at time.Time) OfflineAction {
	doc := p.Document()
	return OfflineAction{
		Type:      ActionCreate,
		Endpoint:  PlansEndpoint,
		Method:    http.MethodPost,
		UserID:    userID,
		PlanID:    p.ID,
		Data:      &doc,
		Timestamp: at.UnixMilli(),
	}
}

// NewUpdateAction records a partial update that could not be delivered.
func NewUpdateAction(userID, planID string, u PlanUpdate, at time.Time) OfflineAction {
	data := u.Clone()
	return OfflineAction{
		Type:      ActionUpdate,
		Endpoint:  PlansEndpoint,
		Method:    http.MethodPut,
		UserID:    userID,
		PlanID:    planID,
		Data:      &data,
		Timestamp: at.UnixMilli(),
	}
}

// NewDeleteAction records a deletion that could not be delivered.
func NewDeleteAction(userID, planID string, at time.Time) OfflineAction {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("planId", planID)
	return OfflineAction{
		Type:      ActionDelete,
		Endpoint:  PlansEndpoint + "?" + q.Encode(),
		Method:    http.MethodDelete,
		UserID:    userID,
		PlanID:    planID,
		Timestamp: at.UnixMilli(),
	}
}

// CollapseActions folds next into the action already queued for the same
// plan so the queue holds at most one action per plan. keep=false means both
// cancel out and nothing should remain queued.
func CollapseActions(existing, next OfflineAction) (merged OfflineAction, keep bool) {
	switch existing.Type {
	case ActionCreate:
		switch next.Type {
		case ActionUpdate:
			merged = existing
			merged.Data = mergeData(existing.Data, next.Data)
			merged.Timestamp = next.Timestamp
			return merged, true
		case ActionDelete:
			return OfflineAction{}, false
		}
	case ActionUpdate:
		switch next.Type {
		case ActionUpdate:
			merged = existing
			merged.Data = mergeData(existing.Data, next.Data)
			merged.Timestamp = next.Timestamp
			return merged, true
		case ActionDelete:
			next.ID = existing.ID
			return next, true
		}
	case ActionDelete:
		if next.Type == ActionUpdate {
			return existing, true
		}
	}
	next.ID = existing.ID
	return next, true
}

func mergeData(a, b *PlanUpdate) *PlanUpdate {
	var base PlanUpdate
	if a != nil {
		base = *a
	}
	if b == nil {
		out := base.Clone()
		return &out
	}
	out := base.Merge(*b)
	return &out
}
