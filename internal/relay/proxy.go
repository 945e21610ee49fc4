package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/alexanderramin/weekendly/internal/repository"
	"github.com/google/uuid"
)

const maxBody = 1 << 20

// CacheHeader marks responses served from the local cache.
const CacheHeader = "X-Weekendly-Cache"

// cacheKey locates the cache entry a GET maps to.
func cacheKey(r *http.Request) (userID, planID string, ok bool) {
	if r.URL.Path == domain.PlansEndpoint {
		userID = r.URL.Query().Get("userId")
		return userID, repository.ListKey, userID != ""
	}
	rest, found := strings.CutPrefix(r.URL.Path, domain.PlansEndpoint+"/public/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (w *Worker) handlePlans(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBody))
	if err != nil {
		writeJSON(rw, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return
	}

	if w.online() {
		status, resp, err := w.upstream.Forward(r.Context(), r.Method, r.URL.RequestURI(), body)
		if err == nil {
			w.afterForward(r.Context(), r, body, status, resp)
			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(status)
			_, _ = rw.Write(resp)
			return
		}
		if !gateway.IsOffline(err) {
			w.logger.Error("relay forward failed", "method", r.Method, "path", r.URL.Path, "error", err)
			writeJSON(rw, http.StatusBadGateway, errorBody{Error: "upstream request failed"})
			return
		}
		w.logger.Warn("relay upstream unreachable", "method", r.Method, "path", r.URL.Path)
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		w.serveCached(rw, r)
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		w.queueWrite(rw, r, body)
	default:
		writeJSON(rw, http.StatusServiceUnavailable, errorBody{Error: "offline"})
	}
}

// afterForward keeps the cache in step with a successful upstream answer.
func (w *Worker) afterForward(ctx context.Context, r *http.Request, body []byte, status int, resp []byte) {
	if status < 200 || status >= 300 {
		return
	}
	if r.Method == http.MethodGet {
		userID, planID, ok := cacheKey(r)
		if !ok {
			return
		}
		if err := w.cache.Put(ctx, userID, planID, resp); err != nil {
			w.logger.Warn("relay cache write failed", "user_id", userID, "plan_id", planID, "error", err)
		}
		if planID == repository.ListKey {
			w.cachePlans(ctx, userID, resp)
		}
		return
	}
	// A write makes the cached list stale.
	if userID := writeUserID(r, body); userID != "" {
		if err := w.cache.Delete(ctx, userID, repository.ListKey); err != nil {
			w.logger.Warn("relay cache evict failed", "user_id", userID, "error", err)
		}
	}
}

// cachePlans stores every plan of a list response on its own so public
// GETs can be answered offline.
func (w *Worker) cachePlans(ctx context.Context, userID string, resp []byte) {
	var plans []json.RawMessage
	if err := json.Unmarshal(resp, &plans); err != nil {
		return
	}
	for _, raw := range plans {
		var head struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(raw, &head) != nil || head.ID == "" {
			continue
		}
		if err := w.cache.Put(ctx, userID, head.ID, raw); err != nil {
			w.logger.Warn("relay cache write failed", "user_id", userID, "plan_id", head.ID, "error", err)
		}
	}
}

func (w *Worker) serveCached(rw http.ResponseWriter, r *http.Request) {
	userID, planID, ok := cacheKey(r)
	if !ok {
		writeJSON(rw, http.StatusServiceUnavailable, errorBody{Error: "offline"})
		return
	}
	cached, err := w.cache.Get(r.Context(), userID, planID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(rw, http.StatusServiceUnavailable, errorBody{Error: "Offline and no cached data"})
		return
	}
	if err != nil {
		w.logger.Error("relay cache read failed", "error", err)
		writeJSON(rw, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	body := cached.Body
	if planID != repository.ListKey {
		var found bool
		body, found, err = w.withQueued(r.Context(), userID, planID, body)
		if err != nil {
			w.logger.Error("relay queue read failed", "user_id", userID, "plan_id", planID, "error", err)
			writeJSON(rw, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		if !found {
			writeJSON(rw, http.StatusNotFound, errorBody{Error: "Plan not found"})
			return
		}
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set(CacheHeader, "hit")
	rw.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = rw.Write(body)
	}
}

// withQueued lays the write queued for a plan over its cached body, so an
// offline read sees offline writes. found is false when a delete is queued.
func (w *Worker) withQueued(ctx context.Context, userID, planID string, body []byte) ([]byte, bool, error) {
	a, err := w.queue.GetByPlan(ctx, userID, planID)
	if errors.Is(err, repository.ErrNotFound) {
		return body, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if a.Type == domain.ActionDelete {
		return nil, false, nil
	}
	if a.Data == nil {
		return body, true, nil
	}
	var plan domain.Plan
	if err := json.Unmarshal(body, &plan); err != nil {
		return body, true, nil
	}
	out, err := json.Marshal(a.Data.Apply(plan))
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

type queuedReply struct {
	Queued bool   `json:"queued"`
	ID     string `json:"id"`
	PlanID string `json:"planId"`
}

// queueWrite records an offline write as an OfflineAction, with the same
// validation the backend applies to the request.
func (w *Worker) queueWrite(rw http.ResponseWriter, r *http.Request, body []byte) {
	a, err := w.actionFor(r, body)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	stored, kept, err := w.queue.Enqueue(r.Context(), a)
	if err != nil {
		w.logger.Error("relay queue write failed", "error", err)
		writeJSON(rw, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	if kept {
		a.ID = stored.ID
	}
	if err := w.cache.Delete(r.Context(), a.UserID, repository.ListKey); err != nil {
		w.logger.Warn("relay cache evict failed", "user_id", a.UserID, "error", err)
	}
	writeJSON(rw, http.StatusAccepted, queuedReply{Queued: true, ID: a.ID, PlanID: a.PlanID})
}

func (w *Worker) actionFor(r *http.Request, body []byte) (domain.OfflineAction, error) {
	now := w.now()
	if r.URL.Path != domain.PlansEndpoint {
		return domain.OfflineAction{}, fmt.Errorf("cannot queue %s %s", r.Method, r.URL.Path)
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			UserID string `json:"userId"`
			Name   string `json:"name"`
			Color  string `json:"color"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.UserID == "" || req.Name == "" || req.Color == "" {
			return domain.OfflineAction{}, errors.New("Missing required fields: userId, name, color")
		}
		plan := domain.NewPlan(uuid.New().String(), req.Name, req.Color)
		return domain.NewCreateAction(req.UserID, plan, now), nil

	case http.MethodPut:
		var req struct {
			UserID  string             `json:"userId"`
			PlanID  string             `json:"planId"`
			Updates *domain.PlanUpdate `json:"updates"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.UserID == "" || req.PlanID == "" || req.Updates == nil {
			return domain.OfflineAction{}, errors.New("Missing required fields: userId, planId, updates")
		}
		return domain.NewUpdateAction(req.UserID, req.PlanID, *req.Updates, now), nil

	default:
		userID, planID := r.URL.Query().Get("userId"), r.URL.Query().Get("planId")
		if userID == "" || planID == "" {
			return domain.OfflineAction{}, errors.New("User ID and Plan ID are required")
		}
		return domain.NewDeleteAction(userID, planID, now), nil
	}
}

// writeUserID finds the user a write belongs to, from the query or the
// JSON body.
func writeUserID(r *http.Request, body []byte) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	var req struct {
		UserID string `json:"userId"`
	}
	_ = json.Unmarshal(body, &req)
	return req.UserID
}
