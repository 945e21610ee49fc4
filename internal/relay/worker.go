// Package relay is the local cache layer in front of the plans API. It
// answers the installed-worker message protocol and proxies /api/plans,
// serving cached plans and recording writes for replay while the backend is
// unreachable.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/repository"
)

// Version names the cache generation, like the worker's cache name.
const Version = "weekendly-v1"

// Message types accepted by Handle.
const (
	MsgSkipWaiting      = "SKIP_WAITING"
	MsgGetVersion       = "GET_VERSION"
	MsgCachePlan        = "CACHE_PLAN"
	MsgQueueSync        = "QUEUE_SYNC"
	MsgGetOfflineStatus = "GET_OFFLINE_STATUS"
)

// Reply types.
const (
	ReplyOfflineStatus = "OFFLINE_STATUS"
	ReplyVersion       = "VERSION"
	ReplyActivated     = "ACTIVATED"
	ReplyCached        = "CACHED"
	ReplyQueued        = "QUEUED"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidMessage = errors.New("invalid message")
)

// Message is one protocol message. UserID scopes CACHE_PLAN entries.
type Message struct {
	Type   string          `json:"type"`
	UserID string          `json:"userId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Reply answers a Message.
type Reply struct {
	Type      string `json:"type"`
	Version   string `json:"version,omitempty"`
	IsOffline *bool  `json:"isOffline,omitempty"`
	ID        string `json:"id,omitempty"`
}

// Forwarder sends a raw request upstream. *gateway.Client implements it.
type Forwarder interface {
	Forward(ctx context.Context, method, pathAndQuery string, body []byte) (int, []byte, error)
}

// Network reports connectivity. *netstatus.Monitor implements it.
type Network interface {
	Online() bool
}

// Kicker asks the sync coordinator to drain.
type Kicker interface {
	Kick()
}

// Worker holds the relay state. It is an http.Handler.
type Worker struct {
	upstream Forwarder
	cache    repository.PlanCache
	queue    repository.ActionQueue
	network  Network
	kicker   Kicker
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	activated bool

	mux *http.ServeMux
}

// Option configures a Worker.
type Option func(*Worker)

func WithNetwork(n Network) Option {
	return func(w *Worker) { w.network = n }
}

func WithKicker(k Kicker) Option {
	return func(w *Worker) { w.kicker = k }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker creates a relay in front of upstream.
func NewWorker(upstream Forwarder, cache repository.PlanCache, queue repository.ActionQueue, opts ...Option) *Worker {
	w := &Worker{
		upstream: upstream,
		cache:    cache,
		queue:    queue,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.mux = http.NewServeMux()
	w.mux.HandleFunc("POST /sw/message", w.handleMessage)
	w.mux.HandleFunc(domain.PlansEndpoint, w.handlePlans)
	w.mux.HandleFunc(domain.PlansEndpoint+"/", w.handlePlans)
	return w
}

func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.mux.ServeHTTP(rw, r)
}

// Activated reports whether SKIP_WAITING has been received.
func (w *Worker) Activated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activated
}

func (w *Worker) online() bool {
	return w.network == nil || w.network.Online()
}

// Handle answers one protocol message.
func (w *Worker) Handle(ctx context.Context, msg Message) (Reply, error) {
	switch msg.Type {
	case MsgSkipWaiting:
		w.mu.Lock()
		w.activated = true
		w.mu.Unlock()
		return Reply{Type: ReplyActivated}, nil

	case MsgGetVersion:
		return Reply{Type: ReplyVersion, Version: Version}, nil

	case MsgGetOfflineStatus:
		offline := !w.online()
		return Reply{Type: ReplyOfflineStatus, IsOffline: &offline}, nil

	case MsgCachePlan:
		var plan domain.Plan
		if err := json.Unmarshal(msg.Data, &plan); err != nil || plan.ID == "" {
			return Reply{}, fmt.Errorf("%w: CACHE_PLAN needs a plan with an id", ErrInvalidMessage)
		}
		body, err := json.Marshal(plan)
		if err != nil {
			return Reply{}, err
		}
		if err := w.cache.Put(ctx, msg.UserID, plan.ID, body); err != nil {
			return Reply{}, err
		}
		return Reply{Type: ReplyCached, ID: plan.ID}, nil

	case MsgQueueSync:
		var a domain.OfflineAction
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			return Reply{}, fmt.Errorf("%w: QUEUE_SYNC: %v", ErrInvalidMessage, err)
		}
		if err := validateAction(a); err != nil {
			return Reply{}, err
		}
		stored, _, err := w.queue.Enqueue(ctx, a)
		if err != nil {
			return Reply{}, err
		}
		w.kick()
		return Reply{Type: ReplyQueued, ID: stored.ID}, nil

	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func validateAction(a domain.OfflineAction) error {
	switch a.Type {
	case domain.ActionCreate, domain.ActionUpdate:
		if a.Data == nil {
			return fmt.Errorf("%w: %s action needs data", ErrInvalidMessage, a.Type)
		}
	case domain.ActionDelete:
	default:
		return fmt.Errorf("%w: action type %q", ErrInvalidMessage, a.Type)
	}
	if a.PlanID == "" {
		return fmt.Errorf("%w: action needs a planId", ErrInvalidMessage)
	}
	return nil
}

func (w *Worker) kick() {
	if w.kicker != nil && w.online() {
		w.kicker.Kick()
	}
}

func (w *Worker) handleMessage(rw http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxBody)).Decode(&msg); err != nil {
		writeJSON(rw, http.StatusBadRequest, errorBody{Error: "invalid message"})
		return
	}
	reply, err := w.Handle(r.Context(), msg)
	switch {
	case err == nil:
		writeJSON(rw, http.StatusOK, reply)
	case errors.Is(err, ErrUnknownMessage), errors.Is(err, ErrInvalidMessage):
		writeJSON(rw, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		w.logger.Error("relay message failed", "type", msg.Type, "error", err)
		writeJSON(rw, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
