package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/google/uuid"
)

// RecordedRequest is one call the fake backend received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// FakeBackend is an in-memory /api/plans document store served over
// httptest. Failures can be injected per HTTP method, requests can be held
// open, and SetDown makes every call fail at the transport level.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	plans    map[string][]domain.Plan
	failures map[string]int
	blocked  map[string]chan struct{}
	down     bool
	requests []RecordedRequest
}

// NewFakeBackend starts a fake backend that is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		plans:    make(map[string][]domain.Plan),
		failures: make(map[string]int),
		blocked:  make(map[string]chan struct{}),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(func() {
		f.mu.Lock()
		for m, ch := range f.blocked {
			close(ch)
			delete(f.blocked, m)
		}
		f.mu.Unlock()
		f.Server.Close()
	})
	return f
}

func (f *FakeBackend) URL() string { return f.Server.URL }

// Seed stores plans for userID as if they had been created earlier.
func (f *FakeBackend) Seed(userID string, plans ...domain.Plan) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range plans {
		f.plans[userID] = append(f.plans[userID], p.Clone())
	}
}

// Plans returns a copy of the stored plans for userID.
func (f *FakeBackend) Plans(userID string) []domain.Plan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.ClonePlans(f.plans[userID])
}

// Plan returns one stored plan.
func (f *FakeBackend) Plan(userID, planID string) (domain.Plan, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(userID, planID)
	if i < 0 {
		return domain.Plan{}, false
	}
	return f.plans[userID][i].Clone(), true
}

// FailWith makes every request with the given method answer status until
// ClearFailures is called.
func (f *FakeBackend) FailWith(method string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = status
}

func (f *FakeBackend) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]int)
}

// SetDown drops every connection without a response while down is true.
func (f *FakeBackend) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// Block holds requests with the given method until release is called.
func (f *FakeBackend) Block(method string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.blocked[method] = ch
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.blocked[method] == ch {
			delete(f.blocked, method)
			close(ch)
		}
	}
}

// Requests returns every request received so far, in arrival order.
func (f *FakeBackend) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// CountRequests counts received requests with the given method.
func (f *FakeBackend) CountRequests(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body),
	})
	gate := f.blocked[r.Method]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	down := f.down
	status := f.failures[r.Method]
	f.mu.Unlock()

	if down {
		dropConnection(w)
		return
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, domain.PlansEndpoint+"/public/"):
		f.servePublic(w, r)
	case r.URL.Path == domain.PlansEndpoint:
		f.servePlans(w, r, body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	}
}

func (f *FakeBackend) servePlans(w http.ResponseWriter, r *http.Request, body []byte) {
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User ID is required"})
			return
		}
		f.mu.Lock()
		if len(f.plans[userID]) == 0 {
			def := domain.NewPlan(domain.DefaultPlanID, domain.DefaultPlanName, domain.DefaultPlanColor)
			f.plans[userID] = []domain.Plan{def}
		}
		plans := domain.ClonePlans(f.plans[userID])
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, plans)
	case http.MethodPost:
		var req struct {
			UserID string `json:"userId"`
			Name   string `json:"name"`
			Color  string `json:"color"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.UserID == "" || req.Name == "" || req.Color == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields: userId, name, color"})
			return
		}
		p := domain.NewPlan(uuid.New().String(), req.Name, req.Color)
		f.mu.Lock()
		f.plans[req.UserID] = append(f.plans[req.UserID], p)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, p)
	case http.MethodPut:
		var req struct {
			UserID  string             `json:"userId"`
			PlanID  string             `json:"planId"`
			Updates *domain.PlanUpdate `json:"updates"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.UserID == "" || req.PlanID == "" || req.Updates == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields: userId, planId, updates"})
			return
		}
		f.mu.Lock()
		i := f.indexLocked(req.UserID, req.PlanID)
		if i >= 0 {
			f.plans[req.UserID][i] = req.Updates.Apply(f.plans[req.UserID][i])
		}
		f.mu.Unlock()
		if i < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Plan not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case http.MethodDelete:
		userID, planID := r.URL.Query().Get("userId"), r.URL.Query().Get("planId")
		if userID == "" || planID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User ID and Plan ID are required"})
			return
		}
		f.mu.Lock()
		i := f.indexLocked(userID, planID)
		if i >= 0 {
			f.plans[userID] = append(f.plans[userID][:i], f.plans[userID][i+1:]...)
		}
		f.mu.Unlock()
		if i < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Plan not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeBackend) servePublic(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, domain.PlansEndpoint+"/public/"), "/")
	if len(parts) != 2 || r.Method != http.MethodGet {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Plan not found"})
		return
	}
	p, ok := f.Plan(parts[0], parts[1])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Plan not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeBackend) indexLocked(userID, planID string) int {
	for i, p := range f.plans[userID] {
		if p.ID == planID {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// dropConnection closes the underlying connection so the client sees a
// transport error instead of an HTTP status.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}
