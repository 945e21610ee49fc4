package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
)

// PlanGateway is the backend surface the store and the sync coordinator
// depend on. It is implemented by *Client.
type PlanGateway interface {
	// ListPlans loads every plan of the user. The backend creates and
	// returns a default plan when the user has none.
	ListPlans(ctx context.Context, userID string) ([]domain.Plan, error)
	CreatePlan(ctx context.Context, userID, name, color string) (domain.Plan, error)
	UpdatePlan(ctx context.Context, userID, planID string, updates domain.PlanUpdate) error
	DeletePlan(ctx context.Context, userID, planID string) error
	GetPublicPlan(ctx context.Context, userID, planID string) (domain.Plan, error)
	Ping(ctx context.Context) error
}

var _ PlanGateway = (*Client)(nil)

// Client talks to the plans HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

const (
	defaultBaseURL   = "http://127.0.0.1:3000"
	defaultUserAgent = "weekendly/0.1"

	// DefaultTimeout bounds every request; a request that exceeds it is
	// reported as ErrOffline.
	DefaultTimeout = 8 * time.Second
)

// NewClient builds a Client for the backend at baseURL. A non-positive
// timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{},
		timeout:   timeout,
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ShareURL is the public view link for a plan.
func (c *Client) ShareURL(userID, planID string) string {
	rel := &url.URL{Path: "/view/" + url.PathEscape(userID) + "/" + url.PathEscape(planID)}
	return c.baseURL.ResolveReference(rel).String()
}

func (c *Client) ListPlans(ctx context.Context, userID string) ([]domain.Plan, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("list plans: user id is required: %w", ErrInvalidRequest)
	}
	values := url.Values{}
	values.Set("userId", userID)
	rel := &url.URL{Path: domain.PlansEndpoint, RawQuery: values.Encode()}
	var plans []domain.Plan
	if err := c.do(ctx, "list plans", http.MethodGet, rel, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

type createRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

func (c *Client) CreatePlan(ctx context.Context, userID, name, color string) (domain.Plan, error) {
	body := createRequest{UserID: userID, Name: name, Color: color}
	var plan domain.Plan
	if err := c.do(ctx, "create plan", http.MethodPost, &url.URL{Path: domain.PlansEndpoint}, body, &plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

type updateRequest struct {
	UserID  string            `json:"userId"`
	PlanID  string            `json:"planId"`
	Updates domain.PlanUpdate `json:"updates"`
}

func (c *Client) UpdatePlan(ctx context.Context, userID, planID string, updates domain.PlanUpdate) error {
	body := updateRequest{UserID: userID, PlanID: planID, Updates: updates}
	return c.do(ctx, "update plan", http.MethodPut, &url.URL{Path: domain.PlansEndpoint}, body, nil)
}

func (c *Client) DeletePlan(ctx context.Context, userID, planID string) error {
	values := url.Values{}
	values.Set("userId", userID)
	values.Set("planId", planID)
	rel := &url.URL{Path: domain.PlansEndpoint, RawQuery: values.Encode()}
	return c.do(ctx, "delete plan", http.MethodDelete, rel, nil, nil)
}

func (c *Client) GetPublicPlan(ctx context.Context, userID, planID string) (domain.Plan, error) {
	rel := &url.URL{Path: domain.PlansEndpoint + "/public/" + url.PathEscape(userID) + "/" + url.PathEscape(planID)}
	var plan domain.Plan
	if err := c.do(ctx, "get public plan", http.MethodGet, rel, nil, &plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

// Ping issues a HEAD request against the plans collection. Any HTTP answer
// counts as reachable; only transport failures report ErrOffline.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, "ping", http.MethodHead, &url.URL{Path: domain.PlansEndpoint}, nil, nil)
	if IsOffline(err) {
		return err
	}
	return nil
}

// Forward replays a raw request against the backend and returns the
// response status and body. It is used by the relay, which proxies
// requests it does not interpret.
func (c *Client) Forward(ctx context.Context, method, pathAndQuery string, body []byte) (int, []byte, error) {
	rel, err := url.Parse(pathAndQuery)
	if err != nil {
		return 0, nil, fmt.Errorf("parse forward path %q: %w", pathAndQuery, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(rel).String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("forward %s %s: %w: %v", method, rel.Path, ErrOffline, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("forward %s %s: %w: %v", method, rel.Path, ErrOffline, err)
	}
	return resp.StatusCode, data, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshaling request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(rel).String(), reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if parent.Err() != nil {
			return fmt.Errorf("%s: %w", op, parent.Err())
		}
		return fmt.Errorf("%s: %w: %v", op, ErrOffline, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var eb errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &eb)
		return &StatusError{Op: op, Status: resp.StatusCode, Message: eb.Error}
	}
	if dest == nil || method == http.MethodHead {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if ctx.Err() != nil && parent.Err() == nil {
			return fmt.Errorf("%s: %w: %v", op, ErrOffline, err)
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
