package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stepwise/internal/api"
	"stepwise/internal/config"
)

// ErrUnavailable is returned when no daemon answers on the API address.
var ErrUnavailable = errors.New("daemon unavailable")

const defaultRequestTimeout = 15 * time.Second

// Client is a thin JSON client for the daemon API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// LogQuery selects buffered log events.
type LogQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	SessionID string
	Component string
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Code    int
	Message string
	Status  string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("daemon returned %d (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
}

// NewClient builds a client for the configured API address. addr overrides
// paths.api_bind when set.
func NewClient(cfg *config.Config, addr string) (*Client, error) {
	bind := strings.TrimSpace(addr)
	token := ""
	if cfg != nil {
		if bind == "" {
			bind = cfg.Paths.APIBind
		}
		token = cfg.Paths.APIToken
	}
	return NewClientForURL(bind, token, nil)
}

// NewClientForURL builds a client for base. A nil httpClient uses a client
// with a request timeout.
func NewClientForURL(base, token string, httpClient *http.Client) (*Client, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, errors.New("api address is required")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{base: parsed, token: strings.TrimSpace(token), http: httpClient}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.base.String() }

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// Tasks lists the served task variants.
func (c *Client) Tasks(ctx context.Context) ([]api.TaskSummary, error) {
	var out api.TaskListResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks", nil, nil, &out)
	return out.Tasks, err
}

// Task returns the steps and classes of one variant.
func (c *Client) Task(ctx context.Context, name string) (api.TaskDetail, error) {
	var out api.TaskDetail
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(name), nil, nil, &out)
	return out, err
}

// Evaluate runs one stateless evaluation on the daemon.
func (c *Client) Evaluate(ctx context.Context, task string, req api.EvaluateRequest) (api.EvaluateResponse, error) {
	var out api.EvaluateResponse
	err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(task)+"/evaluate", nil, req, &out)
	return out, err
}

// Sessions lists live frame sessions.
func (c *Client) Sessions(ctx context.Context) ([]api.SessionInfo, error) {
	var out api.SessionListResponse
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, nil, &out)
	return out.Sessions, err
}

// Handoffs lists pending hand-offs.
func (c *Client) Handoffs(ctx context.Context) ([]api.HandoffTicket, error) {
	var out api.HandoffListResponse
	err := c.do(ctx, http.MethodGet, "/api/handoffs", nil, nil, &out)
	return out.Handoffs, err
}

// Resume reports the step a suspended session continues at.
func (c *Client) Resume(ctx context.Context, token, step string) (api.ResumeResponse, error) {
	var out api.ResumeResponse
	err := c.do(ctx, http.MethodPost, "/api/handoffs/"+url.PathEscape(token)+"/resume", nil, api.ResumeRequest{Step: step}, &out)
	return out, err
}

// Logs fetches buffered log events.
func (c *Client) Logs(ctx context.Context, q LogQuery) (api.LogStreamResponse, error) {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.SessionID != "" {
		values.Set("session", q.SessionID)
	}
	if q.Component != "" {
		values.Set("component", q.Component)
	}
	var out api.LogStreamResponse
	err := c.do(ctx, http.MethodGet, "/api/logs", values, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapTransportError(err, c.base.Host)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Code: resp.StatusCode, Message: apiErr.Error, Status: apiErr.Status}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func wrapTransportError(err error, host string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: nothing listening on %s; start the daemon with `stepwise start`", ErrUnavailable, host)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
