// Package apiclient talks to the taskdeck REST API. Every endpoint
// answers with the pkg/response envelope; failures come back as *Error
// so callers can tell rejections from outages.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/report"
	"taskdeck/pkg/response"
)

const (
	apiPrefix      = "/api/v1"
	DefaultTimeout = 15 * time.Second
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends one request and decodes the envelope's data into out (which
// may be nil). Transport failures are returned wrapped; any non-2xx
// answer becomes *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	var env response.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 || (decodeErr == nil && !env.Success) {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Method: method, Path: path, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode data: %w", method, path, err)
	}
	return nil
}

// Ping checks that the API is reachable. It is the connectivity probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, apiPrefix+"/health", nil, nil, nil)
}

// Register creates an account and keeps the returned access token.
func (c *Client) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Login authenticates and keeps the returned access token.
func (c *Client) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.TokenResponse, error) {
	var out domain.TokenResponse
	body := domain.RefreshTokenRequest{RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/refresh", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/logout", nil, nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/users/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tasks is the task collection.
func (c *Client) Tasks() *Resource {
	return &Resource{client: c, path: apiPrefix + "/tasks"}
}

// Knowledge is the knowledge-entry collection.
func (c *Client) Knowledge() *Resource {
	return &Resource{client: c, path: apiPrefix + "/knowledge"}
}

// KnowledgeTags lists every tag used by the caller's knowledge entries.
func (c *Client) KnowledgeTags(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/knowledge/tags", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Sprints(ctx context.Context) ([]*domain.Sprint, error) {
	var out []*domain.Sprint
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/sprints", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Sprint(ctx context.Context, id string) (*domain.SprintWithTasks, error) {
	out := domain.SprintWithTasks{Sprint: &domain.Sprint{}}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/sprints/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SprintBurndown(ctx context.Context, id string) (*report.Burndown, error) {
	var out report.Burndown
	path := apiPrefix + "/sprints/" + url.PathEscape(id) + "/burndown"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Insights fetches the dashboard report over the last days days.
func (c *Client) Insights(ctx context.Context, days int) (*report.Insights, error) {
	var query url.Values
	if days > 0 {
		query = url.Values{"days": {strconv.Itoa(days)}}
	}
	var out report.Insights
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/reports/insights", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
