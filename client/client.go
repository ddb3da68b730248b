package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/agents"
)

const DefaultBaseURL = "http://localhost:8000"

// APIError is a non 2xx response from the server
type APIError struct {
	Status int
	Detail string
	Errors map[string]string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Detail)
	}
	fields := make([]string, 0, len(e.Errors))
	for k, v := range e.Errors {
		fields = append(fields, k+": "+v)
	}
	return fmt.Sprintf("server error (%d): %s (%s)", e.Status, e.Detail, strings.Join(fields, ", "))
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to the agents API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a new API client
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying http client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, email, password string) (*auth.UserSummary, error) {
	var resp auth.UserSummary
	if err := c.do(ctx, http.MethodPost, "/register", "", credentials{email, password}, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	var resp auth.LoginResult
	if err := c.do(ctx, http.MethodPost, "/login", "", credentials{email, password}, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) Me(ctx context.Context, token string) (*auth.UserSummary, error) {
	var resp auth.UserSummary
	if err := c.do(ctx, http.MethodGet, "/me", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context, token string) (*auth.LogoutConfirmation, error) {
	var resp auth.LogoutConfirmation
	if err := c.do(ctx, http.MethodPost, "/logout", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("logout request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) User(ctx context.Context, id int64) (*auth.UserSummary, error) {
	var resp auth.UserSummary
	if err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), "", nil, &resp); err != nil {
		return nil, fmt.Errorf("get user request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) Users(ctx context.Context) (*auth.UsersList, error) {
	var resp auth.UsersList
	if err := c.do(ctx, http.MethodGet, "/users/", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("list users request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) Agents(ctx context.Context) (*agents.Catalogue, error) {
	var resp agents.Catalogue
	if err := c.do(ctx, http.MethodGet, "/agents", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("list agents request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) Sessions(ctx context.Context, token, agentID string) (*agents.SessionsList, error) {
	var resp agents.SessionsList
	path := "/agents/" + url.PathEscape(agentID) + "/sessions"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list sessions request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp auth.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Detail != "" {
			apiErr.Detail = errResp.Detail
			apiErr.Errors = errResp.Errors
		} else {
			apiErr.Detail = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
