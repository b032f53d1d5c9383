package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "LABHUB_HTTP_TIMEOUT"
	apiTokenEnvKey     = "LABHUB_API_TOKEN"
)

// Client is a simple HTTP client for the labhub API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// WithToken returns a copy of the client that sends token as bearer credentials.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.authToken = strings.TrimSpace(token)
	return &clone
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) ListLabs(ctx context.Context) ([]Lab, error) {
	var resp []Lab
	err := c.do(ctx, http.MethodGet, "/v1/labs", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetLab(ctx context.Context, code int64) (Lab, error) {
	var resp Lab
	err := c.do(ctx, http.MethodGet, labPath(code), nil, nil, &resp)
	return resp, err
}

func (c *Client) DeleteLab(ctx context.Context, code int64) error {
	return c.do(ctx, http.MethodDelete, labPath(code), nil, nil, nil)
}

func (c *Client) CountFollowers(ctx context.Context, code int64) (CountResponse, error) {
	var resp CountResponse
	err := c.do(ctx, http.MethodGet, labPath(code)+"/followers/count", nil, nil, &resp)
	return resp, err
}

func (c *Client) AdminLogin(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/login", nil, req, &resp)
	return resp, err
}

func labPath(code int64) string {
	return "/v1/labs/" + url.PathEscape(strconv.FormatInt(code, 10))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = "api error: " + resp.Status
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
