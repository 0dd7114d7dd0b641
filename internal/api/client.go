package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/constructo/acc-issues-mcp/pkg/types"
)

// TokenSource supplies access tokens for outbound requests. Implemented
// by *auth.Manager.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// authRejectedError marks a 401 from the remote API. It is the only
// failure the retry policy treats as recoverable.
type authRejectedError struct {
	apiErr *types.APIError
}

func (e *authRejectedError) Error() string {
	return e.apiErr.Error()
}

// Client issues authenticated requests against the issue-tracking API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	retry      RetryPolicy
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetryPolicy overrides the default one-refresh-one-retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		tokens:     tokens,
		retry:      DefaultRetryPolicy(),
		timeout:    30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Do attaches a valid token, issues the call, and on a 401 performs
// exactly one token refresh and one retry before surfacing the failure.
// Any other error status is surfaced immediately as an APIError carrying
// the remote error payload. A call exceeding the configured deadline
// returns a TimeoutError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	raw, err := doWithRetry(ctx, c.retry, isAuthRejected, func(attempt int) ([]byte, error) {
		token, err := c.tokenForAttempt(ctx, attempt)
		if err != nil {
			return nil, err
		}
		return c.roundTrip(ctx, method, path, query, payload, token)
	})
	if err != nil {
		var rejected *authRejectedError
		if errors.As(err, &rejected) {
			// Retry budget exhausted; surface the remote rejection.
			return rejected.apiErr
		}
		return err
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// tokenForAttempt uses the cached token on the first attempt and forces
// a refresh on the retry after an authentication rejection.
func (c *Client) tokenForAttempt(ctx context.Context, attempt int) (string, error) {
	if attempt == 0 {
		return c.tokens.AccessToken(ctx)
	}
	c.logger.Debug("authentication rejected, refreshing token", "attempt", attempt)
	return c.tokens.ForceRefresh(ctx)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, token string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u, err := c.baseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("outbound request", "method", method, "url", u.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &types.TimeoutError{
				Op:      fmt.Sprintf("%s %s", method, path),
				Timeout: c.timeout,
			}
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &types.TimeoutError{
				Op:      fmt.Sprintf("%s %s", method, path),
				Timeout: c.timeout,
			}
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &authRejectedError{apiErr: remoteError(resp.StatusCode, raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, remoteError(resp.StatusCode, raw)
	}
	return raw, nil
}

func isAuthRejected(err error) bool {
	var rejected *authRejectedError
	return errors.As(err, &rejected)
}

// remoteError builds an APIError from the remote payload, tolerating the
// several error shapes the API uses.
func remoteError(status int, raw []byte) *types.APIError {
	apiErr := &types.APIError{StatusCode: status, Body: string(raw)}

	var payload struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apiErr
	}

	apiErr.Code = payload.Code
	switch {
	case payload.Detail != "":
		apiErr.Detail = payload.Detail
	case payload.Title != "":
		apiErr.Detail = payload.Title
	case len(payload.Errors) > 0:
		parts := make([]string, len(payload.Errors))
		for i, e := range payload.Errors {
			parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
		apiErr.Detail = strings.Join(parts, "; ")
	}
	return apiErr
}
