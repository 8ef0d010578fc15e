// Package api is a typed client for the outreach HTTP JSON API: search tasks,
// deduplicated results, the influencer store, email drafts and campaigns.
//
// The client never retries. Every failure is classified as a NetworkError,
// ServerError or ValidationError (see errors.go) and handed back to the caller,
// which decides whether the user should re-trigger the action.
package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL matches the development server's API prefix.
	DefaultBaseURL = "http://localhost:8000/api/v1"

	// DefaultTimeout bounds every request so a stuck server cannot hold a
	// poll open forever.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept as error text.
	maxErrorBody = 64 << 10
)

// Client talks to the outreach API.
type Client struct {
	baseURL  string
	userID   string
	client   *http.Client
	logger   *zap.Logger
	observer func(Call)
}

// Call describes one finished request. Status is 0 when no response arrived.
type Call struct {
	Op        string
	Method    string
	RequestID string
	Status    int
	Elapsed   time.Duration
	Err       error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithUserID sends X-User-Id on every request.
func WithUserID(id string) Option {
	return func(c *Client) { c.userID = strings.TrimSpace(id) }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers fn to be called after every request. fn runs on the
// goroutine that issued the request.
func WithObserver(fn func(Call)) Option {
	return func(c *Client) { c.observer = fn }
}

// NewClient creates a client for baseURL (e.g. http://localhost:8000/api/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Health checks GET /health on the server root.
func (c *Client) Health(ctx context.Context) (Health, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Health{}, fmt.Errorf("health: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	var out Health
	err = c.doURL(ctx, "health", http.MethodGet, u.String(), nil, &out)
	return out, err
}

// ValidateID checks that id is a UUID, as every resource id of the API is.
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return Validation(field, "must not be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Validation(field, fmt.Sprintf("%q is not a UUID", id))
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.doURL(ctx, op, method, target, body, out)
}

func (c *Client) doURL(ctx context.Context, op, method, target string, body, out any) error {
	requestID := uuid.NewString()
	start := time.Now()
	status, err := c.roundTrip(ctx, op, method, target, requestID, body, out)
	if c.observer != nil {
		c.observer(Call{
			Op:        op,
			Method:    method,
			RequestID: requestID,
			Status:    status,
			Elapsed:   time.Since(start),
			Err:       err,
		})
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, target, requestID string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &ServerError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(data),
			Detail:     parseDetail(data),
		}
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, &ServerError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     "malformed response body",
			Err:        err,
		}
	}
	return resp.StatusCode, nil
}

func pageQuery(opts ListOptions) url.Values {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(opts.Limit))
	q.Set("offset", fmt.Sprint(opts.Offset))
	return q
}

func validatePage(opts ListOptions, maxLimit int) error {
	if opts.Limit < 1 || opts.Limit > maxLimit {
		return Validation("limit", fmt.Sprintf("must be between 1 and %d", maxLimit))
	}
	if opts.Offset < 0 {
		return Validation("offset", "must not be negative")
	}
	return nil
}
