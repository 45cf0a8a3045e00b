// Package apiclient is the bearer-token HTTP client for the back-office API.
package apiclient

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

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/telemetry"
)

// TokenSource supplies the bearer credential for a request. An empty token
// with a nil error means the request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Client performs JSON requests against the API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	policy     UnauthorizedPolicy
	metrics    *metrics.Metrics
	logger     *log.Logger
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithPolicy sets how 401 responses and token failures are handled.
func WithPolicy(p UnauthorizedPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithMetrics records request metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     nopPolicy{},
		userAgent:  "finpilot",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrDefault(c.logger).WithComponent("apiclient")
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends one request and decodes a 2xx JSON response into out.
// It never retries. Token acquisition failures and 401 responses are
// handed to the UnauthorizedPolicy before the error is returned.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	token := ""
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		c.metrics.ObserveToken(err == nil)
		if err != nil {
			c.logger.WithError(err).Warn("token acquisition failed", "method", method, "path", path)
			c.policy.OnTokenError(ctx, err)
			return errors.Wrap(errors.ErrCodeTokenUnavailable, "could not obtain an access token", err).
				WithSuggestion("Run 'finpilot auth login' to sign in again")
		}
		token = t
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeAPIRequest, "failed to marshal request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	requestID := uuid.NewString()
	ctx, span := telemetry.StartRequestSpan(ctx, method, path, requestID)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAPIRequest, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		telemetry.RecordError(span, err)
		return errors.Wrap(errors.ErrCodeAPITransport, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp, requestID)
		telemetry.RecordError(span, apiErr)
		if resp.StatusCode == http.StatusUnauthorized {
			c.policy.OnUnauthorized(ctx, apiErr)
		}
		return apiErr.AppError()
	}
	telemetry.RecordSuccess(span)

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAPITransport, "failed to read response", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(errors.ErrCodeAPIResponse, "failed to decode response", err)
	}
	return nil
}

// Upload PUTs r to a presigned object-storage URL. No bearer token is sent.
func (c *Client) Upload(ctx context.Context, presignedURL, contentType string, r io.Reader, size int64) error {
	ctx, span := telemetry.StartRequestSpan(ctx, http.MethodPut, "presigned-upload", uuid.NewString())
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUploadFailed, "failed to create upload request", err)
	}
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(http.MethodPut, 0, time.Since(start))
		telemetry.RecordError(span, err)
		return errors.Wrap(errors.ErrCodeUploadFailed, "upload failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	c.metrics.ObserveRequest(http.MethodPut, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := errors.New(errors.ErrCodeUploadFailed, fmt.Sprintf("Upload failed: %s", statusText(resp)))
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.RecordSuccess(span)
	return nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
