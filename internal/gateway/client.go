// Package gateway issues outbound HTTP calls to the Sasai payment gateway
// and maps every failure mode into the shared error taxonomy.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Default client settings, used when the corresponding Config field is zero.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

// Config holds client-wide settings shared by every call.
type Config struct {
	// Timeout bounds a single attempt, including body read.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Retries
	// apply to transport failures and transient statuses only; terminal
	// statuses (401, 404, 422, ...) fail exactly once.
	MaxRetries int

	// UserAgent is sent on every request.
	UserAgent string

	// DefaultHeaders are attached to every request (device/tenant headers).
	DefaultHeaders map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets a custom base transport. If not provided,
// http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.http.HTTPClient.Transport = transport
	}
}

// Client performs single outbound HTTP calls with optional auth attachment.
// It is stateless across calls and safe for concurrent use.
type Client struct {
	http           *retryablehttp.Client
	userAgent      string
	defaultHeaders map[string]string
}

// Request describes one outbound call.
type Request struct {
	// Endpoint is the full target URL.
	Endpoint string

	// Method is the HTTP method (GET or POST).
	Method string

	// Token is the bearer credential to attach, empty when unauthenticated.
	Token string

	// Query holds URL query parameters, may be nil.
	Query url.Values

	// Body is JSON-encoded as the request body when non-nil.
	Body any

	// Headers are per-call headers supplied by the tool layer.
	Headers map[string]string

	// RequireAuth makes the call fail before any network I/O when Token is
	// empty.
	RequireAuth bool
}

// New creates a Client. The zero Config is usable; defaults apply.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.HTTPClient.Timeout = timeout
	rc.Logger = retryLogger{}
	// Keep the final response on exhausted retries so status and body can be
	// mapped into an APIError instead of a generic give-up error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		http:           rc,
		userAgent:      cfg.UserAgent,
		defaultHeaders: cfg.DefaultHeaders,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one HTTP call and returns the decoded 200 response body.
//
// Failure mapping:
//   - RequireAuth with no token: AuthenticationError, no network I/O.
//   - non-200 status: APIError carrying status, endpoint, and body text.
//   - 200 with malformed JSON: APIError naming the decode failure.
//   - transport failure (refused, timeout, DNS): APIError summarizing the
//     failure; transport error types never cross this boundary.
func (c *Client) Call(ctx context.Context, r Request) (map[string]any, error) {
	if r.RequireAuth && r.Token == "" {
		return nil, &AuthenticationError{Message: "authenticated call attempted with no token available"}
	}

	target := r.Endpoint
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var payload []byte
	if r.Body != nil {
		var err error
		payload, err = json.Marshal(r.Body)
		if err != nil {
			return nil, &APIError{Endpoint: r.Endpoint, Message: "encoding request body: " + err.Error()}
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, r.Method, target, payload)
	if err != nil {
		return nil, &APIError{Endpoint: r.Endpoint, Message: "building request: " + err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Endpoint: r.Endpoint, Message: transportMessage(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: r.Endpoint, Message: "reading response body: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: r.Endpoint, Message: string(body)}
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: r.Endpoint, Message: "invalid JSON in response: " + err.Error()}
	}
	return decoded, nil
}

// transportMessage renders a transport-level failure as a plain summary,
// naming timeouts explicitly.
func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "transport failure: " + urlErr.Err.Error()
	}
	return "transport failure: " + err.Error()
}

// retryLogger adapts slog to retryablehttp's leveled logger. Retry chatter is
// kept at debug so per-call errors are reported exactly once, by the caller.
type retryLogger struct{}

var _ retryablehttp.LeveledLogger = retryLogger{}

func (retryLogger) Error(msg string, keysAndValues ...any) {
	slog.Debug(msg, keysAndValues...)
}

func (retryLogger) Warn(msg string, keysAndValues ...any) {
	slog.Debug(msg, keysAndValues...)
}

func (retryLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(msg, keysAndValues...)
}

func (retryLogger) Debug(msg string, keysAndValues ...any) {
	slog.Debug(msg, keysAndValues...)
}
