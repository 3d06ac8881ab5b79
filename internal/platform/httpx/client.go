package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 32 << 20
)

// Client issues JSON requests against a single marketplace base URL.
type Client struct {
	http       *http.Client
	baseURL    *url.URL
	headers    http.Header
	limiter    *rate.Limiter
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client, e.g. one carrying an oauth2 transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout sets the per-request timeout on the underlying http.Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRateLimit caps outgoing requests per second. Non-positive values disable limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMaxRetries sets how many times network failures, 429 and 5xx responses are retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackOff overrides the retry schedule.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

// WithLogger configures the logger used for retry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("httpx: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpx: base url %q must be absolute", baseURL)
	}

	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: parsed,
		headers: make(http.Header),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Resolve joins path and query onto the base URL.
// An empty path addresses the base URL itself.
func (c *Client) Resolve(path string, query url.Values) string {
	target := *c.baseURL
	if path != "" {
		base := *c.baseURL
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		target = *base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String()
}

// DoJSON sends in as the JSON body (nil for none) and decodes a 2xx response into out (nil to discard).
// Non-2xx responses yield *StatusError; failures before a response yield *TransportError.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpx: encode %s %s: %w", method, path, err)
		}
		payload = encoded
	}
	target := c.Resolve(path, query)

	body, err := c.do(ctx, method, target, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpx: decode %s %s: %w", method, target, err)
	}
	return nil
}

// Fetch issues a GET and returns the raw response body, with the same retry and error semantics as DoJSON.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.Resolve(path, query), nil)
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(newTransportError(method, target, err))
			}
		}
		data, err := c.roundTrip(ctx, method, target, payload)
		if err == nil {
			body = data
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("httpx: retrying request",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	var schedule backoff.BackOff = backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries))
	schedule = backoff.WithContext(schedule, ctx)
	if err := backoff.RetryNotify(operation, schedule, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newTransportError(method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, newTransportError(method, target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       errorBody(data),
		}
	}
	return data, nil
}
