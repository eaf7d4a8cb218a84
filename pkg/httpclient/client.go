// Package httpclient is the outbound HTTP stack for provider APIs, liveness
// probes and playlist fetches. It layers retries with exponential backoff,
// an optional circuit breaker, transparent decompression and a body size
// limit over net/http.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var (
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrMaxRetries       = errors.New("max retries exceeded")
	ErrResponseTooLarge = errors.New("response body exceeds maximum size limit")
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

const (
	DefaultTimeout              = 30 * time.Second
	DefaultRetryAttempts        = 3
	DefaultRetryDelay           = time.Second
	DefaultRetryMaxDelay        = 30 * time.Second
	DefaultBackoffMultiplier    = 2.0
	DefaultCircuitThreshold     = 5
	DefaultCircuitTimeout       = 30 * time.Second
	DefaultCircuitHalfOpenMax   = 1
	DefaultAcceptEncodingHeader = "gzip, deflate, br"
	DefaultUserAgentHeader      = "tvee-httpclient/1.0"

	probeMaxResponseSize = 64 * 1024
)

const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderUserAgent       = "User-Agent"
)

// Config controls retries, the breaker and response handling.
type Config struct {
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts     int
	RetryDelay        time.Duration
	RetryMaxDelay     time.Duration
	BackoffMultiplier float64

	// CircuitThreshold is the number of consecutive failures that opens the
	// circuit. Zero or less disables the breaker.
	CircuitThreshold   int
	CircuitTimeout     time.Duration
	CircuitHalfOpenMax int

	UserAgent           string
	Logger              *slog.Logger
	EnableDecompression bool

	// MaxResponseSize caps the decompressed body. Zero means unlimited.
	MaxResponseSize int64

	// BaseClient replaces the underlying http.Client when set.
	BaseClient *http.Client
}

// DefaultConfig is used for the provider API and playlist fetches.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		RetryAttempts:       DefaultRetryAttempts,
		RetryDelay:          DefaultRetryDelay,
		RetryMaxDelay:       DefaultRetryMaxDelay,
		BackoffMultiplier:   DefaultBackoffMultiplier,
		CircuitThreshold:    DefaultCircuitThreshold,
		CircuitTimeout:      DefaultCircuitTimeout,
		CircuitHalfOpenMax:  DefaultCircuitHalfOpenMax,
		UserAgent:           DefaultUserAgentHeader,
		Logger:              slog.Default(),
		EnableDecompression: true,
	}
}

// ProbeConfig is for single-shot liveness probes: one attempt, a short
// timeout and no breaker, so every probe reaches the network.
func ProbeConfig(timeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	cfg.RetryAttempts = 0
	cfg.CircuitThreshold = 0
	cfg.MaxResponseSize = probeMaxResponseSize
	return cfg
}

// StatusError is returned for responses that were not 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
}

// Unwrap makes errors.Is(err, ErrUnexpectedStatus) true.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client executes requests with retries and an optional circuit breaker.
type Client struct {
	config  Config
	client  *http.Client
	breaker *CircuitBreaker
	logger  *slog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = DefaultBackoffMultiplier
	}

	c := &Client{config: cfg, client: cfg.BaseClient, logger: cfg.Logger}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.CircuitThreshold > 0 {
		c.breaker = NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout, cfg.CircuitHalfOpenMax)
	}
	return c
}

// NewWithDefaults creates a Client from DefaultConfig.
func NewWithDefaults() *Client {
	return New(DefaultConfig())
}

// Do sends req, retrying transport errors and retryable statuses. Other
// non-2xx responses are returned as-is and count as breaker failures.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Header.Get(HeaderUserAgent) == "" && c.config.UserAgent != "" {
		req.Header.Set(HeaderUserAgent, c.config.UserAgent)
	}
	if c.config.EnableDecompression && req.Header.Get(HeaderAcceptEncoding) == "" {
		req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncodingHeader)
	}

	var lastErr error
	delay := c.config.RetryDelay
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			delay = c.nextDelay(delay)
		}

		resp, err := c.attempt(req, attempt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
}

// attempt performs one round trip. A nil error means the response is final.
func (c *Client) attempt(req *http.Request, n int) (*http.Response, error) {
	host := req.URL.Host
	if c.breaker != nil && !c.breaker.Allow() {
		c.logger.Warn("circuit breaker open, skipping request",
			slog.String("host", host),
			slog.String("state", c.breaker.State().String()),
		)
		return nil, ErrCircuitOpen
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.record(false)
		c.logger.Debug("request failed",
			slog.String("host", host),
			slog.Int("attempt", n),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if isRetryableStatus(resp.StatusCode) {
		c.record(false)
		resp.Body.Close()
		c.logger.Debug("retryable status", slog.String("host", host), slog.Int("status", resp.StatusCode), slog.Int("attempt", n))
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	c.record(resp.StatusCode >= 200 && resp.StatusCode < 300)
	c.logger.Debug("request completed",
		slog.String("host", host),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", elapsed),
	)

	if c.config.EnableDecompression {
		resp.Body = c.decodeBody(resp)
	}
	// Applied after decompression so a small compressed bomb is still caught.
	if c.config.MaxResponseSize > 0 {
		resp.Body = newLimitedReader(resp.Body, c.config.MaxResponseSize)
	}
	return resp, nil
}

func (c *Client) nextDelay(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * c.config.BackoffMultiplier)
	if c.config.RetryMaxDelay > 0 && d > c.config.RetryMaxDelay {
		return c.config.RetryMaxDelay
	}
	return d
}

func (c *Client) record(ok bool) {
	switch {
	case c.breaker == nil:
	case ok:
		c.breaker.RecordSuccess()
	default:
		c.breaker.RecordFailure()
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// GetBody returns the body of a 200 OK response. Any other status is a
// *StatusError.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	body, _, err := c.GetBodyURL(ctx, url)
	return body, err
}

// GetBodyURL is GetBody that also returns the URL the body was served from
// after redirects. Relative references in the body resolve against it.
func (c *Client) GetBodyURL(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading body: %w", err)
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return body, final, nil
}

// CircuitState reports the breaker state. Without a breaker it is always closed.
func (c *Client) CircuitState() CircuitState {
	if c.breaker == nil {
		return CircuitClosed
	}
	return c.breaker.State()
}

// ResetCircuit closes the breaker.
func (c *Client) ResetCircuit() {
	if c.breaker != nil {
		c.breaker.Reset()
	}
}

// StandardClient adapts the Client to *http.Client for libraries that want one.
func (c *Client) StandardClient() *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(c.Do),
		Timeout:   c.config.Timeout,
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isRetryableStatus reports statuses that usually clear up on their own.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
