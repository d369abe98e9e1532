package ecommerce

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from a platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

var (
	// ErrUnexpectedContent indicates a response body that could not be parsed as JSON
	ErrUnexpectedContent = errors.New("ecommerce: unexpected response content")
	// ErrMaxRetriesExceeded indicates a transient failure that survived every retry
	ErrMaxRetriesExceeded = errors.New("ecommerce: max retries exceeded")
)

// HTTPStatusError is a non-retryable HTTP-level failure (4xx/5xx).
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("ecommerce: HTTP %d: %s", e.StatusCode, e.Body)
}

// ClientConfig tunes the outbound platform API client.
type ClientConfig struct {
	BaseURL         string
	APIKey          string
	MaxRetries      int           // total attempts per request
	ConnectTimeout  time.Duration // per-attempt dial timeout
	RequestTimeout  time.Duration // per-attempt total timeout
	MaxConcurrent   int           // in-flight request cap
	PolitenessDelay time.Duration // fixed pause before each request
}

// withDefaults fills the zero fields with production defaults.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.PolitenessDelay < 0 {
		c.PolitenessDelay = 0
	} else if c.PolitenessDelay == 0 {
		c.PolitenessDelay = 100 * time.Millisecond
	}
	return c
}

// Client performs authenticated GET requests against a remote commerce
// platform API. Every call forces output_format=JSON, bounds the number of
// in-flight requests, and retries transient transport failures with
// exponential backoff. HTTP status errors are never retried.
//
// A Client belongs to exactly one sync session: after Close, every request
// fails fast with integration.ErrSessionClosed.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	sem        chan struct{}
	logger     *zap.Logger
	closed     atomic.Bool

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client for one session.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		MaxIdleConnsPerHost: cfg.MaxConcurrent,
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		sem:    make(chan struct{}, cfg.MaxConcurrent),
		logger: logger,
		sleep:  sleepContext,
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close releases idle connections and marks the client unusable. Idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// Get performs a rate-limited, retried GET against endpoint and returns the
// JSON body. params may be nil.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.closed.Load() {
		return nil, integration.ErrSessionClosed
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	if err := c.sleep(ctx, c.cfg.PolitenessDelay); err != nil {
		return nil, err
	}

	reqURL := c.buildURL(endpoint, params)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		body, err := c.doAttempt(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		class := classifyTransportError(err)
		if class == retryNone {
			return nil, err
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		wait := backoffDuration(class, attempt)
		c.logger.Warn("transient request failure, retrying",
			zap.String("url", reqURL),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.cfg.MaxRetries),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if serr := c.sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrMaxRetriesExceeded, reqURL, lastErr)
}

// GetJSON performs Get and unmarshals the body into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	// Empty collections come back as "[]" or "{}" depending on the platform
	// version; both decode cleanly into struct targets except the bare array.
	if bytes.Equal(bytes.TrimSpace(body), []byte("[]")) {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedContent, err)
	}
	return nil
}

// buildURL joins the base URL, endpoint and query, always forcing the JSON
// output format parameter.
func (c *Client) buildURL(endpoint string, params url.Values) string {
	values := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	values.Set("output_format", "JSON")
	return c.cfg.BaseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + values.Encode()
}

// doAttempt performs a single HTTP attempt and normalizes the response body
// to JSON bytes.
func (c *Client) doAttempt(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ecommerce: failed to create request: %w", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.cfg.APIKey + ":"))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return normalizeBody(resp.Header.Get("Content-Type"), body)
}

// normalizeBody returns JSON bytes from a response. Some platform versions
// ignore the forced JSON format and declare XML; those responses often still
// embed a JSON object, which is extracted as a fallback.
func normalizeBody(contentType string, body []byte) ([]byte, error) {
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "json"):
		if !json.Valid(body) {
			return nil, fmt.Errorf("%w: declared JSON but body is not valid JSON: %s", ErrUnexpectedContent, truncate(string(body), 200))
		}
		return body, nil

	case strings.Contains(ct, "xml"):
		start := bytes.IndexByte(body, '{')
		end := bytes.LastIndexByte(body, '}')
		if start >= 0 && end > start {
			embedded := body[start : end+1]
			if json.Valid(embedded) {
				return embedded, nil
			}
		}
		return nil, fmt.Errorf("%w: expected JSON but received XML: %s", ErrUnexpectedContent, truncate(string(body), 200))

	default:
		// Unknown declaration: try JSON speculatively before failing.
		if json.Valid(body) && len(bytes.TrimSpace(body)) > 0 {
			return body, nil
		}
		return nil, fmt.Errorf("%w: content type %q: %s", ErrUnexpectedContent, contentType, truncate(string(body), 200))
	}
}

// retryClass buckets transport failures by retry policy.
type retryClass int

const (
	retryNone retryClass = iota
	retryTransient
	retryExhausted
)

// classifyTransportError decides whether and how a failed attempt may be
// retried. HTTP status errors and unparseable bodies are terminal; timeouts,
// resets and disconnects back off exponentially; file-descriptor or
// connection exhaustion gets a longer pause first.
func classifyTransportError(err error) retryClass {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return retryNone
	}
	if errors.Is(err, ErrUnexpectedContent) {
		return retryNone
	}

	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) {
		return retryExhausted
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "too many open") {
		return retryExhausted
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retryTransient
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return retryTransient
	}
	for _, keyword := range []string{"server disconnected", "connection reset", "connection aborted", "broken pipe", "timeout"} {
		if strings.Contains(msg, keyword) {
			return retryTransient
		}
	}

	return retryNone
}

// backoffDuration returns the wait before the next attempt. attempt is
// 1-based: transient failures wait 2^attempt seconds starting at 1s,
// exhaustion failures wait an extra flat 5s on top.
func backoffDuration(class retryClass, attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt-1)) * time.Second
	if class == retryExhausted {
		return 5*time.Second + base
	}
	return base
}

// truncate shortens s for log/error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
