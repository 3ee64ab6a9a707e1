package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/county-loads/internal/observability"
)

// HTTPError reports a non-2xx response from a remote source. Loaders that
// treat a missing remote file as a recoverable condition check for it with
// errors.As.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// ErrRetriesExhausted signals that the bounded-retry fetch gave up. It wraps
// the last attempt's error.
var ErrRetriesExhausted = errors.New("maximum fetch retries exceeded")

// retryDelay spaces out retry attempts against a slow source.
const retryDelay = 500 * time.Millisecond

// Client fetches remote dataset files over HTTP.
type Client struct {
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a fetch client with the given per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		clock:      clockwork.NewRealClock(),
		logger:     logger,
		metrics:    metrics,
	}
}

// SetClock swaps the time source used between retry attempts. Tests inject a
// fake clock; pass nil to reset to real time.
func (c *Client) SetClock(clk clockwork.Clock) {
	if clk == nil {
		c.clock = clockwork.NewRealClock()
		return
	}
	c.clock = clk
}

// Get performs a single GET and returns the body. A non-2xx status returns
// an *HTTPError.
func (c *Client) Get(ctx context.Context, dataset, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RemoteFetches.WithLabelValues(dataset, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome := "error"
		if resp.StatusCode == http.StatusNotFound {
			outcome = "missing"
		}
		c.metrics.RemoteFetches.WithLabelValues(dataset, outcome).Inc()
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RemoteFetches.WithLabelValues(dataset, "error").Inc()
		return nil, fmt.Errorf("read %s body: %w", dataset, err)
	}
	c.metrics.RemoteFetches.WithLabelValues(dataset, "success").Inc()
	return body, nil
}

// GetRetry performs up to attempts GETs with a per-attempt timeout, sleeping
// briefly between failures. HTTP errors are not retried; only transport
// failures (timeouts, connection errors) are. Exhaustion wraps
// ErrRetriesExhausted.
func (c *Client) GetRetry(ctx context.Context, dataset, url string, attempts int, perTry time.Duration) ([]byte, error) {
	perTryClient := &http.Client{
		Timeout:   perTry,
		Transport: c.httpClient.Transport,
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := perTryClient.Do(req)
		if err != nil {
			lastErr = err
			c.metrics.FetchRetries.Inc()
			c.logger.Warn("fetch attempt failed",
				"dataset", dataset, "attempt", attempt, "of", attempts, "error", err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.clock.Sleep(retryDelay)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			outcome := "error"
			if resp.StatusCode == http.StatusNotFound {
				outcome = "missing"
			}
			c.metrics.RemoteFetches.WithLabelValues(dataset, outcome).Inc()
			return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			c.metrics.FetchRetries.Inc()
			c.clock.Sleep(retryDelay)
			continue
		}
		c.metrics.RemoteFetches.WithLabelValues(dataset, "success").Inc()
		return body, nil
	}

	c.metrics.RemoteFetches.WithLabelValues(dataset, "error").Inc()
	return nil, fmt.Errorf("%w getting %s: %v", ErrRetriesExhausted, url, lastErr)
}
