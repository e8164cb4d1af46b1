package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ClientConfig configures the shared per-source HTTP client.
type ClientConfig struct {
	// Timeout bounds each request.
	Timeout time.Duration

	// Interval is the minimum spacing between requests (token refill).
	Interval time.Duration

	// Burst is the token bucket size.
	Burst int

	// MaxRetries caps retry attempts on 429 and 5xx responses.
	MaxRetries int

	// RetryDelay is the base delay between retries when the server sends
	// no Retry-After header.
	RetryDelay time.Duration

	// UserAgent identifies the pipeline to the API.
	UserAgent string

	// APIKey and APIKeyHeader add an authentication header when both set.
	APIKey       string
	APIKeyHeader string
}

// Client is a rate-limited HTTP client with retry on 429/5xx. Each source
// owns its own Client, so rate limiting is local to the adapter.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     ClientConfig
}

// NewClient builds a Client, applying defaults for unset fields.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Second
	}
	if cfg.Burst == 0 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "metalit/1.0 (literature meta-analysis pipeline)"
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), cfg.Burst),
		cfg:     cfg,
	}
}

// Get issues a rate-limited GET and returns the body for a 200 response.
// 429 and 5xx responses are retried up to MaxRetries, honoring Retry-After.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")
		if c.cfg.APIKey != "" && c.cfg.APIKeyHeader != "" {
			req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.cfg.MaxRetries {
				if err := sleepCtx(ctx, c.cfg.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(resp, c.cfg.RetryDelay)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			if attempt < c.cfg.MaxRetries {
				if err := sleepCtx(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading response: %w", readErr)
		}
		return body, nil
	}

	return nil, lastErr
}

// retryDelay honors Retry-After (seconds or HTTP date) over the default.
func retryDelay(resp *http.Response, fallback time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}
	if seconds, err := strconv.ParseInt(header, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return fallback
}

// sleepCtx waits for d, aborting on context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
