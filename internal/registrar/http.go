package registrar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/namelens/domainsearch/internal/core/checker"
	"github.com/namelens/domainsearch/internal/core/engine"
)

const (
	defaultAPITimeout = 10 * time.Second
	maxResponseBytes  = 2 << 20
)

// apiClient is the transport shared by the JSON and XML registrar APIs.
type apiClient struct {
	HTTP    *http.Client
	Limiter *engine.RateLimiter
	Timeout time.Duration
}

// do sends req under the per-host rate limit and returns the status and body.
func (c apiClient) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	host := req.URL.Hostname()
	if wait, err := c.Limiter.Acquire(ctx, host); err == nil && wait > 0 {
		return 0, nil, fmt.Errorf("%w by %s: retry in %s", checker.ErrRateLimited, host, wait.Round(time.Second))
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusTooManyRequests && c.Limiter != nil && host != "" {
		if wait := checker.RetryAfter(resp); wait > 0 {
			_ = c.Limiter.Record429(ctx, host, wait)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c apiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (c apiClient) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return checker.NewRetryClient(c.Timeout, 2)
}
