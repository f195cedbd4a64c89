// Package request is the sole outbound HTTP path for the session layer. It
// wraps a shared http.Client with a token-bucket throttle and a retry loop
// that honors the service's "too fast" backoff.
package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/luciancaetano/sechat/internal/logger"
	"github.com/luciancaetano/sechat/internal/telemetry"
)

const (
	// StatusTooFast is the status the service answers when the client must
	// slow down; the response body embeds the wait in seconds.
	StatusTooFast = http.StatusConflict

	// maxAttempts bounds one logical request, counting the first try.
	maxAttempts = 5

	// fallbackBackoff applies when the wait cannot be parsed from the body.
	fallbackBackoff = 3 * time.Second
)

// waitPattern extracts the server-declared backoff, e.g. from
// "You can perform this action again in 2 seconds".
var waitPattern = regexp.MustCompile(`again in (\d+) seconds?`)

// Client retries StatusTooFast responses with the server-supplied backoff,
// capped at maxAttempts, and throttles request issue with a token bucket.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter

	// sleep is swappable so tests can observe waits without waiting.
	sleep func(time.Duration)
}

// New wraps hc. A nil hc uses a fresh http.Client.
func New(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		http: hc,
		// One request per 500ms with small bursts keeps the bot polite
		// even before the server pushes back.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
		sleep:   time.Sleep,
	}
}

// SetLimiter replaces the client-side throttle. Useful for tests and for
// embedders with their own politeness policy.
func (c *Client) SetLimiter(l *rate.Limiter) {
	if l != nil {
		c.limiter = l
	}
}

// Close releases the transport's idle connections. The client must not be
// used afterwards.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Get issues a GET with retry.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.do(ctx, rawURL, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
}

// PostForm issues a form POST with retry. The request body is rebuilt per
// attempt.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	encoded := form.Encode()
	return c.do(ctx, rawURL, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

func (c *Client) do(ctx context.Context, rawURL string, build func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", rawURL, err)
		}
		if resp.StatusCode != StatusTooFast {
			return resp, nil
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if attempt == maxAttempts {
			break
		}

		wait := parseWait(body)
		telemetry.HTTPRetries.Inc()
		logger.Warn("request_throttled",
			"url", rawURL,
			"attempt", attempt,
			"wait", wait,
		)
		c.sleep(wait)
	}
	return nil, fmt.Errorf("request %s: rate limited after %d attempts", rawURL, maxAttempts)
}

func parseWait(body []byte) time.Duration {
	m := waitPattern.FindSubmatch(body)
	if m == nil {
		return fallbackBackoff
	}
	secs, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return fallbackBackoff
	}
	return time.Duration(secs) * time.Second
}
