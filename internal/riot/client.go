package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultMaxAttempts         = 3
	defaultMaxRateLimitRetries = 5
	defaultRetryAfter          = 5 * time.Second
	initialBackoff             = time.Second

	dataDragonBaseURL = "https://ddragon.leagueoflegends.com"
)

// Client is a Riot Games API client. Every request goes through one shared
// RateLimiter.
type Client struct {
	apiKey     string
	httpClient *http.Client
	limiter    *RateLimiter

	regionalBaseURL   string // account-v1, match-v5
	platformBaseURL   string // spectator-v5
	dataDragonBaseURL string

	platform string

	maxAttempts         int
	maxRateLimitRetries int
	sleep               func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the regional, platform and Data Dragon hosts.
func WithBaseURLs(regional, platform, dataDragon string) Option {
	return func(c *Client) {
		c.regionalBaseURL = regional
		c.platformBaseURL = platform
		c.dataDragonBaseURL = dataDragon
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimiter shares an existing limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMaxAttempts sets how many times a 5xx or network failure is tried.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// NewClient creates a new Riot API client for a platform (e.g. "euw1") and
// its routing region (e.g. "europe").
func NewClient(apiKey, platform, region string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		regionalBaseURL:     fmt.Sprintf("https://%s.api.riotgames.com", region),
		platformBaseURL:     fmt.Sprintf("https://%s.api.riotgames.com", platform),
		dataDragonBaseURL:   dataDragonBaseURL,
		platform:            platform,
		maxAttempts:         defaultMaxAttempts,
		maxRateLimitRetries: defaultMaxRateLimitRetries,
		sleep:               sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter()
	}
	return c
}

// Platform returns the platform id the client was created for.
func (c *Client) Platform() string {
	return c.platform
}

// Limiter returns the shared rate limiter.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// get performs a rate-limited GET with retries and decodes the JSON response
// into result. A 404 yields ErrNotFound; other failures yield *APIError.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	transient := 0
	limited := 0
	for {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return &APIError{Kind: KindFatal, URL: endpoint, Attempts: 1, Err: fmt.Errorf("failed to create request: %w", err)}
		}
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			transient++
			if transient >= c.maxAttempts {
				return &APIError{Kind: KindTransient, URL: endpoint, Attempts: transient, Err: err}
			}
			slog.Warn("Riot request failed, retrying", "url", endpoint, "attempt", transient, "error", err)
			if err := c.sleep(ctx, backoff(transient)); err != nil {
				return err
			}
			continue
		}

		status := resp.StatusCode
		switch {
		case status >= 200 && status < 300:
			err := json.NewDecoder(resp.Body).Decode(result)
			resp.Body.Close()
			if err != nil {
				return &APIError{Kind: KindFatal, StatusCode: status, URL: endpoint, Attempts: transient + 1, Err: fmt.Errorf("failed to decode response: %w", err)}
			}
			return nil

		case status == http.StatusNotFound:
			drain(resp)
			return ErrNotFound

		case status == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header.Get("Retry-After"))
			drain(resp)
			limited++
			if limited > c.maxRateLimitRetries {
				return &APIError{Kind: KindRateLimited, StatusCode: status, URL: endpoint, Attempts: limited, Err: errors.New("rate limit retries exhausted")}
			}
			slog.Warn("Rate limited by Riot API", "url", endpoint, "retryAfter", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		case status >= 500:
			drain(resp)
			transient++
			if transient >= c.maxAttempts {
				return &APIError{Kind: KindTransient, StatusCode: status, URL: endpoint, Attempts: transient, Err: errors.New(http.StatusText(status))}
			}
			slog.Warn("Riot server error, retrying", "url", endpoint, "status", status, "attempt", transient)
			if err := c.sleep(ctx, backoff(transient)); err != nil {
				return err
			}

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return &APIError{Kind: KindFatal, StatusCode: status, URL: endpoint, Attempts: transient + 1, Err: fmt.Errorf("body: %s", string(body))}
		}
	}
}

// backoff returns the wait after the given failed attempt: 1s, 2s, 4s...
func backoff(attempt int) time.Duration {
	return initialBackoff << (attempt - 1)
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
