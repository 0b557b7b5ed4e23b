// Package directory implements the user directory service client.
// The progress engine stores only opaque user IDs; display names, avatars,
// locales and cohorts are owned by the directory service and fetched here.
package directory

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
	"strings"
	"time"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/pkg/circuitbreaker"
	"github.com/kanaquest/progress-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the directory client.
type ClientConfig struct {
	// BaseURL is the directory service base URL.
	BaseURL string

	// APIKey authenticates the engine against the directory.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimiterConfig controls the outbound request rate.
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the directory service API client. All outbound requests pass
// through the rate limiter, the retrier and the circuit breaker so a slow
// or failing directory cannot stall the engine.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
}

// NewClient creates a new directory client.
func NewClient(config ClientConfig) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "directory_client")

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		retrier:     retry.DirectoryRetrier(),
	}
	c.breaker = circuitbreaker.DirectoryBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	})
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetProfile fetches a single user profile by ID.
func (c *Client) GetProfile(ctx context.Context, userID string) (*ProfileDTO, error) {
	path := "/api/v1/users/" + url.PathEscape(userID)

	var response APIResponse[ProfileDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, &response); err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	if !response.Success {
		return nil, fmt.Errorf("get profile %s: %w: %s", userID, shared.ErrDirectoryInvalidResponse, response.Error)
	}
	return &response.Data, nil
}

// ListProfiles fetches profiles matching the request filters.
func (c *Client) ListProfiles(ctx context.Context, req ProfilesRequestDTO) ([]ProfileDTO, *Meta, error) {
	params := url.Values{}
	if len(req.UserIDs) > 0 {
		params.Set("ids", strings.Join(req.UserIDs, ","))
	}
	if req.Cohort != "" {
		params.Set("cohort", req.Cohort)
	}
	if req.Page > 0 {
		params.Set("page", strconv.Itoa(req.Page))
	}
	if req.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(req.PerPage))
	}

	path := "/api/v1/users"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response APIResponse[[]ProfileDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, &response); err != nil {
		return nil, nil, fmt.Errorf("list profiles: %w", err)
	}
	if !response.Success {
		return nil, nil, fmt.Errorf("list profiles: %w: %s", shared.ErrDirectoryInvalidResponse, response.Error)
	}
	return response.Data, response.Meta, nil
}

// GetProfiles fetches profiles for a set of user IDs, keyed by ID.
// Missing users are simply absent from the result.
func (c *Client) GetProfiles(ctx context.Context, userIDs []string) (map[string]ProfileDTO, error) {
	if len(userIDs) == 0 {
		return map[string]ProfileDTO{}, nil
	}

	profiles, _, err := c.ListProfiles(ctx, ProfilesRequestDTO{
		UserIDs: userIDs,
		PerPage: len(userIDs),
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]ProfileDTO, len(profiles))
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, retries and
// circuit breaking. Only errors wrapped as retryable are attempted again;
// everything else fails fast.
func (c *Client) doRequest(ctx context.Context, method, path string, result any) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				var rateLimitErr *RateLimitError
				if errors.As(err, &rateLimitErr) {
					return fmt.Errorf("%w: %s", shared.ErrDirectoryRateLimited, err.Error())
				}
				return err
			}

			err := c.doSingleRequest(ctx, method, path, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
				return retry.Retryable(err)
			}
			if isRetryable(err) {
				return retry.Retryable(err)
			}
			return err
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return fmt.Errorf("%w: %s", shared.ErrDirectoryUnavailable, err.Error())
		}
		return err
	}
	return nil
}

// doSingleRequest performs one HTTP round trip.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s", shared.ErrDirectoryTimeout, method, path)
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "directory rate limit exceeded",
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, shared.ErrNotFound)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.Status = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("directory api error: status %d", resp.StatusCode)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %s", shared.ErrDirectoryInvalidResponse, err.Error())
		}
	}
	return nil
}

// isRetryable reports whether a request error is worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrDirectoryInvalidResponse) {
		return false
	}

	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}

	// Network-level errors are generally transient
	msg := err.Error()
	for _, hint := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the directory service is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response APIResponse[map[string]any]
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", &response)
	return err == nil && response.Success
}

// ClientStatus describes the current state of the client.
type ClientStatus struct {
	RateLimiter   RateLimiterStatus
	BreakerState  string
	BreakerCounts circuitbreaker.Counts
	IsHealthy     bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:   c.rateLimiter.Status(),
		BreakerState:  c.breaker.State().String(),
		BreakerCounts: c.breaker.Counts(),
		IsHealthy:     c.IsHealthy(ctx),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
