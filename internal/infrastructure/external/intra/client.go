package intra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/Grihladin/42Connect/pkg/circuitbreaker"
	"github.com/Grihladin/42Connect/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Intra API client.
type ClientConfig struct {
	// BaseURL is the Intra API base URL
	BaseURL string

	// ClientID and ClientSecret are the OAuth application credentials.
	// Application-level requests use the client_credentials grant.
	ClientID     string
	ClientSecret string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimit is requests per second (Intra allows 2 req/s per application)
	RateLimit float64

	// RateLimitBurst is the limiter burst size
	RateLimitBurst int

	// MaxRetries is the number of retries per request
	MaxRetries int

	// RetryBaseDelay and RetryMaxDelay bound the retry backoff
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// PageSize is the page size for paginated endpoints (max 100)
	PageSize int

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL, clientID, clientSecret string) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		Timeout:        30 * time.Second,
		RateLimit:      2.0,
		RateLimitBurst: 2,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  30 * time.Second,
		PageSize:       100,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the 42 Intra API client.
// All requests go through a shared rate limiter and circuit breaker, so
// the sync worker and the OAuth callback path cannot exceed the Intra
// application quota between them.
type Client struct {
	config    ClientConfig
	appClient *http.Client // client_credentials token source
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
	retrier   *retry.Retrier
	logger    *slog.Logger
}

// NewClient creates a new Intra API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PageSize <= 0 || config.PageSize > 100 {
		config.PageSize = 100
	}

	cc := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.BaseURL + "/oauth/token",
	}

	appClient := cc.Client(context.Background())
	appClient.Timeout = config.Timeout

	logger := config.Logger

	breaker := circuitbreaker.New(
		"intra-api",
		circuitbreaker.WithFailureThreshold(5),
		circuitbreaker.WithTimeout(60*time.Second),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
	)

	retrier := retry.New(
		retry.WithMaxAttempts(config.MaxRetries+1),
		retry.WithInitialDelay(config.RetryBaseDelay),
		retry.WithMaxDelay(config.RetryMaxDelay),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Debug("retrying intra request",
				"attempt", attempt, "delay", delay.String(), "error", err.Error())
		}),
	)

	return &Client{
		config:    config,
		appClient: appClient,
		limiter:   rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimitBurst),
		breaker:   breaker,
		retrier:   retrier,
		logger:    logger,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetCurrentUser fetches the profile of the user who owns the token.
// Used at OAuth callback time with the freshly exchanged user token.
func (c *Client) GetCurrentUser(ctx context.Context, token *oauth2.Token) (*ProfileDTO, error) {
	userClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	userClient.Timeout = c.config.Timeout

	var profile ProfileDTO
	if err := c.doRequest(ctx, userClient, "/v2/me", nil, &profile); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}

	return &profile, nil
}

// GetUser fetches a user profile by login using application credentials.
func (c *Client) GetUser(ctx context.Context, login string) (*ProfileDTO, error) {
	path := "/v2/users/" + url.PathEscape(login)

	var profile ProfileDTO
	if err := c.doRequest(ctx, c.appClient, path, nil, &profile); err != nil {
		return nil, fmt.Errorf("get user %s: %w", login, err)
	}

	return &profile, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROJECT OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetUserProjects fetches all project enrollments for a user, following
// pagination until a short page.
func (c *Client) GetUserProjects(ctx context.Context, userID int64) ([]ProjectUserDTO, error) {
	params := url.Values{}
	params.Set("filter[user_id]", strconv.FormatInt(userID, 10))
	params.Set("include", "project")

	entries, err := fetchAll[ProjectUserDTO](ctx, c, "/v2/projects_users", params)
	if err != nil {
		return nil, fmt.Errorf("get user projects %d: %w", userID, err)
	}

	return entries, nil
}

// GetUserCursus fetches all cursus enrollments for a user.
func (c *Client) GetUserCursus(ctx context.Context, userID int64) ([]CursusUserDTO, error) {
	params := url.Values{}
	params.Set("filter[user_id]", strconv.FormatInt(userID, 10))
	params.Set("include", "cursus")

	entries, err := fetchAll[CursusUserDTO](ctx, c, "/v2/cursus_users", params)
	if err != nil {
		return nil, fmt.Errorf("get user cursus %d: %w", userID, err)
	}

	return entries, nil
}

// fetchAll follows page[number] pagination until a page comes back shorter
// than the page size.
func fetchAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var aggregated []T
	page := 1

	for {
		pageParams := url.Values{}
		for key, values := range params {
			pageParams[key] = values
		}
		pageParams.Set("page[size]", strconv.Itoa(c.config.PageSize))
		pageParams.Set("page[number]", strconv.Itoa(page))

		var batch []T
		if err := c.doRequest(ctx, c.appClient, path, pageParams, &batch); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if len(batch) == 0 {
			break
		}

		aggregated = append(aggregated, batch...)

		if len(batch) < c.config.PageSize {
			break
		}
		page++
	}

	return aggregated, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a GET request with rate limiting, circuit breaking,
// and retries.
func (c *Client) doRequest(ctx context.Context, httpClient *http.Client, path string, params url.Values, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
			return c.doSingleRequest(ctx, httpClient, path, params, result)
		})
	})
}

// doSingleRequest performs a single HTTP request and classifies the error
// for the retrier: 429 and 5xx are retryable, other 4xx are permanent.
func (c *Client) doSingleRequest(ctx context.Context, httpClient *http.Client, path string, params url.Values, result interface{}) error {
	fullURL := c.config.BaseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	if c.config.Debug {
		c.logger.Debug("intra api request", "path", path)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		// Network errors are worth retrying
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		// Drain the burst so the next attempt waits a full limiter interval.
		c.limiter.ReserveN(time.Now(), c.config.RateLimitBurst)
		return retry.Retryable(&APIErrorDTO{StatusCode: resp.StatusCode, Message: "rate limit exceeded"})
	}

	if resp.StatusCode >= 500 {
		return retry.Retryable(&APIErrorDTO{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("intra server error: status %d", resp.StatusCode),
		})
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIErrorDTO{StatusCode: resp.StatusCode}
		if unmarshalErr := json.Unmarshal(respBody, apiErr); unmarshalErr != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("intra api error: status %d", resp.StatusCode)
		}
		return retry.Permanent(apiErr)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the Intra API is reachable with the app credentials.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var out json.RawMessage
	err := c.doSingleRequest(ctx, c.appClient, "/v2/cursus", url.Values{"page[size]": {"1"}}, &out)
	return err == nil
}

// BreakerState reports the circuit breaker state for diagnostics.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// Reset resets the circuit breaker.
func (c *Client) Reset() {
	c.breaker.Reset()
}
