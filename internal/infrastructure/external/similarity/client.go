package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/pkg/circuitbreaker"
	"github.com/Grihladin/42Connect/pkg/retry"
)

// ClientConfig contains configuration for the similarity service client.
type ClientConfig struct {
	// BaseURL of the embedding service
	BaseURL string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// MaxRetries per request
	MaxRetries int

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}
}

// Client calls the external similarity service.
// Implements Provider.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	logger     *slog.Logger
}

// NewClient creates a similarity service client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker: circuitbreaker.SimilarityBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
		retrier: retry.New(
			retry.WithMaxAttempts(config.MaxRetries+1),
			retry.WithInitialDelay(100*time.Millisecond),
			retry.WithMaxDelay(2*time.Second),
		),
		logger: logger,
	}
}

type compareRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type compareResponse struct {
	Similarity float64 `json:"similarity"`
}

// Compare scores two texts via the external service.
func (c *Client) Compare(ctx context.Context, a, b string) (float64, error) {
	var score float64

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			s, err := c.compareOnce(ctx, a, b)
			if err != nil {
				return err
			}
			score = s
			return nil
		})
	})
	if err != nil {
		return 0, shared.WrapError("similarity", "Compare", shared.ErrExternalService, "similarity service call failed", err)
	}

	return score, nil
}

func (c *Client) compareOnce(ctx context.Context, a, b string) (float64, error) {
	body, err := json.Marshal(compareRequest{TextA: a, TextB: b})
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/similarity", bytes.NewReader(body))
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 500 {
		return 0, retry.Retryable(fmt.Errorf("similarity service: status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return 0, retry.Permanent(fmt.Errorf("similarity service: status %d", resp.StatusCode))
	}

	var parsed compareResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}

	return parsed.Similarity, nil
}
