package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stresssense/stress-sense/pkg/circuitbreaker"
	"github.com/stresssense/stress-sense/pkg/retry"
)

// SensorPath is the ingestion endpoint for environment pushes.
const SensorPath = "/receive_sensor"

// DeviceKeyHeader carries the device API key.
const DeviceKeyHeader = "X-Device-Key"

// ClientConfig configures the push client.
type ClientConfig struct {
	// BaseURL is the ingestion server, e.g. http://127.0.0.1:8080.
	BaseURL string

	// DeviceKey is sent in X-Device-Key when set.
	DeviceKey string

	// Timeout bounds one HTTP attempt.
	Timeout time.Duration

	Logger *slog.Logger
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ingest: unexpected status %d: %s", e.Code, e.Body)
}

// Client pushes samples with retries behind a circuit breaker.
type Client struct {
	baseURL    string
	deviceKey  string
	httpClient *http.Client
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a client. A nil retrier or breaker gets the package
// defaults for sensor pushes.
func NewClient(cfg ClientConfig, retrier *retry.Retrier, breaker *circuitbreaker.CircuitBreaker) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "simulator_client")

	if retrier == nil {
		retrier = retry.SensorPushRetrier(retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("sensor push failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}))
	}
	if breaker == nil {
		breaker = circuitbreaker.IngestBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		})
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		deviceKey:  cfg.DeviceKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retrier:    retrier,
		breaker:    breaker,
		logger:     logger,
	}
}

// Push sends one sample. Transport errors and 5xx responses are retried;
// 4xx responses are not.
func (c *Client) Push(ctx context.Context, s Sample) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.post(ctx, body)
		})
	})
}

// Breaker exposes the breaker state for logging.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker { return c.breaker }

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SensorPath, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.deviceKey != "" {
		req.Header.Set(DeviceKeyHeader, c.deviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return retry.Retryable(statusErr)
	}
	return retry.Permanent(statusErr)
}
