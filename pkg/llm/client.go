package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/haoyang/ant/internal/metrics"
)

// RetryStrategy selects how the backoff delay grows between attempts.
type RetryStrategy string

const (
	RetryFixed       RetryStrategy = "fixed"
	RetryLinear      RetryStrategy = "linear"
	RetryExponential RetryStrategy = "exponential"
)

// Terminal invocation errors. Both wrap the last underlying cause.
var (
	// ErrRetriesExhausted means every attempt failed or was skipped.
	ErrRetriesExhausted = errors.New("model invocation retries exhausted")
	// ErrNonRetryable means the provider rejected the call in a way no
	// retry can fix (auth, malformed request).
	ErrNonRetryable = errors.New("model invocation failed with non-retryable error")
)

// Config holds resilient client configuration.
type Config struct {
	Provider         Provider
	Strategy         RetryStrategy
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	ExponentialBase  float64
	Jitter           bool
	FailureThreshold int
	BreakerTimeout   time.Duration
	AttemptTimeout   time.Duration
	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
}

// Stats tracks invocation accounting across the client's lifetime.
type Stats struct {
	TotalCalls      int
	SuccessfulCalls int
	FailedCalls     int
	Retries         int
	BreakerSkips    int
}

// Client wraps a Provider with retry, backoff, and circuit breaking. One
// client guards one provider; the breaker state is shared across all
// invocations for the lifetime of the process.
type Client struct {
	provider        Provider
	strategy        RetryStrategy
	maxRetries      int
	baseDelay       time.Duration
	maxDelay        time.Duration
	exponentialBase float64
	jitter          bool
	attemptTimeout  time.Duration
	breaker         *CircuitBreaker
	logger          zerolog.Logger
	metrics         *metrics.Metrics

	statsMu sync.Mutex
	stats   Stats

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a resilient client around the given provider.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Strategy == "" {
		cfg.Strategy = RetryExponential
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 10
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.ExponentialBase <= 0 {
		cfg.ExponentialBase = 2.0
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 120 * time.Second
	}

	return &Client{
		provider:        cfg.Provider,
		strategy:        cfg.Strategy,
		maxRetries:      cfg.MaxRetries,
		baseDelay:       cfg.BaseDelay,
		maxDelay:        cfg.MaxDelay,
		exponentialBase: cfg.ExponentialBase,
		jitter:          cfg.Jitter,
		attemptTimeout:  cfg.AttemptTimeout,
		breaker:         NewCircuitBreaker(cfg.FailureThreshold, cfg.BreakerTimeout),
		logger:          cfg.Logger.With().Str("component", "llm").Str("provider", cfg.Provider.Name()).Logger(),
		metrics:         cfg.Metrics,
		sleep:           sleepContext,
	}, nil
}

// Invoke performs one logical model invocation with up to MaxRetries
// retries. Attempts made while the breaker is open are skipped without
// contacting the provider. It fails terminally with ErrNonRetryable or
// ErrRetriesExhausted, preserving the last underlying error.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.computeDelay(attempt - 1)
			c.addRetry()
			c.metrics.RecordRetry()
			c.logger.Info().
				Int("attempt", attempt).
				Int("max_retries", c.maxRetries).
				Dur("delay", delay).
				Msg("Retrying model invocation")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if c.breaker.IsOpen() {
			c.addBreakerSkip()
			c.metrics.RecordBreakerSkip()
			c.logger.Warn().Int("attempt", attempt).Msg("Circuit breaker open, skipping attempt")
			continue
		}

		c.addCall()
		callCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		start := time.Now()
		resp, err := c.provider.Send(callCtx, req)
		cancel()

		if err == nil {
			c.metrics.RecordModelCall(c.provider.Name(), "success", time.Since(start))
			c.addSuccess()
			c.breaker.RecordSuccess()
			normalizeToolCallIDs(resp)
			return resp, nil
		}

		c.metrics.RecordModelCall(c.provider.Name(), "failure", time.Since(start))
		c.addFailure()
		lastErr = err

		// A cancelled parent context is the caller's signal, not a
		// provider failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if c.breaker.RecordFailure() {
			c.metrics.RecordBreakerOpen()
			c.logger.Warn().Msg("Circuit breaker opened")
		}

		if !IsRetryable(err) {
			c.logger.Error().Err(err).Msg("Non-retryable model error")
			return nil, fmt.Errorf("%w: %w", ErrNonRetryable, err)
		}

		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("Retryable model error")
	}

	if lastErr == nil {
		lastErr = errors.New("circuit breaker remained open")
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.maxRetries+1, lastErr)
}

// Stats returns a snapshot of invocation accounting.
func (c *Client) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// BreakerState returns the breaker's current state.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// computeDelay returns the backoff delay for a 0-based retry attempt:
// fixed, base*attempt, or base*expBase^attempt, capped at maxDelay and
// optionally jittered by a uniform factor in [0.5, 1.5).
func (c *Client) computeDelay(attempt int) time.Duration {
	base := c.baseDelay.Seconds()
	var seconds float64
	switch c.strategy {
	case RetryFixed:
		seconds = base
	case RetryLinear:
		seconds = base * float64(attempt)
	default:
		seconds = base * math.Pow(c.exponentialBase, float64(attempt))
	}
	seconds = math.Min(seconds, c.maxDelay.Seconds())
	if c.jitter {
		seconds *= 0.5 + rand.Float64()
	}
	return time.Duration(seconds * float64(time.Second))
}

// Some backends return tool_use blocks with empty ids, but the protocol
// requires matching ids between calls and responses.
func normalizeToolCallIDs(resp *Response) {
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].ID == "" {
			id, err := gonanoid.New()
			if err != nil {
				id = fmt.Sprintf("%d", time.Now().UnixNano())
			}
			resp.ToolCalls[i].ID = "call_" + id
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Client) addCall() {
	c.statsMu.Lock()
	c.stats.TotalCalls++
	c.statsMu.Unlock()
}

func (c *Client) addSuccess() {
	c.statsMu.Lock()
	c.stats.SuccessfulCalls++
	c.statsMu.Unlock()
}

func (c *Client) addFailure() {
	c.statsMu.Lock()
	c.stats.FailedCalls++
	c.statsMu.Unlock()
}

func (c *Client) addRetry() {
	c.statsMu.Lock()
	c.stats.Retries++
	c.statsMu.Unlock()
}

func (c *Client) addBreakerSkip() {
	c.statsMu.Lock()
	c.stats.BreakerSkips++
	c.statsMu.Unlock()
}
