package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haoyang/ant/pkg/history"
)

// stubProvider replays a scripted sequence of results.
type stubProvider struct {
	responses []*Response
	errs      []error
	calls     int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Send(ctx context.Context, req Request) (*Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) && s.responses[i] != nil {
		return s.responses[i], nil
	}
	return &Response{Content: "ok"}, nil
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	client, err := NewClient(cfg)
	require.NoError(t, err)
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return client
}

func TestClientInvoke(t *testing.T) {
	t.Run("should return the response on first success", func(t *testing.T) {
		provider := &stubProvider{responses: []*Response{{Content: "hello"}}}
		client := newTestClient(t, Config{Provider: provider})

		resp, err := client.Invoke(context.Background(), Request{Model: "m"})
		require.NoError(t, err)
		assert.Equal(t, "hello", resp.Content)
		assert.Equal(t, 1, provider.calls)

		stats := client.Stats()
		assert.Equal(t, 1, stats.TotalCalls)
		assert.Equal(t, 1, stats.SuccessfulCalls)
		assert.Equal(t, 0, stats.Retries)
	})

	t.Run("should retry transient errors until success", func(t *testing.T) {
		provider := &stubProvider{
			errs: []error{
				errors.New("429 rate limit exceeded"),
				errors.New("connection reset"),
				nil,
			},
		}
		client := newTestClient(t, Config{Provider: provider, MaxRetries: 5})

		resp, err := client.Invoke(context.Background(), Request{Model: "m"})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
		assert.Equal(t, 3, provider.calls)
		assert.Equal(t, 2, client.Stats().Retries)
	})

	t.Run("should fail immediately on non-retryable errors", func(t *testing.T) {
		provider := &stubProvider{errs: []error{errors.New("401 authentication failed")}}
		client := newTestClient(t, Config{Provider: provider, MaxRetries: 5})

		_, err := client.Invoke(context.Background(), Request{Model: "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNonRetryable)
		assert.Equal(t, 1, provider.calls)
	})

	t.Run("should exhaust retries and wrap the last error", func(t *testing.T) {
		provider := &stubProvider{
			errs: []error{
				errors.New("timeout"), errors.New("timeout"), errors.New("503 unavailable"),
			},
		}
		client := newTestClient(t, Config{Provider: provider, MaxRetries: 2, FailureThreshold: 100})

		_, err := client.Invoke(context.Background(), Request{Model: "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.Contains(t, err.Error(), "503 unavailable")
		assert.Equal(t, 3, provider.calls)
	})

	t.Run("should skip attempts while the breaker is open", func(t *testing.T) {
		provider := &stubProvider{
			errs: []error{
				errors.New("timeout"), errors.New("timeout"),
			},
		}
		client := newTestClient(t, Config{
			Provider:         provider,
			MaxRetries:       5,
			FailureThreshold: 2,
			BreakerTimeout:   time.Hour,
		})

		_, err := client.Invoke(context.Background(), Request{Model: "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		// Two real attempts open the breaker; the remaining four are skipped
		// without contacting the provider.
		assert.Equal(t, 2, provider.calls)
		assert.Equal(t, 4, client.Stats().BreakerSkips)
		assert.Equal(t, StateOpen, client.BreakerState())
	})

	t.Run("should stop when the caller context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		provider := &stubProvider{errs: []error{errors.New("timeout")}}
		client := newTestClient(t, Config{Provider: provider, MaxRetries: 5})
		client.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}

		_, err := client.Invoke(ctx, Request{Model: "m"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("should synthesize ids for tool calls missing one", func(t *testing.T) {
		provider := &stubProvider{responses: []*Response{{
			ToolCalls: []history.ToolCall{
				{ID: "", Name: "bash"},
				{ID: "call_existing", Name: "bash"},
			},
		}}}
		client := newTestClient(t, Config{Provider: provider})

		resp, err := client.Invoke(context.Background(), Request{Model: "m"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.ToolCalls[0].ID)
		assert.Contains(t, resp.ToolCalls[0].ID, "call_")
		assert.Equal(t, "call_existing", resp.ToolCalls[1].ID)
	})
}

func TestComputeDelay(t *testing.T) {
	t.Run("should grow exponentially and cap at max delay", func(t *testing.T) {
		client := newTestClient(t, Config{
			Provider:        &stubProvider{},
			Strategy:        RetryExponential,
			BaseDelay:       time.Second,
			MaxDelay:        120 * time.Second,
			ExponentialBase: 2.0,
		})

		assert.Equal(t, 1*time.Second, client.computeDelay(0))
		assert.Equal(t, 2*time.Second, client.computeDelay(1))
		assert.Equal(t, 32*time.Second, client.computeDelay(5))
		assert.Equal(t, 120*time.Second, client.computeDelay(10))
	})

	t.Run("should grow linearly", func(t *testing.T) {
		client := newTestClient(t, Config{
			Provider:  &stubProvider{},
			Strategy:  RetryLinear,
			BaseDelay: 2 * time.Second,
			MaxDelay:  time.Minute,
		})

		assert.Equal(t, time.Duration(0), client.computeDelay(0))
		assert.Equal(t, 2*time.Second, client.computeDelay(1))
		assert.Equal(t, 6*time.Second, client.computeDelay(3))
	})

	t.Run("should stay constant for fixed strategy", func(t *testing.T) {
		client := newTestClient(t, Config{
			Provider:  &stubProvider{},
			Strategy:  RetryFixed,
			BaseDelay: 3 * time.Second,
		})

		assert.Equal(t, 3*time.Second, client.computeDelay(0))
		assert.Equal(t, 3*time.Second, client.computeDelay(7))
	})

	t.Run("should jitter within half to one-and-a-half of the base", func(t *testing.T) {
		client := newTestClient(t, Config{
			Provider:  &stubProvider{},
			Strategy:  RetryFixed,
			BaseDelay: 10 * time.Second,
			Jitter:    true,
		})

		for i := 0; i < 50; i++ {
			d := client.computeDelay(0)
			assert.GreaterOrEqual(t, d, 5*time.Second)
			assert.Less(t, d, 15*time.Second)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	t.Run("should treat rate limits and server errors as retryable", func(t *testing.T) {
		assert.True(t, IsRetryable(errors.New("429 too many requests")))
		assert.True(t, IsRetryable(errors.New("server returned 500")))
		assert.True(t, IsRetryable(errors.New("read: connection reset by peer")))
		assert.True(t, IsRetryable(errors.New("model is overloaded")))
	})

	t.Run("should treat auth and validation errors as terminal", func(t *testing.T) {
		assert.False(t, IsRetryable(errors.New("401 unauthorized")))
		assert.False(t, IsRetryable(errors.New("invalid request body")))
		assert.False(t, IsRetryable(errors.New("authentication token expired")))
		assert.False(t, IsRetryable(errors.New("model not found")))
	})

	t.Run("should default unknown errors to retryable", func(t *testing.T) {
		assert.True(t, IsRetryable(errors.New("something odd happened")))
	})

	t.Run("should not retry nil errors", func(t *testing.T) {
		assert.False(t, IsRetryable(nil))
	})
}
