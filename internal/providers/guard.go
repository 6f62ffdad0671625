// Package providers holds the plumbing shared by the signal source adapters:
// a circuit breaker plus retry guard around each outbound call and HTTP
// status classification.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/pkg/circuitbreaker"
	"github.com/rankontop/backend/pkg/logger"
	"github.com/rankontop/backend/pkg/retry"
)

// Guard protects calls to one external provider.
type Guard struct {
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// NewGuard builds a guard named after the provider. attempts <= 0 uses the
// retry default.
func NewGuard(name string, attempts int) *Guard {
	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()
	if attempts > 0 {
		retryConfig.MaxAttempts = attempts
	}

	cb := circuitbreaker.NewCircuitBreaker(name, circuitbreaker.Config{
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
		OnStateChange: func(name string, _, to circuitbreaker.State) {
			metrics.CircuitState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Guard{cb: cb, retryConfig: retryConfig}
}

// WithRetryDelay shortens backoff, mostly for tests.
func (g *Guard) WithRetryDelay(initial, max time.Duration) *Guard {
	g.retryConfig.InitialDelay = initial
	g.retryConfig.MaxDelay = max
	return g
}

func (g *Guard) Do(ctx context.Context, fn func() error) error {
	return g.cb.Execute(ctx, func() error {
		return retry.Do(ctx, g.retryConfig, fn)
	})
}

func (g *Guard) State() circuitbreaker.State {
	return g.cb.State()
}

// StatusError is a non-2xx provider answer.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// CheckStatus turns a non-2xx response into a StatusError. Client errors other
// than 429 are marked permanent so they are not retried.
func CheckStatus(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	err := &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(snippet)}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
