package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProvider = errors.New("provider unavailable")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("serpapi", Config{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := cb.Execute(ctx, func() error { return errProvider })
		require.ErrorIs(t, err, errProvider)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []string{"serpapi:closed->open"}, transitions)

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("pagespeed", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Second,
	})
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errProvider })
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_CancelledCallDoesNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("scraper", Config{FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())

	err := cb.Execute(ctx, func() error {
		cancel()
		return context.Canceled
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_SingleTrialCall(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("llm", Config{FailureThreshold: 1, Timeout: time.Second})
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errProvider })
	now = now.Add(2 * time.Second)

	inner := make(chan error, 1)
	err := cb.Execute(ctx, func() error {
		inner <- cb.Execute(ctx, func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, <-inner, ErrTrialInFlight)
	assert.Equal(t, StateHalfOpen, cb.State(), "one success is below the default threshold")
}

func TestCircuitBreaker_TrialFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("serpapi", Config{FailureThreshold: 3, Timeout: time.Second})
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func() error { return errProvider })
	}
	now = now.Add(2 * time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	_ = cb.Execute(ctx, func() error { return errProvider })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("pagespeed", Config{FailureThreshold: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errProvider })
	_ = cb.Execute(ctx, func() error { return nil })
	_ = cb.Execute(ctx, func() error { return errProvider })
	assert.Equal(t, StateClosed, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
