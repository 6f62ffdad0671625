package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rankontop/backend/pkg/circuitbreaker"
	"github.com/rankontop/backend/pkg/retry"
)

func response(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus("pagespeed", response(200, "")))

	err := CheckStatus("pagespeed", response(403, "API key not valid"))
	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 403, se.StatusCode)
	assert.True(t, retry.IsPermanent(err))
	assert.Contains(t, err.Error(), "API key not valid")

	err = CheckStatus("serpapi", response(429, ""))
	assert.False(t, retry.IsPermanent(err))
	assert.EqualError(t, err, "serpapi returned status 429")

	assert.False(t, retry.IsPermanent(CheckStatus("serpapi", response(502, ""))))
}

func TestGuard_RetriesThenSucceeds(t *testing.T) {
	g := NewGuard("test-provider", 3).WithRetryDelay(time.Millisecond, time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("connection reset")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, circuitbreaker.StateClosed, g.State())
}

func TestGuard_PermanentNotRetried(t *testing.T) {
	g := NewGuard("test-provider", 3).WithRetryDelay(time.Millisecond, time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), func() error {
		calls++
		return retry.Permanent(errors.New("bad request"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
