package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestMetricsHandler_ExposesCollectors(t *testing.T) {
	Init()
	AnalysisTotal.WithLabelValues("complete").Inc()
	AdapterFailures.WithLabelValues("serpapi").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `rankontop_analysis_total{outcome="complete"}`))
	assert.True(t, strings.Contains(string(body), `rankontop_adapter_failures_total{adapter="serpapi"}`))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(AppReputationOrigin.WithLabelValues("estimated"))
	AppReputationOrigin.WithLabelValues("estimated").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AppReputationOrigin.WithLabelValues("estimated")))
}
