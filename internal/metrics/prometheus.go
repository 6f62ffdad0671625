package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rankontop_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"target_kind"},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankontop_analysis_total",
			Help: "Analyses by outcome",
		},
		[]string{"outcome"},
	)

	SubScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rankontop_subscore",
			Help:    "Distribution of computed sub-scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"dimension"},
	)

	OverallScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rankontop_overall_score",
			Help:    "Distribution of composite visibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	AdapterFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankontop_adapter_failures_total",
			Help: "Signal source calls that resolved to a failed result",
		},
		[]string{"adapter"},
	)

	AppReputationOrigin = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankontop_app_reputation_origin_total",
			Help: "App reputations by the path that produced them",
		},
		[]string{"origin"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankontop_cache_hits_total",
			Help: "Provider cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankontop_cache_misses_total",
			Help: "Provider cache misses",
		},
		[]string{"cache_type"},
	)

	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rankontop_circuit_state",
			Help: "Provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			AnalysisDuration,
			AnalysisTotal,
			SubScore,
			OverallScore,
			AdapterFailures,
			AppReputationOrigin,
			CacheHits,
			CacheMisses,
			CircuitState,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
