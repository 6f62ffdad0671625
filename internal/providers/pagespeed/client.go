package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/cache"
	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/internal/providers"
	"github.com/rankontop/backend/internal/signal"
	"github.com/rankontop/backend/pkg/logger"
	"github.com/rankontop/backend/pkg/utils"
)

const providerName = "pagespeed"

// CacheNamespace prefixes every cached response of this provider.
const CacheNamespace = providerName

type Config struct {
	APIKey   string
	BaseURL  string
	Strategy string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client measures page performance through the PageSpeed Insights API.
type Client struct {
	apiKey     string
	baseURL    string
	strategy   string
	cacheTTL   time.Duration
	httpClient *http.Client
	guard      *providers.Guard
	cache      cache.Cache
}

func NewClient(cfg Config, c cache.Cache) *Client {
	if cfg.Strategy == "" {
		cfg.Strategy = "MOBILE"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if c == nil {
		c = cache.Noop{}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		strategy:   cfg.Strategy,
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		guard:      providers.NewGuard(providerName, 2),
		cache:      c,
	}
}

type runPagespeedResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score *float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

// Fetch returns the 0-100 performance score of pageURL. It never returns an
// error; every failure becomes a failed result.
func (c *Client) Fetch(ctx context.Context, pageURL string) signal.Result[signal.Performance] {
	key := utils.CacheKey(providerName, c.strategy, pageURL)

	var cached signal.Performance
	if hit, err := c.cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Warn("PageSpeed cache lookup failed", zap.Error(err))
	} else if hit {
		metrics.CacheHits.WithLabelValues(providerName).Inc()
		return signal.OK(cached)
	}
	metrics.CacheMisses.WithLabelValues(providerName).Inc()

	var perf signal.Performance
	err := c.guard.Do(ctx, func() error {
		var err error
		perf, err = c.run(ctx, pageURL)
		return err
	})
	if err != nil {
		metrics.AdapterFailures.WithLabelValues(providerName).Inc()
		logger.Warn("PageSpeed request failed", zap.String("url", pageURL), zap.Error(err))
		return signal.Failed[signal.Performance](err)
	}

	if err := c.cache.SetJSON(ctx, key, perf, c.cacheTTL); err != nil {
		logger.Warn("Failed to cache PageSpeed result", zap.Error(err))
	}

	logger.Debug("PageSpeed measured", zap.String("url", pageURL), zap.Float64("score", perf.Score))
	return signal.OK(perf)
}

func (c *Client) run(ctx context.Context, pageURL string) (signal.Performance, error) {
	params := url.Values{}
	params.Set("url", pageURL)
	params.Set("strategy", c.strategy)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return signal.Performance{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return signal.Performance{}, fmt.Errorf("failed to call pagespeed: %w", err)
	}
	defer resp.Body.Close()

	if err := providers.CheckStatus(providerName, resp); err != nil {
		return signal.Performance{}, err
	}

	var body runPagespeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return signal.Performance{}, fmt.Errorf("failed to parse pagespeed response: %w", err)
	}

	score := body.LighthouseResult.Categories.Performance.Score
	if score == nil {
		return signal.Performance{}, fmt.Errorf("pagespeed response has no performance score")
	}

	// Lighthouse reports 0-1.
	return signal.Performance{Score: math.Round(*score*10000) / 100, Strategy: c.strategy}, nil
}
