package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rankontop/backend/internal/cache"
	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/internal/providers"
	"github.com/rankontop/backend/internal/scoring"
	"github.com/rankontop/backend/internal/signal"
	"github.com/rankontop/backend/pkg/logger"
	"github.com/rankontop/backend/pkg/utils"
)

const providerName = "serpapi"

// CacheNamespace prefixes every cached response of this provider.
const CacheNamespace = providerName

type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// Client gathers keyword competitiveness from SerpAPI.
type Client struct {
	apiKey     string
	baseURL    string
	cacheTTL   time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	guard      *providers.Guard
	cache      cache.Cache
}

func NewClient(cfg Config, c cache.Cache) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if c == nil {
		c = cache.Noop{}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		guard:      providers.NewGuard(providerName, 2),
		cache:      c,
	}
}

// FirstKeyword returns the first comma-separated entry of raw, trimmed.
func FirstKeyword(raw string) string {
	first, _, _ := strings.Cut(raw, ",")
	return strings.TrimSpace(first)
}

type searchResponse struct {
	SearchInformation struct {
		TotalResults int64 `json:"total_results"`
	} `json:"search_information"`
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

// Fetch analyses the first keyword in rawKeyword for pageURL: an exact-title
// query gives the competing page count and a plain query tells whether the
// page's domain ranks in the top ten.
func (c *Client) Fetch(ctx context.Context, rawKeyword, pageURL string) signal.Result[signal.KeywordInsight] {
	if c.apiKey == "" {
		metrics.AdapterFailures.WithLabelValues(providerName).Inc()
		return signal.Failedf[signal.KeywordInsight]("SerpAPI key not found")
	}

	keyword := FirstKeyword(rawKeyword)
	if keyword == "" {
		metrics.AdapterFailures.WithLabelValues(providerName).Inc()
		return signal.Failedf[signal.KeywordInsight]("no keyword provided")
	}

	exact, err := c.search(ctx, "allintitle:"+keyword)
	if err != nil {
		return c.fail(keyword, err)
	}

	plain, err := c.search(ctx, keyword)
	if err != nil {
		return c.fail(keyword, err)
	}

	links := make([]string, 0, len(plain.OrganicResults))
	for _, r := range plain.OrganicResults {
		links = append(links, r.Link)
	}

	competing := exact.SearchInformation.TotalResults
	insight := signal.KeywordInsight{
		Keyword:        keyword,
		CompetingPages: competing,
		Difficulty:     string(scoring.DifficultyFor(competing)),
		InTop10:        InTop10(pageURL, links),
	}

	logger.Debug("Keyword analysed",
		zap.String("keyword", keyword),
		zap.Int64("competing_pages", competing),
		zap.Bool("in_top_10", insight.InTop10),
	)
	return signal.OK(insight)
}

func (c *Client) fail(keyword string, err error) signal.Result[signal.KeywordInsight] {
	metrics.AdapterFailures.WithLabelValues(providerName).Inc()
	logger.Warn("SerpAPI request failed", zap.String("keyword", keyword), zap.Error(err))
	return signal.Failed[signal.KeywordInsight](err)
}

func (c *Client) search(ctx context.Context, query string) (*searchResponse, error) {
	key := utils.CacheKey(providerName, query)

	var cached searchResponse
	if hit, err := c.cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Warn("SerpAPI cache lookup failed", zap.Error(err))
	} else if hit {
		metrics.CacheHits.WithLabelValues(providerName).Inc()
		return &cached, nil
	}
	metrics.CacheMisses.WithLabelValues(providerName).Inc()

	var result *searchResponse
	err := c.guard.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		result, err = c.get(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetJSON(ctx, key, result, c.cacheTTL); err != nil {
		logger.Warn("Failed to cache SerpAPI result", zap.Error(err))
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, query string) (*searchResponse, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if err := providers.CheckStatus(providerName, resp); err != nil {
		return nil, err
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &body, nil
}
