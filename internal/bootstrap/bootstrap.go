// Package bootstrap builds the analysis pipeline from configuration. The API
// server and the vscore CLI share it.
package bootstrap

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/analysis"
	"github.com/rankontop/backend/internal/cache"
	"github.com/rankontop/backend/internal/cache/redis"
	"github.com/rankontop/backend/internal/llm"
	"github.com/rankontop/backend/internal/providers/appstore"
	"github.com/rankontop/backend/internal/providers/pagespeed"
	"github.com/rankontop/backend/internal/providers/scraper"
	"github.com/rankontop/backend/internal/providers/serp"
	"github.com/rankontop/backend/internal/quota"
	"github.com/rankontop/backend/internal/readability"
	"github.com/rankontop/backend/internal/scoring"
	"github.com/rankontop/backend/pkg/config"
	"github.com/rankontop/backend/pkg/logger"
)

// Pipeline is everything needed to evaluate targets, minus persistence.
type Pipeline struct {
	Sources analysis.Sources
	Config  analysis.Config

	closers []func() error
}

// Close releases connections opened by Build.
func (p *Pipeline) Close() {
	for _, c := range p.closers {
		if err := c(); err != nil {
			logger.Warn("Failed to close pipeline resource", zap.Error(err))
		}
	}
}

// Build wires the signal adapters, caches and scoring estimators described
// by cfg. A redis outage falls back to running uncached.
func Build(cfg *config.Config) (*Pipeline, error) {
	p := &Pipeline{}

	var providerCache cache.Cache = cache.Noop{}
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, provider responses will not be cached", zap.Error(err))
		} else {
			providerCache = rc
			p.closers = append(p.closers, rc.Close)
		}
	}
	cacheTTL := time.Duration(cfg.Redis.TTLSec) * time.Second

	catalog := make(map[string]appstore.Entry, len(cfg.AppStore.Catalog))
	for _, app := range cfg.AppStore.Catalog {
		catalog[app.AppID] = appstore.Entry{Rating: app.Rating, Sentiment: app.Sentiment}
	}

	p.Sources = analysis.Sources{
		Performance: pagespeed.NewClient(pagespeed.Config{
			APIKey:   cfg.PageSpeed.APIKey,
			BaseURL:  cfg.PageSpeed.BaseURL,
			Strategy: cfg.PageSpeed.Strategy,
			Timeout:  time.Duration(cfg.PageSpeed.TimeoutSec) * time.Second,
			CacheTTL: cacheTTL,
		}, providerCache),
		Content: scraper.New(cfg.Scraper.UserAgent, time.Duration(cfg.Scraper.TimeoutSec)*time.Second),
		Keyword: serp.NewClient(serp.Config{
			APIKey:            cfg.Serp.APIKey,
			BaseURL:           cfg.Serp.BaseURL,
			Timeout:           time.Duration(cfg.Serp.TimeoutSec) * time.Second,
			RequestsPerSecond: cfg.Serp.RequestsPerSecond,
			CacheTTL:          cacheTTL,
		}, providerCache),
		App: appstore.NewResolver(appstore.NewCatalog(catalog)),
	}

	var completer readability.Completer
	if cfg.Scoring.ReadabilityMode == readability.ModeLLM {
		completer = llm.NewClient(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		})
	}

	estimator, err := readability.New(cfg.Scoring.ReadabilityMode, cfg.Scoring.ReadabilityPlaceholder, completer)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to build readability estimator: %w", err)
	}

	p.Config = analysis.Config{
		Gate:        quota.NewGate(cfg.Quota.FreeTierLimit),
		Readability: estimator,
		CTR:         scoring.ConstantCTR(cfg.Scoring.CTRPlaceholder),
	}

	logger.Info("Analysis pipeline ready",
		zap.String("readability_mode", cfg.Scoring.ReadabilityMode),
		zap.Bool("provider_cache", cfg.Redis.Enabled && len(p.closers) > 0),
		zap.Int("free_tier_limit", cfg.Quota.FreeTierLimit),
	)

	return p, nil
}
