// Package appstore resolves the store reputation of a mobile app. A verified
// catalogue answers for known ids; anything else gets a deterministic estimate
// derived from the id.
package appstore

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/internal/signal"
	"github.com/rankontop/backend/pkg/logger"
	"github.com/rankontop/backend/pkg/utils"
)

var ErrAppNotFound = errors.New("app not found")

// Provider is a source of real store data.
type Provider interface {
	Lookup(ctx context.Context, appID string) (signal.AppReputation, error)
}

type Entry struct {
	Rating    float64
	Sentiment float64
}

// Catalog is a Provider backed by a fixed set of verified ratings.
type Catalog struct {
	entries map[string]Entry
}

// DefaultCatalog holds the verified ratings shipped with the service.
func DefaultCatalog() map[string]Entry {
	return map[string]Entry{
		"com.instagram.android":      {Rating: 4.3, Sentiment: 75},
		"com.google.android.youtube": {Rating: 4.1, Sentiment: 72},
		"com.zhiliaoapp.musically":   {Rating: 4.4, Sentiment: 80},
		"com.facebook.katana":        {Rating: 4.3, Sentiment: 78},
	}
}

// NewCatalog merges extra over the default entries.
func NewCatalog(extra map[string]Entry) *Catalog {
	entries := DefaultCatalog()
	for id, e := range extra {
		entries[id] = e
	}
	return &Catalog{entries: entries}
}

func (c *Catalog) Lookup(_ context.Context, appID string) (signal.AppReputation, error) {
	e, ok := c.entries[appID]
	if !ok {
		return signal.AppReputation{}, ErrAppNotFound
	}
	return signal.AppReputation{AppID: appID, Rating: e.Rating, Sentiment: e.Sentiment}, nil
}

// Estimate derives a stable reputation from the SHA-256 of appID. The rating
// falls in [1.0, 4.9] and the sentiment tracks it, capped at 100.
func Estimate(appID string) signal.AppReputation {
	digest := utils.SHA256Hex(appID)

	ratingBase, _ := strconv.ParseUint(digest[0:5], 16, 64)
	sentimentBase, _ := strconv.ParseUint(digest[5:10], 16, 64)

	rating := math.Round((float64(ratingBase%40)/10+1)*10) / 10
	sentiment := math.Trunc(rating*15 + float64(sentimentBase%25))
	sentiment = math.Max(0, math.Min(100, sentiment))

	return signal.AppReputation{
		AppID:     appID,
		Rating:    rating,
		Sentiment: sentiment,
		Origin:    signal.OriginEstimated,
	}
}

// Resolver tries the provider first and falls back to Estimate when the
// provider does not know the app or cannot be reached.
type Resolver struct {
	provider Provider
}

func NewResolver(p Provider) *Resolver {
	return &Resolver{provider: p}
}

func (r *Resolver) Fetch(ctx context.Context, appID string) signal.Result[signal.AppReputation] {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		metrics.AdapterFailures.WithLabelValues("appstore").Inc()
		return signal.Failedf[signal.AppReputation]("no app id provided")
	}

	if r.provider != nil {
		rep, err := r.provider.Lookup(ctx, appID)
		if err == nil {
			rep.AppID = appID
			rep.Origin = signal.OriginProvider
			metrics.AppReputationOrigin.WithLabelValues(string(signal.OriginProvider)).Inc()
			return signal.OK(rep)
		}
		if !errors.Is(err, ErrAppNotFound) {
			logger.Warn("App store provider failed, using estimate", zap.String("app_id", appID), zap.Error(err))
		}
	}

	rep := Estimate(appID)
	metrics.AppReputationOrigin.WithLabelValues(string(signal.OriginEstimated)).Inc()
	return signal.OK(rep)
}
