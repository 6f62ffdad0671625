package appstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankontop/backend/internal/signal"
)

func TestEstimate_FixedValues(t *testing.T) {
	tests := []struct {
		appID     string
		rating    float64
		sentiment float64
	}{
		{"com.example.unknown", 1.9, 51},
		{"com.acme.notes", 2.6, 46},
		{"io.rankontop.demo", 4.7, 86},
	}

	for _, tt := range tests {
		t.Run(tt.appID, func(t *testing.T) {
			rep := Estimate(tt.appID)
			assert.Equal(t, tt.rating, rep.Rating)
			assert.Equal(t, tt.sentiment, rep.Sentiment)
			assert.Equal(t, signal.OriginEstimated, rep.Origin)
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	assert.Equal(t, Estimate("com.some.app"), Estimate("com.some.app"))
}

func TestEstimate_Bounds(t *testing.T) {
	for _, id := range []string{"a", "b", "com.x", "com.y.z", "org.example.app", "1234567890"} {
		rep := Estimate(id)
		assert.GreaterOrEqual(t, rep.Rating, 1.0)
		assert.LessOrEqual(t, rep.Rating, 4.9)
		assert.GreaterOrEqual(t, rep.Sentiment, 0.0)
		assert.LessOrEqual(t, rep.Sentiment, 100.0)
	}
}

func TestResolver_KnownApp(t *testing.T) {
	r := NewResolver(NewCatalog(nil))

	res := r.Fetch(context.Background(), "com.instagram.android")

	require.True(t, res.OK())
	assert.Equal(t, 4.3, res.Data.Rating)
	assert.Equal(t, 75.0, res.Data.Sentiment)
	assert.Equal(t, signal.OriginProvider, res.Data.Origin)
}

func TestResolver_UnknownAppFallsBack(t *testing.T) {
	r := NewResolver(NewCatalog(nil))

	res := r.Fetch(context.Background(), "com.example.unknown")

	require.True(t, res.OK())
	assert.Equal(t, 1.9, res.Data.Rating)
	assert.Equal(t, signal.OriginEstimated, res.Data.Origin)
}

func TestResolver_ConfiguredEntry(t *testing.T) {
	r := NewResolver(NewCatalog(map[string]Entry{"com.acme.notes": {Rating: 4.8, Sentiment: 90}}))

	res := r.Fetch(context.Background(), "com.acme.notes")

	require.True(t, res.OK())
	assert.Equal(t, 4.8, res.Data.Rating)
	assert.Equal(t, signal.OriginProvider, res.Data.Origin)
}

type brokenProvider struct{}

func (brokenProvider) Lookup(context.Context, string) (signal.AppReputation, error) {
	return signal.AppReputation{}, errors.New("store unavailable")
}

func TestResolver_ProviderErrorFallsBack(t *testing.T) {
	res := NewResolver(brokenProvider{}).Fetch(context.Background(), "io.rankontop.demo")

	require.True(t, res.OK())
	assert.Equal(t, 4.7, res.Data.Rating)
	assert.Equal(t, 86.0, res.Data.Sentiment)
	assert.Equal(t, signal.OriginEstimated, res.Data.Origin)
}

func TestResolver_EmptyID(t *testing.T) {
	res := NewResolver(nil).Fetch(context.Background(), "  ")
	assert.Equal(t, signal.StatusFailed, res.Status)
}
