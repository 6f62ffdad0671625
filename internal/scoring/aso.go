package scoring

import (
	"math"

	"github.com/rankontop/backend/internal/signal"
)

// ASO scores app reputation from a 1-5 star rating and a 0-100 sentiment.
// A failed reputation lookup scores zero.
func ASO(r signal.Result[signal.AppReputation]) float64 {
	a, ok := r.Value()
	if !ok {
		return 0
	}

	rating := math.Max(0, math.Min(5, a.Rating))
	return clamp((rating/5*100)*asoRatingWeight + clamp(a.Sentiment)*asoSentimentWeight)
}
