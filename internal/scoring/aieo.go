package scoring

import "github.com/rankontop/backend/internal/signal"

// Difficulty is the keyword competition band.
type Difficulty string

const (
	DifficultyVeryHigh Difficulty = "Very High"
	DifficultyHigh     Difficulty = "High"
	DifficultyMedium   Difficulty = "Medium"
	DifficultyLow      Difficulty = "Low"
	DifficultyVeryLow  Difficulty = "Very Low"
)

// DifficultyFor maps the number of pages competing on an exact-title query
// to a band. Thresholds are exclusive lower bounds.
func DifficultyFor(competingPages int64) Difficulty {
	switch {
	case competingPages > 100000:
		return DifficultyVeryHigh
	case competingPages > 20000:
		return DifficultyHigh
	case competingPages > 5000:
		return DifficultyMedium
	case competingPages > 1000:
		return DifficultyLow
	default:
		return DifficultyVeryLow
	}
}

// InverseDifficulty scores how easy a band is to rank in.
func InverseDifficulty(d Difficulty) float64 {
	switch d {
	case DifficultyVeryLow:
		return 100
	case DifficultyLow:
		return 75
	case DifficultyMedium:
		return 50
	case DifficultyHigh:
		return 25
	default:
		return 0
	}
}

// AIEO scores keyword competitiveness. It returns false when the keyword
// provider failed, in which case the dimension must be left out entirely.
func AIEO(r signal.Result[signal.KeywordInsight], readability float64) (float64, bool) {
	k, ok := r.Value()
	if !ok {
		return 0, false
	}

	top10 := 0.0
	if k.InTop10 {
		top10 = 100
	}

	score := InverseDifficulty(DifficultyFor(k.CompetingPages))*aieoDifficultyWeight +
		top10*aieoTop10Weight +
		clamp(readability)*aieoReadabilityWeight
	return clamp(score), true
}
