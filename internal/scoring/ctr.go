package scoring

import "github.com/rankontop/backend/internal/signal"

// CTREstimator supplies the click-through term of the SEO formula. The
// keyword result is passed so a position-based estimate can replace the
// constant without touching the formula.
type CTREstimator interface {
	EstimateCTR(keyword signal.Result[signal.KeywordInsight]) float64
}

// ConstantCTR always returns the same estimate.
type ConstantCTR float64

func (c ConstantCTR) EstimateCTR(signal.Result[signal.KeywordInsight]) float64 {
	return float64(c)
}
