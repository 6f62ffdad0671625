// Package scoring turns signal results into bounded 0-100 sub-scores and
// combines them into the overall visibility score. Everything here is pure.
package scoring

import (
	"math"

	"github.com/rankontop/backend/internal/signal"
)

type Dimension string

const (
	DimensionSEO  Dimension = "seo"
	DimensionAIEO Dimension = "aieo"
	DimensionASO  Dimension = "aso"
)

const (
	// ProvisionalCTR stands in for a click-through rate derived from result position.
	ProvisionalCTR = 50.0
	// ProvisionalReadability stands in for a measured text readability.
	ProvisionalReadability = 70.0
)

const (
	seoPerformanceWeight  = 0.4
	seoCompletenessWeight = 0.3
	seoCTRWeight          = 0.3

	aieoDifficultyWeight  = 0.4
	aieoTop10Weight       = 0.3
	aieoReadabilityWeight = 0.3

	asoRatingWeight    = 0.5
	asoSentimentWeight = 0.5
)

// Weights are the nominal top-level weights. They are never renormalized:
// a dimension that was not requested still owns its share of the total.
var Weights = map[Dimension]float64{
	DimensionSEO:  0.4,
	DimensionAIEO: 0.3,
	DimensionASO:  0.3,
}

// SubScores holds the dimensions computed for one analysis. A nil field means
// the dimension was never computed, which is different from a zero score.
type SubScores struct {
	SEO  *float64 `json:"seo,omitempty"`
	AIEO *float64 `json:"aieo,omitempty"`
	ASO  *float64 `json:"aso,omitempty"`
}

// Get returns the value of d and whether it is present.
func (s SubScores) Get(d Dimension) (float64, bool) {
	var p *float64
	switch d {
	case DimensionSEO:
		p = s.SEO
	case DimensionAIEO:
		p = s.AIEO
	case DimensionASO:
		p = s.ASO
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Dimensions lists the present dimensions in fixed order.
func (s SubScores) Dimensions() []Dimension {
	var out []Dimension
	for _, d := range []Dimension{DimensionSEO, DimensionAIEO, DimensionASO} {
		if _, ok := s.Get(d); ok {
			out = append(out, d)
		}
	}
	return out
}

// Score wraps v for use in SubScores.
func Score(v float64) *float64 {
	return &v
}

// PerformanceContribution passes a page-speed score through and treats an
// unreachable provider as zero.
func PerformanceContribution(r signal.Result[signal.Performance]) float64 {
	p, ok := r.Value()
	if !ok {
		return 0
	}
	return clamp(p.Score)
}

// Completeness awards 100/3 points for each of title, meta description and
// primary heading. No rounding happens here.
func Completeness(r signal.Result[signal.PageContent]) float64 {
	c, ok := r.Value()
	if !ok {
		return 0
	}

	present := 0
	for _, has := range []bool{c.HasTitle(), c.HasDescription(), c.HasHeading()} {
		if has {
			present++
		}
	}
	return float64(present) * 100 / 3
}

// SEO combines performance, on-page completeness and the click-through estimate.
func SEO(performance, completeness, ctr float64) float64 {
	return clamp(performance*seoPerformanceWeight +
		completeness*seoCompletenessWeight +
		clamp(ctr)*seoCTRWeight)
}

// Composite applies the nominal weights to the present sub-scores and rounds
// to one decimal. Absent dimensions add nothing.
func Composite(s SubScores) float64 {
	total := 0.0
	for _, d := range s.Dimensions() {
		v, _ := s.Get(d)
		total += clamp(v) * Weights[d]
	}
	return Round1(clamp(total))
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
