package fuzzy

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/stresssense/stress-sense/internal/domain/shared"
)

// Universe is the closed interval [Lo, Hi] a variable lives on. Resolution is
// the sampling step used only when the universe is discretized.
type Universe struct {
	Lo         float64
	Hi         float64
	Resolution float64
}

// NewUniverse validates the bounds and the sampling step.
func NewUniverse(lo, hi, resolution float64) (Universe, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return Universe{}, shared.ModelError("fuzzy", "NewUniverse", "bounds must be finite")
	}
	if lo >= hi {
		return Universe{}, shared.ModelError("fuzzy", "NewUniverse",
			"lower bound %g must be below upper bound %g", lo, hi)
	}
	if !(resolution > 0) || resolution > hi-lo {
		return Universe{}, shared.ModelError("fuzzy", "NewUniverse",
			"resolution %g must be in (0, %g]", resolution, hi-lo)
	}
	return Universe{Lo: lo, Hi: hi, Resolution: resolution}, nil
}

// Clamp pins x into [Lo, Hi]. NaN is pinned to Lo.
func (u Universe) Clamp(x float64) float64 {
	if math.IsNaN(x) || x < u.Lo {
		return u.Lo
	}
	if x > u.Hi {
		return u.Hi
	}
	return x
}

// Len returns the number of sample points, both bounds included.
func (u Universe) Len() int {
	return int(math.Round((u.Hi-u.Lo)/u.Resolution)) + 1
}

// Points returns a freshly allocated, evenly spaced grid over [Lo, Hi].
// The endpoints are exact.
func (u Universe) Points() []float64 {
	return floats.Span(make([]float64, u.Len()), u.Lo, u.Hi)
}
