// Package fuzzy implements a small Mamdani inference toolkit: trapezoidal
// membership functions, bounded variables, conjunctive rule tables and a
// centroid defuzzifier.
//
// Everything built by this package is immutable after construction and safe
// for concurrent use. Per-call state (term degrees, firing strengths, the
// aggregated output set) is allocated fresh on every Engine.Infer call.
package fuzzy

import (
	"math"

	"github.com/stresssense/stress-sense/internal/domain/shared"
)

// Trapezoid is a trapezoidal membership function with breakpoints A <= B <= C <= D.
// A == B gives a vertical left edge, C == D a vertical right edge.
type Trapezoid struct {
	A, B, C, D float64
}

// NewTrapezoid validates the breakpoints and returns the membership function.
func NewTrapezoid(a, b, c, d float64) (Trapezoid, error) {
	for _, v := range []float64{a, b, c, d} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Trapezoid{}, shared.ModelError("fuzzy", "NewTrapezoid",
				"breakpoints must be finite, got (%g, %g, %g, %g)", a, b, c, d)
		}
	}
	if a > b || b > c || c > d {
		return Trapezoid{}, shared.ModelError("fuzzy", "NewTrapezoid",
			"breakpoints must satisfy a <= b <= c <= d, got (%g, %g, %g, %g)", a, b, c, d)
	}
	return Trapezoid{A: a, B: b, C: c, D: d}, nil
}

// Degree evaluates the membership degree of x, always in [0, 1].
//
// The plateau [B, C] is checked first so shoulders (A == B or C == D) and the
// indicator case A == B == C == D never divide by zero.
func (t Trapezoid) Degree(x float64) float64 {
	switch {
	case x >= t.B && x <= t.C:
		return 1
	case x <= t.A || x >= t.D:
		return 0
	case x < t.B:
		return (x - t.A) / (t.B - t.A)
	default:
		return (t.D - x) / (t.D - t.C)
	}
}

// Support returns the open interval (A, D) outside which the degree is zero.
func (t Trapezoid) Support() (lo, hi float64) {
	return t.A, t.D
}

// Breakpoints returns the four breakpoints in order.
func (t Trapezoid) Breakpoints() [4]float64 {
	return [4]float64{t.A, t.B, t.C, t.D}
}
