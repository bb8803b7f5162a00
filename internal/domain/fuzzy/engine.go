package fuzzy

import (
	"gonum.org/v1/gonum/floats"

	"github.com/stresssense/stress-sense/internal/domain/shared"
)

// FallbackCentroid is returned by Defuzzify when the aggregated set has no
// positive membership anywhere.
const FallbackCentroid = 50.0

var errNilRuleBase = shared.ModelError("fuzzy", "NewEngine", "rule base is required")

// Evaluation is the per-call working state of one inference. It is owned by
// the caller and never shared with the Engine.
type Evaluation struct {
	// Inputs holds the clamped crisp inputs, aligned with RuleBase.Inputs.
	Inputs []float64
	// Degrees[i][t] is the degree of term t of input i.
	Degrees [][]float64
	// Strengths[r] is the firing strength of rule r.
	Strengths []float64
	// Aggregated is the output fuzzy set sampled on Engine.Grid.
	Aggregated []float64
	// Activated counts rules with a positive firing strength.
	Activated int
}

// Engine runs Mamdani inference (min AND, min implication, max aggregation)
// over a RuleBase and defuzzifies by centroid. It holds only read-only data.
type Engine struct {
	rules    *RuleBase
	grid     []float64
	curves   [][]float64 // output term index -> MF sampled on grid
	fallback float64
}

// NewEngine precomputes the output grid and the consequent curves.
func NewEngine(rules *RuleBase) (*Engine, error) {
	if rules == nil {
		return nil, errNilRuleBase
	}

	out := rules.output
	grid := out.Universe().Points()
	curves := make([][]float64, len(out.terms))
	for i, t := range out.terms {
		c := make([]float64, len(grid))
		for j, x := range grid {
			c[j] = t.MF.Degree(x)
		}
		curves[i] = c
	}

	u := out.Universe()
	return &Engine{
		rules:    rules,
		grid:     grid,
		curves:   curves,
		fallback: u.Clamp(FallbackCentroid),
	}, nil
}

// RuleBase returns the rule table the engine evaluates.
func (e *Engine) RuleBase() *RuleBase { return e.rules }

// Grid returns a copy of the discretized output universe.
func (e *Engine) Grid() []float64 {
	return append([]float64(nil), e.grid...)
}

// Infer fuzzifies the inputs, fires every rule and aggregates the clipped
// consequents. Inputs are positional, aligned with RuleBase.Inputs, and are
// clamped to their universes. It panics if len(inputs) does not match.
func (e *Engine) Infer(inputs ...float64) *Evaluation {
	vars := e.rules.inputs
	if len(inputs) != len(vars) {
		panic("fuzzy: Infer called with wrong number of inputs")
	}

	ev := &Evaluation{
		Inputs:     make([]float64, len(vars)),
		Degrees:    make([][]float64, len(vars)),
		Strengths:  make([]float64, len(e.rules.compiled)),
		Aggregated: make([]float64, len(e.grid)),
	}
	for i, v := range vars {
		x := v.Clamp(inputs[i])
		ev.Inputs[i] = x
		ev.Degrees[i] = v.degrees(x)
	}

	for r, cr := range e.rules.compiled {
		strength := 1.0
		for i, t := range cr.terms {
			strength = min(strength, ev.Degrees[i][t])
		}
		ev.Strengths[r] = strength
		if strength <= 0 {
			continue
		}
		ev.Activated++

		curve := e.curves[cr.consequent]
		for j, mu := range curve {
			if clipped := min(mu, strength); clipped > ev.Aggregated[j] {
				ev.Aggregated[j] = clipped
			}
		}
	}
	return ev
}

// Defuzzify returns the centroid of an aggregated set sampled on Grid. An
// all-zero set yields FallbackCentroid.
func (e *Engine) Defuzzify(aggregated []float64) float64 {
	if len(aggregated) != len(e.grid) {
		panic("fuzzy: aggregated set does not match the output grid")
	}
	area := floats.Sum(aggregated)
	if !(area > 0) {
		return e.fallback
	}
	return floats.Dot(e.grid, aggregated) / area
}

// Evaluate runs Infer and Defuzzify in one call.
func (e *Engine) Evaluate(inputs ...float64) (float64, *Evaluation) {
	ev := e.Infer(inputs...)
	return e.Defuzzify(ev.Aggregated), ev
}

// Membership returns input i's degrees from an evaluation keyed by term name.
func (e *Engine) Membership(ev *Evaluation, i int) Membership {
	v := e.rules.inputs[i]
	m := make(Membership, len(v.terms))
	for t, term := range v.terms {
		m[term.Name] = ev.Degrees[i][t]
	}
	return m
}
