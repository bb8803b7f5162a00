package fuzzy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stresssense/stress-sense/internal/domain/shared"
)

func TestTrapezoid_Degree(t *testing.T) {
	mf, err := NewTrapezoid(3, 5, 7, 9)
	require.NoError(t, err)

	cases := []struct {
		x    float64
		want float64
	}{
		{-1, 0}, {3, 0}, {4, 0.5}, {5, 1}, {6, 1}, {7, 1}, {8, 0.5}, {9, 0}, {100, 0},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, mf.Degree(c.x), 1e-12, "x=%v", c.x)
	}
}

func TestTrapezoid_Shoulders(t *testing.T) {
	left := Trapezoid{0, 0, 2, 4}
	assert.Equal(t, 1.0, left.Degree(0))
	assert.InDelta(t, 0.5, left.Degree(3), 1e-12)
	assert.Equal(t, 0.0, left.Degree(4))

	right := Trapezoid{8, 12, 24, 24}
	assert.Equal(t, 1.0, right.Degree(24))
	assert.InDelta(t, 0.25, right.Degree(9), 1e-12)
	assert.Equal(t, 0.0, right.Degree(25))
}

func TestTrapezoid_Indicator(t *testing.T) {
	mf := Trapezoid{2, 2, 2, 2}
	assert.Equal(t, 1.0, mf.Degree(2))
	assert.Equal(t, 0.0, mf.Degree(1.999))
	assert.Equal(t, 0.0, mf.Degree(2.001))
}

func TestTrapezoid_RampsAreMonotonic(t *testing.T) {
	mf := Trapezoid{1, 4, 6, 10}
	prev := 0.0
	for x := 1.0; x <= 4; x += 0.05 {
		d := mf.Degree(x)
		assert.GreaterOrEqual(t, d, prev)
		assert.True(t, d >= 0 && d <= 1)
		prev = d
	}
	prev = 1.0
	for x := 6.0; x <= 10; x += 0.05 {
		d := mf.Degree(x)
		assert.LessOrEqual(t, d, prev)
		prev = d
	}
}

func TestNewTrapezoid_Invalid(t *testing.T) {
	_, err := NewTrapezoid(5, 3, 7, 9)
	assert.True(t, shared.IsInvalidModel(err))

	_, err = NewTrapezoid(0, 1, math.NaN(), 2)
	assert.True(t, shared.IsInvalidModel(err))

	_, err = NewTrapezoid(0, 1, 2, math.Inf(1))
	assert.Error(t, err)
}

func TestUniverse(t *testing.T) {
	u, err := NewUniverse(0, 100, 0.1)
	require.NoError(t, err)

	assert.Equal(t, 1001, u.Len())
	pts := u.Points()
	require.Len(t, pts, 1001)
	assert.Equal(t, 0.0, pts[0])
	assert.Equal(t, 100.0, pts[1000])
	assert.InDelta(t, 50.0, pts[500], 1e-9)

	assert.Equal(t, 0.0, u.Clamp(-3))
	assert.Equal(t, 100.0, u.Clamp(250))
	assert.Equal(t, 0.0, u.Clamp(math.NaN()))
	assert.Equal(t, 42.0, u.Clamp(42))

	_, err = NewUniverse(10, 10, 0.1)
	assert.True(t, shared.IsInvalidModel(err))
	_, err = NewUniverse(0, 1, 0)
	assert.True(t, shared.IsInvalidModel(err))
	_, err = NewUniverse(0, 1, 2)
	assert.Error(t, err)
}

func mustUniverse(t *testing.T, lo, hi float64) Universe {
	t.Helper()
	u, err := NewUniverse(lo, hi, 0.1)
	require.NoError(t, err)
	return u
}

func levelVariable(t *testing.T, name string) *Variable {
	t.Helper()
	v, err := NewVariable(name, mustUniverse(t, 0, 10),
		Term{"low", Trapezoid{0, 0, 2, 5}},
		Term{"high", Trapezoid{5, 8, 10, 10}},
	)
	require.NoError(t, err)
	return v
}

func outputVariable(t *testing.T) *Variable {
	t.Helper()
	v, err := NewVariable("out", mustUniverse(t, 0, 100),
		Term{"calm", Trapezoid{0, 0, 20, 40}},
		Term{"tense", Trapezoid{60, 80, 100, 100}},
	)
	require.NoError(t, err)
	return v
}

func TestVariable_Fuzzify(t *testing.T) {
	v := levelVariable(t, "noise")

	x, m := v.Fuzzify(-4)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, Membership{"low": 1, "high": 0}, m)

	x, m = v.Fuzzify(3.5)
	assert.Equal(t, 3.5, x)
	assert.InDelta(t, 0.5, m["low"], 1e-12)
	assert.Equal(t, 0.0, m["high"])

	assert.Equal(t, []string{"low", "high"}, v.TermNames())
	assert.True(t, v.HasTerm("high"))
	assert.False(t, v.HasTerm("medium"))
}

func TestNewVariable_Invalid(t *testing.T) {
	u := mustUniverse(t, 0, 10)

	_, err := NewVariable("", u, Term{"a", Trapezoid{0, 1, 2, 3}})
	assert.True(t, shared.IsInvalidModel(err))

	_, err = NewVariable("v", u)
	assert.True(t, shared.IsInvalidModel(err))

	_, err = NewVariable("v", u, Term{"a", Trapezoid{0, 1, 2, 3}}, Term{"a", Trapezoid{0, 1, 2, 3}})
	assert.True(t, shared.IsInvalidModel(err))

	_, err = NewVariable("v", u, Term{"a", Trapezoid{3, 1, 2, 3}})
	assert.True(t, shared.IsInvalidModel(err))
}

func clause(v, t string) Clause { return Clause{Variable: v, Term: t} }

func twoByTwoRules() []Rule {
	return []Rule{
		{If: []Clause{clause("noise", "low"), clause("light", "low")}, Then: "calm"},
		{If: []Clause{clause("noise", "low"), clause("light", "high")}, Then: "calm"},
		{If: []Clause{clause("noise", "high"), clause("light", "low")}, Then: "tense"},
		{If: []Clause{clause("light", "high"), clause("noise", "high")}, Then: "tense"},
	}
}

func TestNewRuleBase(t *testing.T) {
	in := []*Variable{levelVariable(t, "noise"), levelVariable(t, "light")}
	out := outputVariable(t)

	rb, err := NewRuleBase(in, out, twoByTwoRules())
	require.NoError(t, err)
	assert.Equal(t, 4, rb.Len())
	assert.Equal(t, "IF light is high AND noise is high THEN tense", rb.Rules()[3].String())
}

func TestNewRuleBase_Rejects(t *testing.T) {
	in := []*Variable{levelVariable(t, "noise"), levelVariable(t, "light")}
	out := outputVariable(t)

	tests := []struct {
		name   string
		mutate func([]Rule) []Rule
	}{
		{"missing combination", func(r []Rule) []Rule { return r[:3] }},
		{"duplicate antecedent", func(r []Rule) []Rule {
			r[1].If = []Clause{clause("noise", "low"), clause("light", "low")}
			return r
		}},
		{"unknown variable", func(r []Rule) []Rule {
			r[0].If[0] = clause("volume", "low")
			return r
		}},
		{"unknown term", func(r []Rule) []Rule {
			r[0].If[1] = clause("light", "medium")
			return r
		}},
		{"unknown consequent", func(r []Rule) []Rule {
			r[2].Then = "panic"
			return r
		}},
		{"variable twice", func(r []Rule) []Rule {
			r[0].If[1] = clause("noise", "high")
			return r
		}},
		{"short clause list", func(r []Rule) []Rule {
			r[0].If = r[0].If[:1]
			return r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleBase(in, out, tt.mutate(twoByTwoRules()))
			require.Error(t, err)
			assert.True(t, shared.IsInvalidModel(err))
		})
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	rb, err := NewRuleBase(
		[]*Variable{levelVariable(t, "noise"), levelVariable(t, "light")},
		outputVariable(t),
		twoByTwoRules(),
	)
	require.NoError(t, err)
	e, err := NewEngine(rb)
	require.NoError(t, err)
	return e
}

func TestEngine_SingleRule(t *testing.T) {
	e := newTestEngine(t)

	score, ev := e.Evaluate(1, 1)
	assert.Equal(t, 1, ev.Activated)
	assert.Equal(t, []float64{1, 0, 0, 0}, ev.Strengths)
	// centroid of trapezoid (0,0,20,40)
	assert.InDelta(t, 15.56, score, 0.05)

	score, _ = e.Evaluate(9, 9)
	assert.InDelta(t, 84.44, score, 0.05)
}

func TestEngine_ClipAndAggregate(t *testing.T) {
	e := newTestEngine(t)

	// noise low = 0.5, light low = 1
	ev := e.Infer(3.5, 0)
	assert.InDelta(t, 0.5, ev.Strengths[0], 1e-12)
	assert.Equal(t, 1, ev.Activated)
	for _, mu := range ev.Aggregated {
		assert.LessOrEqual(t, mu, 0.5)
	}
	assert.Equal(t, 0.5, ev.Aggregated[0])
	assert.Equal(t, 0.0, ev.Aggregated[len(ev.Aggregated)-1])
}

func TestEngine_ClampsInputs(t *testing.T) {
	e := newTestEngine(t)

	a, evA := e.Evaluate(-50, 99)
	b, _ := e.Evaluate(0, 10)
	assert.Equal(t, a, b)
	assert.Equal(t, []float64{0, 10}, evA.Inputs)
}

func TestEngine_FallbackOnEmptySet(t *testing.T) {
	e := newTestEngine(t)

	// 5 is outside both supports of each input
	score, ev := e.Evaluate(5, 5)
	assert.Equal(t, 0, ev.Activated)
	assert.Equal(t, FallbackCentroid, score)
	assert.Equal(t, FallbackCentroid, e.Defuzzify(make([]float64, len(e.Grid()))))
}

func TestEngine_Membership(t *testing.T) {
	e := newTestEngine(t)

	ev := e.Infer(3.5, 9)
	assert.Equal(t, Membership{"low": 0.5, "high": 0}, e.Membership(ev, 0))
	assert.Equal(t, Membership{"low": 0, "high": 1}, e.Membership(ev, 1))
}

func TestEngine_WrongArity(t *testing.T) {
	e := newTestEngine(t)
	assert.Panics(t, func() { e.Infer(1) })
}

func TestNewEngine_NilRuleBase(t *testing.T) {
	_, err := NewEngine(nil)
	assert.True(t, shared.IsInvalidModel(err))
}
