package fuzzy

import (
	"github.com/stresssense/stress-sense/internal/domain/shared"
)

// Term is a named linguistic value of a variable.
type Term struct {
	Name string
	MF   Trapezoid
}

// Membership maps term names to degrees in [0, 1].
type Membership map[string]float64

// Variable is a named dimension: a universe plus an ordered set of terms.
type Variable struct {
	name     string
	universe Universe
	terms    []Term
	index    map[string]int
}

// NewVariable validates and builds a variable. Term order is preserved and
// term names must be unique and non-empty.
func NewVariable(name string, universe Universe, terms ...Term) (*Variable, error) {
	if name == "" {
		return nil, shared.ModelError("fuzzy", "NewVariable", "variable name cannot be empty")
	}
	if len(terms) == 0 {
		return nil, shared.ModelError("fuzzy", "NewVariable", "variable %q has no terms", name)
	}

	v := &Variable{
		name:     name,
		universe: universe,
		terms:    make([]Term, len(terms)),
		index:    make(map[string]int, len(terms)),
	}
	for i, t := range terms {
		if t.Name == "" {
			return nil, shared.ModelError("fuzzy", "NewVariable", "variable %q has a term without a name", name)
		}
		if _, dup := v.index[t.Name]; dup {
			return nil, shared.ModelError("fuzzy", "NewVariable", "variable %q defines term %q twice", name, t.Name)
		}
		if _, err := NewTrapezoid(t.MF.A, t.MF.B, t.MF.C, t.MF.D); err != nil {
			return nil, shared.WrapError("fuzzy", "NewVariable", shared.ErrInvalidModel,
				"variable "+name+" term "+t.Name, err)
		}
		v.terms[i] = t
		v.index[t.Name] = i
	}
	return v, nil
}

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Universe returns the variable's universe of discourse.
func (v *Variable) Universe() Universe { return v.universe }

// Terms returns a copy of the terms in definition order.
func (v *Variable) Terms() []Term {
	out := make([]Term, len(v.terms))
	copy(out, v.terms)
	return out
}

// TermNames returns the term names in definition order.
func (v *Variable) TermNames() []string {
	names := make([]string, len(v.terms))
	for i, t := range v.terms {
		names[i] = t.Name
	}
	return names
}

// HasTerm reports whether the variable defines the named term.
func (v *Variable) HasTerm(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Term looks up a term by name.
func (v *Variable) Term(name string) (Term, bool) {
	i, ok := v.index[name]
	if !ok {
		return Term{}, false
	}
	return v.terms[i], true
}

// Clamp pins x into the variable's universe.
func (v *Variable) Clamp(x float64) float64 {
	return v.universe.Clamp(x)
}

// Fuzzify clamps x to the universe and evaluates every term at the clamped
// value. It returns the clamped value together with a fresh Membership.
func (v *Variable) Fuzzify(x float64) (float64, Membership) {
	x = v.universe.Clamp(x)
	m := make(Membership, len(v.terms))
	for _, t := range v.terms {
		m[t.Name] = t.MF.Degree(x)
	}
	return x, m
}

// degrees is the slice form of Fuzzify used by the engine, indexed like terms.
func (v *Variable) degrees(x float64) []float64 {
	out := make([]float64, len(v.terms))
	for i, t := range v.terms {
		out[i] = t.MF.Degree(x)
	}
	return out
}
