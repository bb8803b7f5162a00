package fuzzy

import (
	"fmt"
	"strings"

	"github.com/stresssense/stress-sense/internal/domain/shared"
)

// Clause is one antecedent condition: "Variable is Term".
type Clause struct {
	Variable string
	Term     string
}

// Rule is a conjunction of clauses implying one output term.
type Rule struct {
	If   []Clause
	Then string
}

// String renders the rule as "IF a is x AND b is y THEN z".
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString("IF ")
	for i, c := range r.If {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(c.Variable)
		b.WriteString(" is ")
		b.WriteString(c.Term)
	}
	b.WriteString(" THEN ")
	b.WriteString(r.Then)
	return b.String()
}

// compiledRule holds term indexes aligned with RuleBase.inputs.
type compiledRule struct {
	terms      []int
	consequent int
}

// RuleBase is a validated, complete rule table over a fixed set of inputs.
// Every combination of input terms appears in exactly one rule.
type RuleBase struct {
	inputs   []*Variable
	output   *Variable
	rules    []Rule
	compiled []compiledRule
}

// NewRuleBase validates the rule table against the variables and checks
// completeness. Any mismatch is an ErrInvalidModel error.
func NewRuleBase(inputs []*Variable, output *Variable, rules []Rule) (*RuleBase, error) {
	const op = "NewRuleBase"

	if len(inputs) == 0 {
		return nil, shared.ModelError("fuzzy", op, "at least one input variable is required")
	}
	if output == nil {
		return nil, shared.ModelError("fuzzy", op, "output variable is required")
	}

	position := make(map[string]int, len(inputs))
	expected := 1
	for i, in := range inputs {
		if in == nil {
			return nil, shared.ModelError("fuzzy", op, "input variable %d is nil", i)
		}
		if _, dup := position[in.Name()]; dup {
			return nil, shared.ModelError("fuzzy", op, "input variable %q declared twice", in.Name())
		}
		if in.Name() == output.Name() {
			return nil, shared.ModelError("fuzzy", op, "output %q shadows an input variable", output.Name())
		}
		position[in.Name()] = i
		expected *= len(in.terms)
	}

	rb := &RuleBase{
		inputs:   append([]*Variable(nil), inputs...),
		output:   output,
		rules:    make([]Rule, 0, len(rules)),
		compiled: make([]compiledRule, 0, len(rules)),
	}
	seen := make(map[string]int, len(rules))

	for n, r := range rules {
		if len(r.If) != len(inputs) {
			return nil, shared.ModelError("fuzzy", op,
				"rule %d has %d clauses, want one per input (%d)", n+1, len(r.If), len(inputs))
		}

		cr := compiledRule{terms: make([]int, len(inputs))}
		for i := range cr.terms {
			cr.terms[i] = -1
		}
		for _, c := range r.If {
			p, ok := position[c.Variable]
			if !ok {
				return nil, shared.ModelError("fuzzy", op, "rule %d references unknown variable %q", n+1, c.Variable)
			}
			if cr.terms[p] != -1 {
				return nil, shared.ModelError("fuzzy", op, "rule %d constrains %q twice", n+1, c.Variable)
			}
			t, ok := inputs[p].index[c.Term]
			if !ok {
				return nil, shared.ModelError("fuzzy", op,
					"rule %d references unknown term %q of %q", n+1, c.Term, c.Variable)
			}
			cr.terms[p] = t
		}

		out, ok := output.index[r.Then]
		if !ok {
			return nil, shared.ModelError("fuzzy", op,
				"rule %d implies unknown term %q of %q", n+1, r.Then, output.Name())
		}
		cr.consequent = out

		key := comboKey(cr.terms)
		if prev, dup := seen[key]; dup {
			return nil, shared.ModelError("fuzzy", op, "rules %d and %d share the same antecedent", prev, n+1)
		}
		seen[key] = n + 1

		rb.rules = append(rb.rules, Rule{If: append([]Clause(nil), r.If...), Then: r.Then})
		rb.compiled = append(rb.compiled, cr)
	}

	if len(rb.rules) != expected {
		return nil, shared.ModelError("fuzzy", op,
			"rule table covers %d of %d term combinations", len(rb.rules), expected)
	}
	return rb, nil
}

// Inputs returns the input variables in evaluation order.
func (rb *RuleBase) Inputs() []*Variable {
	return append([]*Variable(nil), rb.inputs...)
}

// Output returns the output variable.
func (rb *RuleBase) Output() *Variable { return rb.output }

// Len returns the number of rules.
func (rb *RuleBase) Len() int { return len(rb.rules) }

// Rules returns a deep copy of the rule table.
func (rb *RuleBase) Rules() []Rule {
	out := make([]Rule, len(rb.rules))
	for i, r := range rb.rules {
		out[i] = Rule{If: append([]Clause(nil), r.If...), Then: r.Then}
	}
	return out
}

func comboKey(terms []int) string {
	return fmt.Sprint(terms)
}
