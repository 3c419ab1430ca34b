// Package modelfile reads problems written in YAML:
//
//	name: knapsack
//	variables:
//	  - {name: x, min: 0, max: 10}
//	  - {name: b, binary: true, count: 4}   # b[0]..b[3]
//	  - {name: d, values: [1, 3, 5]}
//	constraints:
//	  - {terms: [{var: x, coef: 1}, {var: "b[0]", coef: -2}], op: "<=", rhs: 3}
//	  - {distinct: [x, "b[1]"]}
//	objective:
//	  sense: minimize
//	  terms: [{var: x, coef: -1.5}]
package modelfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
	"github.com/gitrdm/intsolve/pkg/solver"
)

// File is the decoded YAML document.
type File struct {
	Name        string       `yaml:"name" validate:"required"`
	Variables   []Variable   `yaml:"variables" validate:"required,min=1,dive"`
	Constraints []Constraint `yaml:"constraints" validate:"dive"`
	Objective   *Objective   `yaml:"objective"`
}

// Variable declares one variable, or Count indexed ones named name[i].
type Variable struct {
	Name   string `yaml:"name" validate:"required"`
	Min    int    `yaml:"min"`
	Max    int    `yaml:"max" validate:"gtefield=Min"`
	Binary bool   `yaml:"binary"`
	Values []int  `yaml:"values"`
	Count  int    `yaml:"count" validate:"gte=0"`
}

// Term is coef·var in a linear constraint.
type Term struct {
	Var  string `yaml:"var" validate:"required"`
	Coef int    `yaml:"coef"`
}

// Constraint is either a linear comparison Σ terms op rhs or an
// all-different over Distinct, optionally ignoring the value Except.
type Constraint struct {
	Terms    []Term   `yaml:"terms" validate:"dive"`
	Op       string   `yaml:"op"`
	RHS      int      `yaml:"rhs"`
	Distinct []string `yaml:"distinct"`
	Except   *int     `yaml:"except"`
}

// ObjectiveTerm is coef·var in the objective.
type ObjectiveTerm struct {
	Var  string  `yaml:"var" validate:"required"`
	Coef float64 `yaml:"coef"`
}

// Objective is Σ terms + constant, minimized unless Sense is maximize.
type Objective struct {
	Sense    string          `yaml:"sense" validate:"omitempty,oneof=minimize maximize"`
	Terms    []ObjectiveTerm `yaml:"terms" validate:"dive"`
	Constant float64         `yaml:"constant"`
}

var validate = validator.New()

// Parse decodes and validates a model document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("modelfile: %s fails %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	return &f, nil
}

// Load reads and parses path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	return Parse(data)
}

// Model is a built problem together with its variable names.
type Model struct {
	Name    string
	Problem *solver.Problem
	// Names lists the variables in declaration order.
	Names []string
	vars  map[string]domain.Var
	// Maximize is true when the objective was negated for minimization.
	Maximize bool
}

// Var returns the variable called name.
func (m *Model) Var(name string) (domain.Var, bool) {
	v, ok := m.vars[name]
	return v, ok
}

// Values maps every variable name to its value in values, an assignment
// indexed by variable as returned by solver.Solution.
func (m *Model) Values(values []int) map[string]int {
	out := make(map[string]int, len(m.Names))
	for _, name := range m.Names {
		out[name] = values[m.vars[name]]
	}
	return out
}

// Objective converts a minimized objective value back to the file's sense.
func (m *Model) Objective(minimized float64) float64 {
	if m.Maximize {
		return -minimized
	}
	return minimized
}

// Build creates the problem described by f.
func (f *File) Build(opts ...solver.Option) (*Model, error) {
	p := solver.New(opts...)
	m := &Model{Name: f.Name, Problem: p, vars: make(map[string]domain.Var)}

	declare := func(name string, d domain.Domain) error {
		if _, dup := m.vars[name]; dup {
			return fmt.Errorf("modelfile: variable %q declared twice", name)
		}
		m.vars[name] = p.AddVar(d)
		m.Names = append(m.Names, name)
		return nil
	}
	for _, v := range f.Variables {
		d := domain.New(v.Min, v.Max)
		switch {
		case v.Binary:
			d = domain.Binary()
		case len(v.Values) > 0:
			d = domain.FromValues(v.Values...)
		}
		if v.Count == 0 {
			if err := declare(v.Name, d); err != nil {
				return nil, err
			}
			continue
		}
		for i := 0; i < v.Count; i++ {
			if err := declare(fmt.Sprintf("%s[%d]", v.Name, i), d); err != nil {
				return nil, err
			}
		}
	}

	lookup := func(name string) (domain.Var, error) {
		v, ok := m.vars[name]
		if !ok {
			return domain.Zero, fmt.Errorf("modelfile: unknown variable %q", name)
		}
		return v, nil
	}
	for i, c := range f.Constraints {
		built, err := c.build(lookup)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		p.Add(built)
	}

	if o := f.Objective; o != nil {
		m.Maximize = o.Sense == "maximize"
		sign := 1.0
		if m.Maximize {
			sign = -1
		}
		obj := expr.NewObjective().AddConst(sign * o.Constant)
		for _, t := range o.Terms {
			v, err := lookup(t.Var)
			if err != nil {
				return nil, fmt.Errorf("objective: %w", err)
			}
			obj.AddTerm(v, sign*t.Coef)
		}
		p.SetObjective(obj)
	}
	return m, nil
}

func (c Constraint) build(lookup func(string) (domain.Var, error)) (constraint.Constraint, error) {
	if len(c.Distinct) > 0 {
		if len(c.Terms) > 0 {
			return nil, errors.New("modelfile: distinct and terms are exclusive")
		}
		vars := make([]domain.Var, len(c.Distinct))
		seen := make(map[string]bool, len(c.Distinct))
		for i, name := range c.Distinct {
			if seen[name] {
				return nil, fmt.Errorf("modelfile: %q listed twice in distinct", name)
			}
			seen[name] = true
			v, err := lookup(name)
			if err != nil {
				return nil, err
			}
			vars[i] = v
		}
		if c.Except != nil {
			return constraint.AllDifferentExcept(*c.Except, vars...), nil
		}
		return constraint.AllDifferent(vars...), nil
	}

	terms := make([]expr.Term, len(c.Terms))
	for i, t := range c.Terms {
		v, err := lookup(t.Var)
		if err != nil {
			return nil, err
		}
		terms[i] = expr.Term{Var: v, Coeff: t.Coef}
	}
	lhs, rhs := expr.New(0, terms...), expr.Constant(c.RHS)
	switch c.Op {
	case "==", "=":
		return constraint.Equals(lhs, rhs), nil
	case "<=":
		return constraint.LessOrEqual(lhs, rhs), nil
	case ">=":
		return constraint.GreaterOrEqual(lhs, rhs), nil
	case "<":
		return constraint.LessThan(lhs, rhs), nil
	case ">":
		return constraint.GreaterThan(lhs, rhs), nil
	case "!=":
		return constraint.NotEquals(lhs, rhs), nil
	}
	return nil, fmt.Errorf("modelfile: unknown operator %q", c.Op)
}
