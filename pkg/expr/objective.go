package expr

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gitrdm/intsolve/pkg/domain"
)

// ObjectiveTerm is one weighted variable of an Objective.
type ObjectiveTerm struct {
	Var   domain.Var
	Coeff float64
}

// Objective is a linear function with float64 weights over integer
// variables. Unlike Expr it is built incrementally; the zero value is the
// constant 0.
type Objective struct {
	constant float64
	coeffs   map[domain.Var]float64
}

// NewObjective returns an empty objective.
func NewObjective() *Objective {
	return &Objective{coeffs: make(map[domain.Var]float64)}
}

// AddTerm adds c·v and returns o.
func (o *Objective) AddTerm(v domain.Var, c float64) *Objective {
	if v.IsZero() || c == 0 {
		return o
	}
	if o.coeffs == nil {
		o.coeffs = make(map[domain.Var]float64)
	}
	n := o.coeffs[v] + c
	if n == 0 {
		delete(o.coeffs, v)
	} else {
		o.coeffs[v] = n
	}
	return o
}

// AddExpr adds scale·e and returns o.
func (o *Objective) AddExpr(e Expr, scale float64) *Objective {
	o.constant += scale * float64(e.Constant())
	for _, t := range e.Terms() {
		o.AddTerm(t.Var, scale*float64(t.Coeff))
	}
	return o
}

// AddConst adds c and returns o.
func (o *Objective) AddConst(c float64) *Objective {
	o.constant += c
	return o
}

// Constant returns the constant part.
func (o *Objective) Constant() float64 { return o.constant }

// Coefficient returns the weight of v.
func (o *Objective) Coefficient(v domain.Var) float64 { return o.coeffs[v] }

// IsZero reports whether the objective has no variable terms.
func (o *Objective) IsZero() bool { return len(o.coeffs) == 0 }

// Terms returns the weighted variables ordered by index.
func (o *Objective) Terms() []ObjectiveTerm {
	vars := slices.Sorted(maps.Keys(o.coeffs))
	out := make([]ObjectiveTerm, len(vars))
	for i, v := range vars {
		out[i] = ObjectiveTerm{v, o.coeffs[v]}
	}
	return out
}

// LowerBound evaluates the objective with every variable at its most
// favorable bound. No assignment consistent with s can do better.
func (o *Objective) LowerBound(s *domain.Store) float64 {
	total := o.constant
	for _, t := range o.Terms() {
		d := s.Get(t.Var)
		if t.Coeff > 0 {
			total += t.Coeff * float64(d.Min())
		} else {
			total += t.Coeff * float64(d.Max())
		}
	}
	return total
}

// Value evaluates the objective under a full assignment.
func (o *Objective) Value(value func(domain.Var) int) float64 {
	total := o.constant
	for _, t := range o.Terms() {
		total += t.Coeff * float64(value(t.Var))
	}
	return total
}

// Clone returns an independent copy.
func (o *Objective) Clone() *Objective {
	return &Objective{constant: o.constant, coeffs: maps.Clone(o.coeffs)}
}

func (o *Objective) String() string {
	var sb strings.Builder
	for i, t := range o.Terms() {
		if i > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g*%s", t.Coeff, t.Var)
	}
	if o.constant != 0 || sb.Len() == 0 {
		if sb.Len() > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g", o.constant)
	}
	return sb.String()
}
