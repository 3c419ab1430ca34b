// Package expr implements exact integer linear expressions of the form
//
//	constant + Σ coefficient_i · x_i
//
// and the floating point objectives built over the same variables.
//
// Expressions are immutable. They are a closed sum type with four variants
// (no term, one term, two terms, many terms); every constructor normalizes its
// result, so two expressions denoting the same function always have the same
// variant and the same sorted terms. Normalization merges like terms, drops
// zero coefficients and drops the constant-zero sentinel domain.Zero.
package expr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gitrdm/intsolve/pkg/domain"
)

// Term is one coefficient·variable product.
type Term struct {
	Var   domain.Var
	Coeff int
}

// Expr is an integer linear expression.
type Expr interface {
	// Constant returns the constant part.
	Constant() int
	// Terms returns the non-zero terms ordered by variable index. The slice
	// must not be modified.
	Terms() []Term
	// Coefficient returns the coefficient of v, 0 when v does not occur.
	Coefficient(v domain.Var) int
	// Vars returns the variables with a non-zero coefficient, ascending.
	Vars() []domain.Var
	// Len returns the number of terms.
	Len() int
	// Bounds returns the smallest and largest value the expression can take
	// given the current domains in s.
	Bounds(s *domain.Store) (lo, hi int)
	// Min returns the lower end of Bounds.
	Min(s *domain.Store) int
	// Max returns the upper end of Bounds.
	Max(s *domain.Store) int
	// Eval evaluates the expression under a full assignment.
	Eval(value func(domain.Var) int) int
	String() string

	sealed()
}

type constExpr struct {
	k int
}

type termExpr struct {
	k int
	t Term
}

type pairExpr struct {
	k    int
	a, b Term // a.Var < b.Var
}

// sumExpr is the sparse form used from three terms on.
type sumExpr struct {
	k     int
	terms []Term
}

// termBounds applies the sign flip rule to one term.
func termBounds(t Term, s *domain.Store) (lo, hi int) {
	d := s.Get(t.Var)
	if t.Coeff > 0 {
		return t.Coeff * d.Min(), t.Coeff * d.Max()
	}
	return t.Coeff * d.Max(), t.Coeff * d.Min()
}

func (e constExpr) sealed() {}
func (e termExpr) sealed()  {}
func (e pairExpr) sealed()  {}
func (e sumExpr) sealed()   {}

func (e constExpr) Constant() int { return e.k }
func (e termExpr) Constant() int  { return e.k }
func (e pairExpr) Constant() int  { return e.k }
func (e sumExpr) Constant() int   { return e.k }

func (e constExpr) Terms() []Term { return nil }
func (e termExpr) Terms() []Term  { return []Term{e.t} }
func (e pairExpr) Terms() []Term  { return []Term{e.a, e.b} }
func (e sumExpr) Terms() []Term   { return e.terms }

func (e constExpr) Len() int { return 0 }
func (e termExpr) Len() int  { return 1 }
func (e pairExpr) Len() int  { return 2 }
func (e sumExpr) Len() int   { return len(e.terms) }

func (e constExpr) Coefficient(domain.Var) int { return 0 }

func (e termExpr) Coefficient(v domain.Var) int {
	if e.t.Var == v {
		return e.t.Coeff
	}
	return 0
}

func (e pairExpr) Coefficient(v domain.Var) int {
	switch v {
	case e.a.Var:
		return e.a.Coeff
	case e.b.Var:
		return e.b.Coeff
	}
	return 0
}

func (e sumExpr) Coefficient(v domain.Var) int {
	i, ok := slices.BinarySearchFunc(e.terms, v, func(t Term, v domain.Var) int { return int(t.Var) - int(v) })
	if !ok {
		return 0
	}
	return e.terms[i].Coeff
}

func (e constExpr) Vars() []domain.Var { return nil }
func (e termExpr) Vars() []domain.Var  { return []domain.Var{e.t.Var} }
func (e pairExpr) Vars() []domain.Var  { return []domain.Var{e.a.Var, e.b.Var} }

func (e sumExpr) Vars() []domain.Var {
	out := make([]domain.Var, len(e.terms))
	for i, t := range e.terms {
		out[i] = t.Var
	}
	return out
}

func (e constExpr) Bounds(*domain.Store) (int, int) { return e.k, e.k }

func (e termExpr) Bounds(s *domain.Store) (int, int) {
	lo, hi := termBounds(e.t, s)
	return e.k + lo, e.k + hi
}

func (e pairExpr) Bounds(s *domain.Store) (int, int) {
	alo, ahi := termBounds(e.a, s)
	blo, bhi := termBounds(e.b, s)
	return e.k + alo + blo, e.k + ahi + bhi
}

func (e sumExpr) Bounds(s *domain.Store) (int, int) {
	lo, hi := e.k, e.k
	for _, t := range e.terms {
		tlo, thi := termBounds(t, s)
		lo += tlo
		hi += thi
	}
	return lo, hi
}

func (e constExpr) Min(s *domain.Store) int { lo, _ := e.Bounds(s); return lo }
func (e termExpr) Min(s *domain.Store) int  { lo, _ := e.Bounds(s); return lo }
func (e pairExpr) Min(s *domain.Store) int  { lo, _ := e.Bounds(s); return lo }
func (e sumExpr) Min(s *domain.Store) int   { lo, _ := e.Bounds(s); return lo }

func (e constExpr) Max(s *domain.Store) int { _, hi := e.Bounds(s); return hi }
func (e termExpr) Max(s *domain.Store) int  { _, hi := e.Bounds(s); return hi }
func (e pairExpr) Max(s *domain.Store) int  { _, hi := e.Bounds(s); return hi }
func (e sumExpr) Max(s *domain.Store) int   { _, hi := e.Bounds(s); return hi }

func (e constExpr) Eval(func(domain.Var) int) int { return e.k }

func (e termExpr) Eval(value func(domain.Var) int) int {
	return e.k + e.t.Coeff*value(e.t.Var)
}

func (e pairExpr) Eval(value func(domain.Var) int) int {
	return e.k + e.a.Coeff*value(e.a.Var) + e.b.Coeff*value(e.b.Var)
}

func (e sumExpr) Eval(value func(domain.Var) int) int {
	total := e.k
	for _, t := range e.terms {
		total += t.Coeff * value(t.Var)
	}
	return total
}

func (e constExpr) String() string { return format(e.k, nil) }
func (e termExpr) String() string  { return format(e.k, []Term{e.t}) }
func (e pairExpr) String() string  { return format(e.k, []Term{e.a, e.b}) }
func (e sumExpr) String() string   { return format(e.k, e.terms) }

func format(k int, terms []Term) string {
	if len(terms) == 0 {
		return fmt.Sprintf("%d", k)
	}
	var sb strings.Builder
	for i, t := range terms {
		c := t.Coeff
		switch {
		case i == 0 && c < 0:
			sb.WriteString("-")
			c = -c
		case i > 0 && c < 0:
			sb.WriteString(" - ")
			c = -c
		case i > 0:
			sb.WriteString(" + ")
		}
		if c != 1 {
			fmt.Fprintf(&sb, "%d*", c)
		}
		sb.WriteString(t.Var.String())
	}
	switch {
	case k > 0:
		fmt.Fprintf(&sb, " + %d", k)
	case k < 0:
		fmt.Fprintf(&sb, " - %d", -k)
	}
	return sb.String()
}

// variant picks the representation for already normalized terms.
func variant(k int, terms []Term) Expr {
	switch len(terms) {
	case 0:
		return constExpr{k}
	case 1:
		return termExpr{k, terms[0]}
	case 2:
		return pairExpr{k, terms[0], terms[1]}
	default:
		return sumExpr{k, terms}
	}
}

// normalize sorts terms by variable, merges duplicates and drops zero
// coefficients and the sentinel. It may reorder ts in place.
func normalize(k int, ts []Term) Expr {
	slices.SortStableFunc(ts, func(a, b Term) int { return int(a.Var) - int(b.Var) })
	out := make([]Term, 0, len(ts))
	for _, t := range ts {
		if t.Var.IsZero() || t.Coeff == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Var == t.Var {
			out[n-1].Coeff += t.Coeff
			if out[n-1].Coeff == 0 {
				out = out[:n-1]
			}
			continue
		}
		out = append(out, t)
	}
	return variant(k, out)
}
