package expr

import (
	"fmt"

	"github.com/gitrdm/intsolve/pkg/domain"
)

// Constant returns the expression k.
func Constant(k int) Expr { return constExpr{k} }

// FromVar returns the expression 1·v.
func FromVar(v domain.Var) Expr { return Scaled(v, 1) }

// Scaled returns the expression c·v.
func Scaled(v domain.Var, c int) Expr {
	if c == 0 || v.IsZero() {
		return constExpr{}
	}
	return termExpr{0, Term{v, c}}
}

// New builds k + Σ terms, merging repeated variables.
func New(k int, terms ...Term) Expr {
	ts := make([]Term, len(terms))
	copy(ts, terms)
	return normalize(k, ts)
}

// Sum returns Σ vs.
func Sum(vs ...domain.Var) Expr {
	ts := make([]Term, len(vs))
	for i, v := range vs {
		ts[i] = Term{v, 1}
	}
	return normalize(0, ts)
}

// WeightedSum returns Σ coeffs[i]·vs[i]. It panics on a length mismatch.
func WeightedSum(vs []domain.Var, coeffs []int) Expr {
	if len(vs) != len(coeffs) {
		panic(fmt.Sprintf("expr: %d variables but %d coefficients", len(vs), len(coeffs)))
	}
	ts := make([]Term, len(vs))
	for i, v := range vs {
		ts[i] = Term{v, coeffs[i]}
	}
	return normalize(0, ts)
}

// Add returns a + scale·b.
func Add(a, b Expr, scale int) Expr {
	if scale == 0 || (b.Len() == 0 && b.Constant() == 0) {
		return a
	}
	k := a.Constant() + scale*b.Constant()
	at, bt := a.Terms(), b.Terms()
	out := make([]Term, 0, len(at)+len(bt))
	i, j := 0, 0
	for i < len(at) || j < len(bt) {
		switch {
		case j == len(bt) || (i < len(at) && at[i].Var < bt[j].Var):
			out = append(out, at[i])
			i++
		case i == len(at) || bt[j].Var < at[i].Var:
			out = append(out, Term{bt[j].Var, scale * bt[j].Coeff})
			j++
		default:
			if c := at[i].Coeff + scale*bt[j].Coeff; c != 0 {
				out = append(out, Term{at[i].Var, c})
			}
			i++
			j++
		}
	}
	return variant(k, out)
}

// Plus returns a + b.
func Plus(a, b Expr) Expr { return Add(a, b, 1) }

// Difference returns a - b.
func Difference(a, b Expr) Expr { return Add(a, b, -1) }

// AddConst returns a + c.
func AddConst(a Expr, c int) Expr {
	if c == 0 {
		return a
	}
	return variant(a.Constant()+c, a.Terms())
}

// AddVar returns a + c·v.
func AddVar(a Expr, v domain.Var, c int) Expr {
	return Add(a, Scaled(v, c), 1)
}

// Scale returns s·a.
func Scale(a Expr, s int) Expr {
	switch s {
	case 0:
		return constExpr{}
	case 1:
		return a
	}
	src := a.Terms()
	out := make([]Term, len(src))
	for i, t := range src {
		out[i] = Term{t.Var, s * t.Coeff}
	}
	return variant(s*a.Constant(), out)
}

// Negate returns -a.
func Negate(a Expr) Expr { return Scale(a, -1) }

// Equal reports whether a and b denote the same expression.
func Equal(a, b Expr) bool {
	if a.Constant() != b.Constant() || a.Len() != b.Len() {
		return false
	}
	at, bt := a.Terms(), b.Terms()
	for i := range at {
		if at[i] != bt[i] {
			return false
		}
	}
	return true
}

// GCD returns the greatest common divisor of the coefficients, always
// non-negative. It is 0 for a constant expression.
func GCD(a Expr) int {
	g := 0
	for _, t := range a.Terms() {
		g = gcd(g, t.Coeff)
		if g == 1 {
			break
		}
	}
	return g
}

// DivideExact returns a/g. It panics if g does not divide every coefficient
// and the constant.
func DivideExact(a Expr, g int) Expr {
	if g == 0 {
		panic("expr: division by zero")
	}
	if g == 1 {
		return a
	}
	if a.Constant()%g != 0 {
		panic(fmt.Sprintf("expr: %d does not divide constant of %s", g, a))
	}
	src := a.Terms()
	out := make([]Term, len(src))
	for i, t := range src {
		if t.Coeff%g != 0 {
			panic(fmt.Sprintf("expr: %d does not divide coefficient of %s in %s", g, t.Var, a))
		}
		out[i] = Term{t.Var, t.Coeff / g}
	}
	return variant(a.Constant()/g, out)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
