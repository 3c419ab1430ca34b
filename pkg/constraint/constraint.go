// Package constraint provides the propagators of the solver.
//
// Every constraint compares one linear expression with zero (==, <=, !=) or
// asks a list of variables to take pairwise distinct values. Restrict narrows
// the domains in a store to bound consistency and reports the outcome:
//
//   - domain.NoChange: nothing could be pruned
//   - domain.Change: at least one domain was narrowed
//   - domain.Complete: the constraint holds for every remaining assignment
//   - domain.Infeasible: no remaining assignment satisfies it
//
// Restrict runs to its own fixpoint, so a second call without any external
// change never writes to the store.
//
// Constraints are immutable values and may be shared between problem clones.
package constraint

import (
	"fmt"

	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
)

// Kind identifies the comparator of a constraint.
type Kind int

const (
	// KindEqual is expr == 0.
	KindEqual Kind = iota
	// KindLessEqual is expr <= 0.
	KindLessEqual
	// KindNotEqual is expr != 0.
	KindNotEqual
	// KindDistinct is all-different over a variable list.
	KindDistinct
)

func (k Kind) String() string {
	switch k {
	case KindEqual:
		return "=="
	case KindLessEqual:
		return "<="
	case KindNotEqual:
		return "!="
	case KindDistinct:
		return "distinct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Constraint is a propagator over variables of a domain.Store.
type Constraint interface {
	Kind() Kind
	// Vars returns the referenced variables in ascending order.
	Vars() []domain.Var
	// Restrict prunes s and reports what happened.
	Restrict(s *domain.Store) domain.Result
	// Satisfied checks a full assignment.
	Satisfied(value func(domain.Var) int) bool
	String() string
}

// Linear is implemented by the constraints that compare an expression with 0.
type Linear interface {
	Constraint
	Expr() expr.Expr
}

// InternalError reports a bound derived by slack distribution that falls
// outside the domain it was derived from. It signals a bookkeeping bug, never
// an infeasible problem, and is raised with panic.
type InternalError struct {
	Constraint string
	Var        domain.Var
	Bound      int
	Domain     domain.Domain
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("constraint: derived bound %d for %s outside %s in %s", e.Bound, e.Var, e.Domain, e.Constraint)
}

// New returns the linear constraint `e <kind> 0`. It panics on KindDistinct or
// an unknown kind.
func New(kind Kind, e expr.Expr) Linear {
	switch kind {
	case KindEqual:
		return Equal(e)
	case KindLessEqual:
		return LessEqual(e)
	case KindNotEqual:
		return NotEqual(e)
	default:
		panic(fmt.Sprintf("constraint: unsupported linear kind %s", kind))
	}
}

// Equals returns a == b.
func Equals(a, b expr.Expr) Linear { return Equal(expr.Difference(a, b)) }

// LessOrEqual returns a <= b.
func LessOrEqual(a, b expr.Expr) Linear { return LessEqual(expr.Difference(a, b)) }

// GreaterOrEqual returns a >= b.
func GreaterOrEqual(a, b expr.Expr) Linear { return LessEqual(expr.Difference(b, a)) }

// LessThan returns a < b, that is a - b + 1 <= 0.
func LessThan(a, b expr.Expr) Linear {
	return LessEqual(expr.AddConst(expr.Difference(a, b), 1))
}

// GreaterThan returns a > b.
func GreaterThan(a, b expr.Expr) Linear { return LessThan(b, a) }

// NotEquals returns a != b.
func NotEquals(a, b expr.Expr) Linear { return NotEqual(expr.Difference(a, b)) }

// Rewrite returns a linear constraint of the same kind as c over e.
func Rewrite(c Linear, e expr.Expr) Linear { return New(c.Kind(), e) }

func linearString(e expr.Expr, k Kind) string {
	return fmt.Sprintf("%s %s 0", e, k)
}

func satisfiedBy(e expr.Expr, k Kind, value func(domain.Var) int) bool {
	v := e.Eval(value)
	switch k {
	case KindEqual:
		return v == 0
	case KindLessEqual:
		return v <= 0
	case KindNotEqual:
		return v != 0
	}
	return false
}
