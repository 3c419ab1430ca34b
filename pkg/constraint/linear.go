package constraint

import (
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
)

// fixpoint repeats one propagation pass until it stops writing.
func fixpoint(s *domain.Store, pass func(*domain.Store) domain.Result) domain.Result {
	result := domain.NoChange
	for {
		switch r := pass(s); r {
		case domain.Change:
			result = domain.Change
		case domain.NoChange:
			return result
		default:
			return r
		}
	}
}

// Equality is the constraint expr == 0.
//
// Propagation distributes slack: for each term c·x the remaining terms span
// [lo-tlo, hi-thi], so c·x must lie in [thi-hi, tlo-lo] for the total to reach
// zero. Each of the two derived bounds on its own always fits the domain it
// was derived from; only their combination can be empty, when no multiple of
// c falls in the window.
type Equality struct {
	e   expr.Expr
	gcd int
}

// Equal returns the constraint e == 0.
func Equal(e expr.Expr) *Equality {
	return &Equality{e: e, gcd: expr.GCD(e)}
}

func (c *Equality) Kind() Kind         { return KindEqual }
func (c *Equality) Expr() expr.Expr    { return c.e }
func (c *Equality) Vars() []domain.Var { return c.e.Vars() }
func (c *Equality) String() string     { return linearString(c.e, KindEqual) }

func (c *Equality) Satisfied(value func(domain.Var) int) bool {
	return satisfiedBy(c.e, KindEqual, value)
}

func (c *Equality) Restrict(s *domain.Store) domain.Result {
	if c.gcd > 1 && c.e.Constant()%c.gcd != 0 {
		return domain.Infeasible
	}
	return fixpoint(s, c.pass)
}

func (c *Equality) pass(s *domain.Store) domain.Result {
	lo, hi := c.e.Bounds(s)
	if lo > 0 || hi < 0 {
		return domain.Infeasible
	}
	if lo == hi {
		return domain.Complete
	}
	result := domain.NoChange
	for _, t := range c.e.Terms() {
		d := s.Get(t.Var)
		if d.IsConstant() {
			continue
		}
		tlo, thi := termRange(t.Coeff, d.Min(), d.Max())
		a, b := thi-hi, tlo-lo
		var newMin, newMax int
		if t.Coeff > 0 {
			newMin, newMax = ceilDiv(a, t.Coeff), floorDiv(b, t.Coeff)
		} else {
			newMin, newMax = ceilDiv(b, t.Coeff), floorDiv(a, t.Coeff)
		}
		if newMin > d.Max() {
			c.fail(t.Var, newMin, d)
		}
		if newMax < d.Min() {
			c.fail(t.Var, newMax, d)
		}
		result = result.Merge(s.RestrictToMin(t.Var, newMin))
		r := s.RestrictToMax(t.Var, newMax)
		if r == domain.Infeasible {
			// Both bounds fit the old domain but not each other.
			return domain.Infeasible
		}
		result = result.Merge(r)
	}
	return result
}

func (c *Equality) fail(v domain.Var, bound int, d domain.Domain) {
	panic(&InternalError{Constraint: c.String(), Var: v, Bound: bound, Domain: d})
}

// Inequality is the constraint expr <= 0. Only the upper contribution of each
// term is limited: c·x <= tlo - lo.
type Inequality struct {
	e expr.Expr
}

// LessEqual returns the constraint e <= 0.
func LessEqual(e expr.Expr) *Inequality { return &Inequality{e: e} }

func (c *Inequality) Kind() Kind         { return KindLessEqual }
func (c *Inequality) Expr() expr.Expr    { return c.e }
func (c *Inequality) Vars() []domain.Var { return c.e.Vars() }
func (c *Inequality) String() string     { return linearString(c.e, KindLessEqual) }

func (c *Inequality) Satisfied(value func(domain.Var) int) bool {
	return satisfiedBy(c.e, KindLessEqual, value)
}

func (c *Inequality) Restrict(s *domain.Store) domain.Result {
	return fixpoint(s, c.pass)
}

func (c *Inequality) pass(s *domain.Store) domain.Result {
	lo, hi := c.e.Bounds(s)
	if lo > 0 {
		return domain.Infeasible
	}
	if hi <= 0 {
		return domain.Complete
	}
	result := domain.NoChange
	for _, t := range c.e.Terms() {
		d := s.Get(t.Var)
		if d.IsConstant() {
			continue
		}
		tlo, _ := termRange(t.Coeff, d.Min(), d.Max())
		limit := tlo - lo
		var r domain.Result
		if t.Coeff > 0 {
			bound := floorDiv(limit, t.Coeff)
			if bound < d.Min() {
				panic(&InternalError{Constraint: c.String(), Var: t.Var, Bound: bound, Domain: d})
			}
			r = s.RestrictToMax(t.Var, bound)
		} else {
			bound := ceilDiv(limit, t.Coeff)
			if bound > d.Max() {
				panic(&InternalError{Constraint: c.String(), Var: t.Var, Bound: bound, Domain: d})
			}
			r = s.RestrictToMin(t.Var, bound)
		}
		result = result.Merge(r)
	}
	return result
}

// Disequality is the constraint expr != 0. Bounds propagation can only act
// when zero sits at one end of the expression's range, where it turns into
// expr+1 <= 0 or 1-expr <= 0. With a single unpinned variable the one
// forbidden value is removed from its domain.
type Disequality struct {
	e     expr.Expr
	below *Inequality
	above *Inequality
}

// NotEqual returns the constraint e != 0.
func NotEqual(e expr.Expr) *Disequality {
	return &Disequality{
		e:     e,
		below: LessEqual(expr.AddConst(e, 1)),
		above: LessEqual(expr.AddConst(expr.Negate(e), 1)),
	}
}

func (c *Disequality) Kind() Kind         { return KindNotEqual }
func (c *Disequality) Expr() expr.Expr    { return c.e }
func (c *Disequality) Vars() []domain.Var { return c.e.Vars() }
func (c *Disequality) String() string     { return linearString(c.e, KindNotEqual) }

func (c *Disequality) Satisfied(value func(domain.Var) int) bool {
	return satisfiedBy(c.e, KindNotEqual, value)
}

func (c *Disequality) Restrict(s *domain.Store) domain.Result {
	return fixpoint(s, c.pass)
}

func (c *Disequality) pass(s *domain.Store) domain.Result {
	lo, hi := c.e.Bounds(s)
	switch {
	case lo == hi && lo == 0:
		return domain.Infeasible
	case lo > 0 || hi < 0:
		return domain.Complete
	case hi == 0:
		return c.below.Restrict(s)
	case lo == 0:
		return c.above.Restrict(s)
	}

	free := -1
	rest := c.e.Constant()
	terms := c.e.Terms()
	for i, t := range terms {
		d := s.Get(t.Var)
		if !d.IsConstant() {
			if free >= 0 {
				return domain.NoChange
			}
			free = i
			continue
		}
		rest += t.Coeff * d.Min()
	}
	t := terms[free]
	if rest%t.Coeff != 0 {
		return domain.Complete
	}
	forbidden := -rest / t.Coeff
	if !s.Get(t.Var).Contains(forbidden) {
		return domain.Complete
	}
	return domain.NoChange.Merge(s.Exclude(t.Var, forbidden))
}
