package constraint

import (
	"math"
	"slices"

	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
)

// Assignment pins one variable to one value.
type Assignment struct {
	Var   domain.Var
	Value int
}

// Option pins every unpinned variable of a constraint so that the
// constraint holds.
type Option []Assignment

// view is a linear constraint seen through the current domains: the unpinned
// terms and the residual contributed by everything already pinned.
type view struct {
	kind Kind
	free []expr.Term
	rest int
}

func newView(c Linear, s *domain.Store) view {
	e := c.Expr()
	v := view{kind: c.Kind(), rest: e.Constant()}
	for _, t := range e.Terms() {
		d := s.Get(t.Var)
		if d.IsConstant() {
			v.rest += t.Coeff * d.Min()
			continue
		}
		v.free = append(v.free, t)
	}
	return v
}

func (v view) holds(total int) bool {
	switch v.kind {
	case KindEqual:
		return total == 0
	case KindLessEqual:
		return total <= 0
	default:
		return total != 0
	}
}

// unitBinary splits the free terms into +1 and -1 binaries. ok is false if
// some free term is not a ±1 binary.
func (v view) unitBinary(s *domain.Store) (pos, neg []domain.Var, ok bool) {
	for _, t := range v.free {
		if !s.Get(t.Var).IsBinary() {
			return nil, nil, false
		}
		switch t.Coeff {
		case 1:
			pos = append(pos, t.Var)
		case -1:
			neg = append(neg, t.Var)
		default:
			return nil, nil, false
		}
	}
	return pos, neg, true
}

// EstimateAssignments estimates how many assignments of c's unpinned
// variables satisfy c. Sums of ±1 binaries are counted exactly; other linear
// constraints are estimated from the product of domain sizes assuming the
// expression is spread evenly over its range. All-different constraints are
// not estimated and report +Inf.
func EstimateAssignments(c Constraint, s *domain.Store) float64 {
	lc, ok := c.(Linear)
	if !ok {
		return math.Inf(1)
	}
	v := newView(lc, s)
	if len(v.free) == 0 {
		if v.holds(v.rest) {
			return 1
		}
		return 0
	}
	if pos, neg, ok := v.unitBinary(s); ok {
		total := 0.0
		for k := 0; k <= len(pos); k++ {
			for l := 0; l <= len(neg); l++ {
				if v.holds(k - l + v.rest) {
					total += Combinations(len(pos), k) * Combinations(len(neg), l)
				}
			}
		}
		return total
	}

	box := 1.0
	for _, t := range v.free {
		box *= float64(s.Get(t.Var).Count())
	}
	lo, hi := lc.Expr().Bounds(s)
	width := float64(hi - lo + 1)
	var est float64
	switch v.kind {
	case KindEqual:
		est = box / width
	case KindLessEqual:
		est = box * float64(min(0, hi)-lo+1) / width
	default:
		est = box * (1 - 1/width)
	}
	return math.Max(est, 1)
}

// DecompositionScore rates how decisive branching on c would be:
// freeVars² / EstimateAssignments. Scores above 1 mean c admits few
// assignments compared with the number of variables it decides. A
// constraint with no consistent assignment scores +Inf.
func DecompositionScore(c Constraint, s *domain.Store) float64 {
	lc, ok := c.(Linear)
	if !ok {
		return 0
	}
	n := len(newView(lc, s).free)
	if n == 0 {
		return 0
	}
	est := EstimateAssignments(c, s)
	if est == 0 {
		return math.Inf(1)
	}
	return float64(n*n) / est
}

// Options enumerates every option of c given the pinned values in s, most
// decisive first (higher values before lower ones). It gives up and reports
// ok == false for all-different constraints and when more than limit options
// exist or the enumeration would visit too many partial assignments.
//
// A partial assignment whose last variable would need a non-integral value
// has no completion and contributes nothing; an empty, ok result therefore
// means c cannot be satisfied from here.
func Options(c Constraint, s *domain.Store, limit int) (opts []Option, ok bool) {
	lc, isLinear := c.(Linear)
	if !isLinear || limit <= 0 {
		return nil, false
	}
	v := newView(lc, s)
	if len(v.free) == 0 {
		if v.holds(v.rest) {
			return []Option{{}}, true
		}
		return nil, true
	}
	if pos, neg, unit := v.unitBinary(s); unit {
		return v.unitOptions(pos, neg, limit)
	}
	return v.genericOptions(s, limit)
}

// unitOptions covers Σpos - Σneg + rest <op> 0 over binaries. The one-hot
// shape (a single positive one) is the common case and is listed first.
func (v view) unitOptions(pos, neg []domain.Var, limit int) ([]Option, bool) {
	if len(neg) == 0 && v.kind == KindEqual && v.rest == -1 {
		opts := make([]Option, len(pos))
		for i := range pos {
			opts[i] = oneHot(pos, i)
		}
		return opts, true
	}

	var opts []Option
	// Prefer more ones, matching the descending value order of the search.
	for k := len(pos); k >= 0; k-- {
		for l := len(neg); l >= 0; l-- {
			if !v.holds(k - l + v.rest) {
				continue
			}
			if float64(len(opts))+Combinations(len(pos), k)*Combinations(len(neg), l) > float64(limit) {
				return nil, false
			}
			eachCombination(len(pos), k, func(pi []int) bool {
				return eachCombination(len(neg), l, func(ni []int) bool {
					opts = append(opts, pick(pos, pi, neg, ni))
					return true
				})
			})
		}
	}
	return opts, true
}

func oneHot(vars []domain.Var, hot int) Option {
	opt := make(Option, len(vars))
	for i, x := range vars {
		opt[i] = Assignment{x, 0}
		if i == hot {
			opt[i].Value = 1
		}
	}
	return opt
}

func pick(pos []domain.Var, pi []int, neg []domain.Var, ni []int) Option {
	opt := make(Option, 0, len(pos)+len(neg))
	for i, x := range pos {
		opt = append(opt, Assignment{x, boolInt(slices.Contains(pi, i))})
	}
	for i, x := range neg {
		opt = append(opt, Assignment{x, boolInt(slices.Contains(ni, i))})
	}
	slices.SortFunc(opt, func(a, b Assignment) int { return int(a.Var) - int(b.Var) })
	return opt
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// genericOptions walks the free variables depth first in descending value
// order. For equalities the last variable is solved for directly.
func (v view) genericOptions(s *domain.Store, limit int) ([]Option, bool) {
	budget := limit * 64
	n := len(v.free)
	doms := make([]domain.Domain, n)
	for i, t := range v.free {
		doms[i] = s.Get(t.Var)
	}
	var opts []Option
	current := make(Option, n)
	var walk func(i, total int) bool
	walk = func(i, total int) bool {
		budget--
		if budget < 0 {
			return false
		}
		t := v.free[i]
		if i == n-1 && v.kind == KindEqual {
			if total%t.Coeff != 0 {
				return true
			}
			x := -total / t.Coeff
			if !doms[i].Contains(x) {
				return true
			}
			current[i] = Assignment{t.Var, x}
			if len(opts) == limit {
				return false
			}
			opts = append(opts, slices.Clone(current))
			return true
		}
		for x, more := doms[i].Max(), true; more; x, more = doms[i].Prev(x) {
			current[i] = Assignment{t.Var, x}
			next := total + t.Coeff*x
			if i == n-1 {
				if !v.holds(next) {
					continue
				}
				if len(opts) == limit {
					return false
				}
				opts = append(opts, slices.Clone(current))
				continue
			}
			if !walk(i+1, next) {
				return false
			}
		}
		return true
	}
	if !walk(0, v.rest) {
		return nil, false
	}
	return opts, true
}
