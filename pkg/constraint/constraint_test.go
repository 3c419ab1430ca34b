package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
)

func store(ds ...domain.Domain) (*domain.Store, []domain.Var) {
	s := domain.NewStore()
	vs := make([]domain.Var, len(ds))
	for i, d := range ds {
		vs[i] = s.Add(d)
	}
	return s, vs
}

func bounds(s *domain.Store, v domain.Var) [2]int {
	d := s.Get(v)
	return [2]int{d.Min(), d.Max()}
}

func TestEqualityTightensMixedSigns(t *testing.T) {
	s, v := store(domain.New(-3, 0), domain.Binary(), domain.Binary())
	c := Equals(expr.Sum(v...), expr.Constant(-2))

	require.Equal(t, domain.Change, c.Restrict(s))
	assert.Equal(t, [2]int{-3, -2}, bounds(s, v[0]))
	assert.Equal(t, [2]int{0, 1}, bounds(s, v[1]))
	assert.Equal(t, [2]int{0, 1}, bounds(s, v[2]))

	// Pinning a to its upper end leaves b+c == 0.
	s.Assign(v[0], -2)
	assert.Equal(t, domain.Complete, c.Restrict(s))
	assert.Equal(t, [2]int{0, 0}, bounds(s, v[1]))
	assert.Equal(t, [2]int{0, 0}, bounds(s, v[2]))
}

func TestEqualityWithCoefficients(t *testing.T) {
	s, v := store(domain.New(0, 3), domain.New(0, 3), domain.New(0, 3))
	c := Equals(expr.WeightedSum(v, []int{1, 2, 1}), expr.Constant(10))

	require.Equal(t, domain.Change, c.Restrict(s))
	assert.Equal(t, [2]int{1, 3}, bounds(s, v[0]))
	assert.Equal(t, [2]int{2, 3}, bounds(s, v[1]))
	assert.Equal(t, [2]int{1, 3}, bounds(s, v[2]))

	lo, hi := c.Expr().Bounds(s)
	assert.LessOrEqual(t, lo, 0)
	assert.GreaterOrEqual(t, hi, 0)
}

func TestEqualityRoundingIsInfeasible(t *testing.T) {
	// 2x + y == 3 with y pinned to 2 needs x = 1/2.
	s, v := store(domain.New(0, 3), domain.Constant(2))
	c := Equal(expr.New(-3, expr.Term{Var: v[0], Coeff: 2}, expr.Term{Var: v[1], Coeff: 1}))
	assert.NotPanics(t, func() {
		assert.Equal(t, domain.Infeasible, c.Restrict(s))
	})
}

func TestEqualityGCDMismatchIsInfeasible(t *testing.T) {
	s, v := store(domain.New(0, 5), domain.New(0, 5))
	c := Equal(expr.New(-1, expr.Term{Var: v[0], Coeff: 2}, expr.Term{Var: v[1], Coeff: 4}))
	assert.Equal(t, domain.Infeasible, c.Restrict(s))
}

func TestEqualityExactSumBinary(t *testing.T) {
	s, v := store(domain.Binary(), domain.Binary())
	c := Equals(expr.Sum(v...), expr.Constant(1))

	assert.Equal(t, domain.NoChange, c.Restrict(s))
	assert.False(t, s.Get(v[0]).IsConstant())
	assert.False(t, s.Get(v[1]).IsConstant())

	s.Assign(v[0], 1)
	assert.Equal(t, domain.Complete, c.Restrict(s))
	assert.Equal(t, [2]int{0, 0}, bounds(s, v[1]))
}

func TestInequality(t *testing.T) {
	t.Run("entailed", func(t *testing.T) {
		s, v := store(domain.New(-3, 0), domain.Binary(), domain.Binary())
		c := LessOrEqual(expr.Sum(v...), expr.Constant(3))
		assert.Equal(t, domain.Complete, c.Restrict(s))
	})
	t.Run("one sided", func(t *testing.T) {
		s, v := store(domain.New(0, 10), domain.New(2, 10))
		// x + y <= 5 only lowers maxima.
		c := LessOrEqual(expr.Sum(v...), expr.Constant(5))
		assert.Equal(t, domain.Change, c.Restrict(s))
		assert.Equal(t, [2]int{0, 3}, bounds(s, v[0]))
		assert.Equal(t, [2]int{2, 5}, bounds(s, v[1]))
	})
	t.Run("negative coefficient raises minimum", func(t *testing.T) {
		s, v := store(domain.New(0, 10), domain.New(0, 10))
		// 7 <= x - 2y  written as 7 - x + 2y <= 0.
		c := GreaterOrEqual(expr.Difference(expr.FromVar(v[0]), expr.Scaled(v[1], 2)), expr.Constant(7))
		assert.Equal(t, domain.Change, c.Restrict(s))
		assert.Equal(t, [2]int{7, 10}, bounds(s, v[0]))
		assert.Equal(t, [2]int{0, 1}, bounds(s, v[1]))
	})
	t.Run("infeasible", func(t *testing.T) {
		s, v := store(domain.New(4, 10))
		c := LessThan(expr.FromVar(v[0]), expr.Constant(4))
		assert.Equal(t, domain.Infeasible, c.Restrict(s))
	})
}

func TestDisequality(t *testing.T) {
	t.Run("zero at the top of the range", func(t *testing.T) {
		s, v := store(domain.New(0, 3), domain.Constant(3))
		c := NotEquals(expr.FromVar(v[0]), expr.FromVar(v[1]))
		assert.Equal(t, domain.Complete, c.Restrict(s))
		assert.Equal(t, [2]int{0, 2}, bounds(s, v[0]))
	})
	t.Run("zero at the bottom of the range", func(t *testing.T) {
		s, v := store(domain.New(3, 6), domain.Constant(3))
		c := NotEquals(expr.FromVar(v[0]), expr.FromVar(v[1]))
		assert.Equal(t, domain.Complete, c.Restrict(s))
		assert.Equal(t, [2]int{4, 6}, bounds(s, v[0]))
	})
	t.Run("interior value becomes a hole", func(t *testing.T) {
		s, v := store(domain.New(0, 5), domain.Constant(2))
		c := NotEquals(expr.FromVar(v[0]), expr.FromVar(v[1]))
		assert.Equal(t, domain.Complete, c.Restrict(s))
		assert.Equal(t, "[0..1]∪[3..5]", s.Get(v[0]).String())
	})
	t.Run("two free variables", func(t *testing.T) {
		s, v := store(domain.New(0, 5), domain.New(0, 5))
		c := NotEquals(expr.FromVar(v[0]), expr.FromVar(v[1]))
		assert.Equal(t, domain.NoChange, c.Restrict(s))
	})
	t.Run("pinned equal", func(t *testing.T) {
		s, v := store(domain.Constant(4), domain.Constant(4))
		c := NotEquals(expr.FromVar(v[0]), expr.FromVar(v[1]))
		assert.Equal(t, domain.Infeasible, c.Restrict(s))
	})
	t.Run("non-integral forbidden value", func(t *testing.T) {
		s, v := store(domain.New(0, 5))
		c := NotEqual(expr.New(-3, expr.Term{Var: v[0], Coeff: 2}))
		assert.Equal(t, domain.Complete, c.Restrict(s))
		assert.Equal(t, [2]int{0, 5}, bounds(s, v[0]))
	})
}

func TestDistinct(t *testing.T) {
	t.Run("chain", func(t *testing.T) {
		s, v := store(domain.Constant(1), domain.New(1, 2), domain.New(1, 3))
		c := AllDifferent(v...)
		assert.Equal(t, domain.Complete, c.Restrict(s))
		assert.Equal(t, [2]int{2, 2}, bounds(s, v[1]))
		assert.Equal(t, [2]int{3, 3}, bounds(s, v[2]))
	})
	t.Run("hole", func(t *testing.T) {
		s, v := store(domain.Constant(2), domain.New(1, 3))
		c := AllDifferent(v...)
		assert.Equal(t, domain.Change, c.Restrict(s))
		assert.Equal(t, "{1}∪{3}", s.Get(v[1]).String())
	})
	t.Run("clash", func(t *testing.T) {
		s, v := store(domain.Constant(2), domain.Constant(2))
		assert.Equal(t, domain.Infeasible, AllDifferent(v...).Restrict(s))
	})
	t.Run("wildcard is shared", func(t *testing.T) {
		s, v := store(domain.Constant(0), domain.Constant(0), domain.New(0, 2))
		c := AllDifferentExcept(0, v...)
		assert.Equal(t, domain.NoChange, c.Restrict(s))
		assert.Equal(t, [2]int{0, 2}, bounds(s, v[2]))
		assert.True(t, c.Satisfied(func(domain.Var) int { return 0 }))
	})
	t.Run("sentinel skipped and duplicates rejected", func(t *testing.T) {
		_, v := store(domain.Binary(), domain.Binary())
		c := AllDifferent(domain.Zero, v[1], v[0])
		assert.Equal(t, []domain.Var{v[0], v[1]}, c.Vars())
		assert.Panics(t, func() { AllDifferent(v[0], v[0]) })
	})
}

func TestRestrictIsMonotoneAndIdempotent(t *testing.T) {
	type build func([]domain.Var) Constraint
	cases := map[string]struct {
		doms  []domain.Domain
		build build
	}{
		"equality": {
			[]domain.Domain{domain.New(0, 9), domain.New(-4, 7), domain.New(2, 5)},
			func(v []domain.Var) Constraint {
				return Equal(expr.WeightedSum(v, []int{3, -2, 5}))
			},
		},
		"equality with odd coefficients": {
			[]domain.Domain{domain.New(0, 20), domain.New(0, 20), domain.New(0, 20)},
			func(v []domain.Var) Constraint {
				return Equals(expr.WeightedSum(v, []int{7, 11, 13}), expr.Constant(100))
			},
		},
		"inequality": {
			[]domain.Domain{domain.New(0, 9), domain.New(-4, 7), domain.New(2, 5)},
			func(v []domain.Var) Constraint {
				return LessOrEqual(expr.WeightedSum(v, []int{4, -3, 2}), expr.Constant(-5))
			},
		},
		"disequality": {
			[]domain.Domain{domain.New(0, 9), domain.Constant(3)},
			func(v []domain.Var) Constraint {
				return NotEquals(expr.FromVar(v[0]), expr.Scaled(v[1], 2))
			},
		},
		"distinct": {
			[]domain.Domain{domain.Constant(1), domain.New(0, 3), domain.Constant(3), domain.New(0, 4)},
			func(v []domain.Var) Constraint { return AllDifferent(v...) },
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, v := store(tc.doms...)
			c := tc.build(v)
			before := make([]domain.Domain, len(v))
			for i, x := range v {
				before[i] = s.Get(x)
			}

			first := c.Restrict(s)
			require.NotEqual(t, domain.Infeasible, first)
			for i, x := range v {
				after := s.Get(x)
				assert.GreaterOrEqual(t, after.Min(), before[i].Min())
				assert.LessOrEqual(t, after.Max(), before[i].Max())
			}

			s.ClearChanges()
			second := c.Restrict(s)
			assert.Contains(t, []domain.Result{domain.NoChange, domain.Complete}, second)
			assert.Empty(t, s.Changes(), "second call must not write")

			if lc, ok := c.(Linear); ok && lc.Kind() == KindEqual {
				lo, hi := lc.Expr().Bounds(s)
				assert.LessOrEqual(t, lo, 0)
				assert.GreaterOrEqual(t, hi, 0)
			}
		})
	}
}

func TestNewRejectsDistinctKind(t *testing.T) {
	assert.Panics(t, func() { New(KindDistinct, expr.Constant(0)) })
	assert.Equal(t, KindLessEqual, New(KindLessEqual, expr.Constant(0)).Kind())
}

func TestInternalErrorMessage(t *testing.T) {
	err := &InternalError{Constraint: "x1 == 0", Var: 1, Bound: 7, Domain: domain.New(0, 3)}
	assert.Equal(t, "constraint: derived bound 7 for x1 outside [0..3] in x1 == 0", err.Error())
}

func TestSatisfied(t *testing.T) {
	_, v := store(domain.New(0, 9), domain.New(0, 9))
	vals := map[domain.Var]int{v[0]: 4, v[1]: 6}
	value := func(x domain.Var) int { return vals[x] }
	sum := expr.Sum(v...)

	assert.True(t, Equals(sum, expr.Constant(10)).Satisfied(value))
	assert.False(t, Equals(sum, expr.Constant(11)).Satisfied(value))
	assert.True(t, LessThan(sum, expr.Constant(11)).Satisfied(value))
	assert.False(t, NotEquals(sum, expr.Constant(10)).Satisfied(value))
	assert.True(t, AllDifferent(v...).Satisfied(value))
}
