package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
	"github.com/gitrdm/intsolve/pkg/oracle"
)

func v(x domain.Var) expr.Expr { return expr.FromVar(x) }

func TestAddRejectsUnknownVariables(t *testing.T) {
	p := New()
	p.AddBinary()
	assert.Panics(t, func() {
		p.Add(constraint.Equals(v(domain.Var(5)), expr.Constant(1)))
	})
}

func TestBinaryMatrixUsesZeroForDisabledSlots(t *testing.T) {
	p := New()
	m := p.AddBinaryMatrix([][]bool{{true, false}, {false, true}})
	assert.Equal(t, domain.Zero, m[0][1])
	assert.Equal(t, domain.Zero, m[1][0])
	assert.Equal(t, 2, p.NumVars())
	assert.True(t, p.Domain(m[0][0]).IsBinary())

	assert.Panics(t, func() { p.AddBinaryMatrix([][]bool{{true}, {true, true}}) })
	assert.Panics(t, func() { p.AddBinaryCube([][][]bool{{{true}}, {{true}, {true}}}) })

	cube := p.AddBinaryCube([][][]bool{{{true, false}}, {{false, true}}})
	assert.Len(t, cube, 2)
	assert.Equal(t, domain.Zero, cube[0][0][1])
	assert.False(t, cube[1][0][1].IsZero())
}

func TestExactSumBinary(t *testing.T) {
	p := New()
	x := p.AddBinaries(2)
	p.Add(constraint.Equals(expr.Sum(x...), expr.Constant(1)))

	assert.Equal(t, domain.NoChange, p.Propagate())
	assert.False(t, p.IsSolved())

	p.Assign(x[0], 1)
	assert.Equal(t, domain.Change, p.Propagate())
	assert.Equal(t, domain.Constant(0), p.Domain(x[1]))
	assert.True(t, p.IsSolved())
	assert.Empty(t, p.Constraints())
}

func TestMixedSignEqualityNarrowsToBoundConsistency(t *testing.T) {
	// a + b + c == -2 with a ∈ [-3,0] and binary b, c. a = -3, b = 1, c = 0
	// is a solution as well, so only the bounds of a can move.
	p := New()
	a := p.AddRange(-3, 0)
	b, c := p.AddBinary(), p.AddBinary()
	p.Add(constraint.Equals(expr.Sum(a, b, c), expr.Constant(-2)))

	require.Equal(t, domain.Change, p.Propagate())
	assert.Equal(t, domain.New(-3, -2), p.Domain(a))
	assert.Equal(t, domain.Binary(), p.Domain(b))
	assert.Equal(t, domain.Binary(), p.Domain(c))

	p.Assign(a, -2)
	p.Propagate()
	assert.Equal(t, domain.Constant(0), p.Domain(b))
	assert.Equal(t, domain.Constant(0), p.Domain(c))
	assert.True(t, p.IsSolved())
}

func TestInfeasibilityIsSticky(t *testing.T) {
	p := New()
	x := p.AddRange(0, 3)
	p.Add(constraint.Equals(v(x), expr.Constant(7)))

	assert.Equal(t, domain.Infeasible, p.Propagate())
	assert.True(t, p.IsInfeasible())
	assert.False(t, p.IsSolved())
	assert.Equal(t, domain.Infeasible, p.Propagate())
	assert.True(t, p.Clone().IsInfeasible())
}

func chain(d int) (*Problem, []domain.Var) {
	p := New()
	vars := []domain.Var{p.AddRange(0, 9), p.AddRange(0, 9), p.AddRange(0, 9), p.AddVar(domain.Constant(d))}
	for i := 0; i+1 < len(vars); i++ {
		p.Add(constraint.Equals(v(vars[i]), v(vars[i+1])))
	}
	return p, vars
}

func TestPropagateReachesFixpoint(t *testing.T) {
	p, vars := chain(3)
	assert.Equal(t, domain.Change, p.Propagate())
	for _, x := range vars {
		assert.Equal(t, domain.Constant(3), p.Domain(x))
	}
	assert.Equal(t, domain.NoChange, p.Propagate())

	stats := p.Stats()
	assert.Equal(t, 3, stats.Rounds)
	assert.Equal(t, 5, stats.Reconsiderations)
}

func TestEqualityRangeContainsZeroAfterFixpoint(t *testing.T) {
	p := New()
	x, y, z := p.AddRange(-5, 5), p.AddRange(0, 7), p.AddRange(-2, 9)
	p.AddAll(
		constraint.Equal(expr.WeightedSum([]domain.Var{x, y, z}, []int{3, -2, 1})),
		constraint.Equals(expr.Plus(v(x), v(y)), expr.Constant(4)),
		constraint.LessOrEqual(v(z), v(y)),
	)
	require.NotEqual(t, domain.Infeasible, p.Propagate())
	for _, c := range p.Constraints() {
		lc := c.(constraint.Linear)
		lo, hi := lc.Expr().Bounds(p.store)
		if c.Kind() == constraint.KindEqual {
			assert.LessOrEqual(t, lo, 0, c.String())
			assert.GreaterOrEqual(t, hi, 0, c.String())
		}
	}

	before := p.store.Clone()
	assert.Equal(t, domain.NoChange, p.Propagate())
	for _, x := range p.Vars() {
		assert.True(t, before.Get(x).Equal(p.Domain(x)))
	}
}

func TestReduceShortensPropagation(t *testing.T) {
	plain, pv := chain(3)
	plain.Propagate()

	reduced, rv := chain(3)
	report := reduced.Reduce()
	assert.Equal(t, []domain.Var{rv[1], rv[0], rv[2]}, report.Eliminated)
	assert.Equal(t, 5, report.Rewritten)
	assert.Empty(t, report.NonDivisible)
	assert.False(t, report.Infeasible)

	d := v(rv[3])
	want := []expr.Expr{
		expr.Difference(v(rv[1]), d),
		expr.Difference(v(rv[0]), d),
		expr.Difference(v(rv[2]), d),
	}
	for i, c := range reduced.Constraints() {
		assert.True(t, expr.Equal(want[i], c.(constraint.Linear).Expr()), "row %d: %s", i, c)
	}

	reduced.Propagate()
	for i := range pv {
		assert.Equal(t, plain.Domain(pv[i]), reduced.Domain(rv[i]))
	}
	assert.Equal(t, 1, reduced.Stats().Rounds)
	assert.Less(t, reduced.Stats().Rounds, plain.Stats().Rounds)
}

func TestReduceRecordsNonDivisiblePairs(t *testing.T) {
	p := New()
	a, b, c := p.AddRange(0, 9), p.AddRange(0, 9), p.AddRange(0, 9)
	p.Add(constraint.Equal(expr.WeightedSum([]domain.Var{a, b}, []int{2, -1})))
	p.Add(constraint.LessEqual(expr.New(-10, expr.Term{Var: a, Coeff: 3}, expr.Term{Var: c, Coeff: 1})))

	report := p.Reduce()
	require.Len(t, report.NonDivisible, 1)
	nd := report.NonDivisible[0]
	assert.Equal(t, a, nd.Var)
	assert.Equal(t, 2, nd.SourceCoeff)
	assert.Equal(t, 3, nd.TargetCoeff)
	assert.Empty(t, report.Eliminated)
	assert.Zero(t, report.Rewritten)
}

func TestReduceDetectsGCDMismatch(t *testing.T) {
	p := New()
	a, b := p.AddRange(0, 9), p.AddRange(0, 9)
	p.Add(constraint.Equal(expr.New(-3, expr.Term{Var: a, Coeff: 2}, expr.Term{Var: b, Coeff: 4})))
	p.Add(constraint.LessOrEqual(v(a), expr.Constant(5)))

	report := p.Reduce()
	assert.True(t, report.Infeasible)
	assert.True(t, p.IsInfeasible())
}

func TestReduceKeepsSolutions(t *testing.T) {
	// 3a + 5b == 2c, a + b == 4: every solution survives the rewriting.
	p := New()
	a, b, c := p.AddRange(0, 9), p.AddRange(0, 9), p.AddRange(0, 20)
	p.Add(constraint.Equals(expr.WeightedSum([]domain.Var{a, b}, []int{3, 5}), expr.Scaled(c, 2)))
	p.Add(constraint.Equals(expr.Plus(v(a), v(b)), expr.Constant(4)))
	p.Add(constraint.NotEquals(v(a), expr.Constant(1)))
	original := p.Constraints()

	p.Reduce()
	for av := 0; av <= 9; av++ {
		for bv := 0; bv <= 9; bv++ {
			for cv := 0; cv <= 20; cv++ {
				value := func(x domain.Var) int {
					return map[domain.Var]int{a: av, b: bv, c: cv}[x]
				}
				want := true
				for _, oc := range original {
					want = want && oc.Satisfied(value)
				}
				got := true
				for _, rc := range p.Constraints() {
					got = got && rc.Satisfied(value)
				}
				require.Equal(t, want, got, "a=%d b=%d c=%d", av, bv, cv)
			}
		}
	}
}

func TestSubstituteRequiresPivot(t *testing.T) {
	p := New()
	a, b := p.AddBinary(), p.AddBinary()
	assert.Panics(t, func() { substitute(v(a), v(b), a) })
	assert.Equal(t, "x2", substitute(expr.Plus(v(a), v(b)), v(a), a).String())
}

func TestCloneDropsEntailedConstraints(t *testing.T) {
	p := New()
	x, y := p.AddBinary(), p.AddBinary()
	p.Add(constraint.LessOrEqual(v(x), expr.Constant(1)))
	p.Add(constraint.NotEquals(v(x), v(y)))
	p.Propagate()
	require.Len(t, p.Constraints(), 1)

	q := p.Clone()
	assert.Len(t, q.infos, 1)
	q.Assign(x, 1)
	q.Propagate()
	assert.Equal(t, domain.Constant(0), q.Domain(y))
	assert.Equal(t, domain.Binary(), p.Domain(x))
	assert.Equal(t, domain.Binary(), p.Domain(y))
}

func TestSelectVariable(t *testing.T) {
	p := New()
	a, b, c := p.AddRange(0, 9), p.AddRange(0, 3), p.AddBinary()
	p.Add(constraint.LessOrEqual(expr.Sum(a, b, c), expr.Constant(10)))

	got, ok := p.selectVariable()
	require.True(t, ok)
	assert.Equal(t, c, got, "binary short-circuit")

	p.SetObjective(expr.NewObjective().AddTerm(a, 8).AddTerm(b, 1))
	got, _ = p.selectVariable()
	assert.Equal(t, a, got, "size - |coeff| = 1 beats 2")

	p.Assign(a, 0)
	p.Assign(b, 0)
	got, _ = p.selectVariable()
	assert.Equal(t, c, got, "falls back once objective variables are pinned")
}

func TestValueChildren(t *testing.T) {
	p := New(WithMaxBranchValues(4))
	x := p.AddRange(0, 9)
	children := p.valueChildren(x)
	require.Len(t, children, 2)
	assert.Equal(t, domain.New(5, 9), children[0].Domain(x))
	assert.Equal(t, domain.New(0, 4), children[1].Domain(x))

	y := p.AddVar(domain.FromValues(1, 4, 6))
	children = p.valueChildren(y)
	require.Len(t, children, 3)
	for i, want := range []int{6, 4, 1} {
		assert.Equal(t, domain.Constant(want), children[i].Domain(y))
	}
}

func TestValueOfFreeVariablesFollowsObjective(t *testing.T) {
	p := New()
	x, y, z := p.AddRange(2, 5), p.AddRange(2, 5), p.AddRange(2, 5)
	p.SetObjective(expr.NewObjective().AddTerm(x, 1).AddTerm(y, -1))
	assert.True(t, p.IsSolved())
	assert.Equal(t, []int{0, 2, 5, 2}, p.Assignment())
	assert.Equal(t, -3.0, p.ObjectiveValue())
	assert.Equal(t, -3.0, p.ObjectiveBound())
	assert.Equal(t, 2, p.Value(z))
}

func TestMinimizeStopsAtNodeLimit(t *testing.T) {
	p := New(WithNodeLimit(1))
	x := p.AddBinaries(6)
	p.Add(constraint.Equals(expr.Sum(x...), expr.Constant(3)))
	p.SetObjective(expr.NewObjective().AddExpr(expr.WeightedSum(x, []int{1, -2, 3, -4, 5, -6}), 1))

	sol, err := p.Minimize(context.Background())
	require.ErrorIs(t, err, ErrSearchLimitReached)
	assert.Contains(t, []Status{StatusFeasible, StatusUnknown}, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
}

func TestMinimizeHonorsCancellation(t *testing.T) {
	p := New()
	x := p.AddBinaries(4)
	p.Add(constraint.Equals(expr.Sum(x...), expr.Constant(2)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := p.Minimize(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusUnknown, sol.Status)
	assert.False(t, p.IsInfeasible())

	ok, err := p.FindFeasible(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExport(t *testing.T) {
	p := New()
	x := p.AddVar(domain.FromValues(0, 1, 3))
	y, z := p.AddRange(0, 3), p.AddRange(0, 3)
	p.Add(constraint.LessOrEqual(expr.Plus(v(x), v(y)), expr.Constant(4)))
	p.Add(constraint.AllDifferent(x, y, z))
	p.SetObjective(expr.NewObjective().AddTerm(z, -1.5).AddConst(2))

	m, err := p.Export()
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, []oracle.Var{{Index: 1, Min: 0, Max: 3}, {Index: 2, Min: 0, Max: 3}, {Index: 3, Min: 0, Max: 3}}, m.Vars)
	require.Len(t, m.Rows, 5)
	assert.Equal(t, oracle.Row{Kind: oracle.NotEqual, Terms: []oracle.Term{{Index: 1, Coeff: 1}}, Constant: -2}, m.Rows[0])
	assert.Equal(t, oracle.Row{Kind: oracle.LessEqual, Terms: []oracle.Term{{Index: 1, Coeff: 1}, {Index: 2, Coeff: 1}}, Constant: -4}, m.Rows[1])
	for _, r := range m.Rows[2:] {
		assert.Equal(t, oracle.NotEqual, r.Kind)
	}
	assert.Equal(t, oracle.Objective{Constant: 2, Terms: []oracle.ObjectiveTerm{{Index: 3, Coeff: -1.5}}}, m.Objective)

	p.Add(constraint.AllDifferentExcept(0, y, z))
	_, err = p.Export()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestMonitorStats(t *testing.T) {
	m := NewMonitor()
	p := New(WithMonitor(m))
	x := p.AddBinaries(3)
	p.Add(constraint.Equals(expr.Sum(x...), expr.Constant(1)))
	ok, err := p.FindFeasible(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	stats := m.Stats()
	assert.Positive(t, stats.Nodes)
	assert.Equal(t, 1, stats.Solutions)
	assert.Positive(t, stats.Rounds)
	assert.Contains(t, stats.String(), "nodes=")

	m.Reset()
	assert.Zero(t, m.Stats().Nodes)
}
