package solver_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
	"github.com/gitrdm/intsolve/pkg/oracle"
	"github.com/gitrdm/intsolve/pkg/solver"
)

// binsProblem: 20 binaries summing to max ∈ [0,10], minimizing
// -π·max + Σ (i-2.5)·bin_i. The optimum sets bins 0..5.
func binsProblem(opts ...solver.Option) (*solver.Problem, []domain.Var, domain.Var) {
	p := solver.New(opts...)
	bins := p.AddBinaries(20)
	maxVar := p.AddRange(0, 10)
	p.Add(constraint.Equals(expr.Sum(bins...), expr.FromVar(maxVar)))

	obj := expr.NewObjective().AddTerm(maxVar, -math.Pi)
	for i, b := range bins {
		obj.AddTerm(b, float64(i)-2.5)
	}
	p.SetObjective(obj)
	return p, bins, maxVar
}

func TestMinimizeBins(t *testing.T) {
	p, bins, maxVar := binsProblem()
	sol, err := p.Minimize(context.Background())
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sol.Status)

	sum := 0
	for _, b := range bins {
		sum += sol.Value(b)
	}
	assert.Equal(t, sum, sol.Value(maxVar), "sum(bins) == max")
	assert.InDelta(t, -6*math.Pi, sol.Objective, 1e-9)

	greedyAll := -10*math.Pi + 20 // bins 0..9
	assert.LessOrEqual(t, sol.Objective, greedyAll)
	assert.LessOrEqual(t, sol.Objective, 0.0)

	// the problem took over the optimal state
	assert.True(t, p.IsSolved())
	assert.InDelta(t, sol.Objective, p.ObjectiveValue(), 1e-9)
}

func TestMinimizeWithReduceAndSplitting(t *testing.T) {
	p, _, _ := binsProblem(solver.WithReduce(true), solver.WithMaxBranchValues(2), solver.WithOptionLimit(4))
	sol, err := p.Minimize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, sol.Status)
	assert.InDelta(t, -6*math.Pi, sol.Objective, 1e-9)
}

func TestMinimizeInfeasible(t *testing.T) {
	p := solver.New()
	x := p.AddBinaries(3)
	p.Add(constraint.Equals(expr.Sum(x...), expr.Constant(2)))
	p.Add(constraint.AllDifferent(x...))

	sol, err := p.Minimize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())
	assert.True(t, math.IsInf(sol.Objective, 1))
	assert.True(t, p.IsInfeasible())
}

func TestMinimizeBranchesOnOneHotConstraints(t *testing.T) {
	// Assignment of 4 workers to 4 tasks, cost (i+1)·(j+1) mod 5.
	p := solver.New()
	mask := make([][]bool, 4)
	for i := range mask {
		mask[i] = []bool{true, true, true, true}
	}
	x := p.AddBinaryMatrix(mask)
	obj := expr.NewObjective()
	for i := range x {
		col := make([]domain.Var, 4)
		for j := range x {
			col[j] = x[j][i]
			obj.AddTerm(x[i][j], float64((i+1)*(j+1)%5))
		}
		p.Add(constraint.Equals(expr.Sum(x[i]...), expr.Constant(1)))
		p.Add(constraint.Equals(expr.Sum(col...), expr.Constant(1)))
	}
	p.SetObjective(obj)

	sol, err := p.Minimize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, sol.Status)

	// brute force over all permutations
	best := math.Inf(1)
	perm := []int{0, 1, 2, 3}
	var walk func(k int)
	walk = func(k int) {
		if k == len(perm) {
			cost := 0.0
			for i, j := range perm {
				cost += float64((i + 1) * (j + 1) % 5)
			}
			best = math.Min(best, cost)
			return
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)
	assert.Equal(t, best, sol.Objective)
}

func queens(n int) (*solver.Problem, []domain.Var) {
	p := solver.New()
	q := make([]domain.Var, n)
	for i := range q {
		q[i] = p.AddRange(0, n-1)
	}
	p.Add(constraint.AllDifferent(q...))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			diff := expr.Difference(expr.FromVar(q[i]), expr.FromVar(q[j]))
			p.Add(constraint.NotEquals(diff, expr.Constant(j-i)))
			p.Add(constraint.NotEquals(diff, expr.Constant(i-j)))
		}
	}
	return p, q
}

func TestFindFeasibleQueens(t *testing.T) {
	p, q := queens(6)
	ok, err := p.FindFeasible(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, p.IsSolved())

	for i := range q {
		for j := i + 1; j < len(q); j++ {
			a, b := p.Value(q[i]), p.Value(q[j])
			assert.NotEqual(t, a, b)
			assert.NotEqual(t, j-i, a-b)
			assert.NotEqual(t, i-j, a-b)
		}
	}
}

func TestFindFeasibleIsDeterministic(t *testing.T) {
	first, _ := queens(8)
	second, _ := queens(8)
	ok1, err1 := first.FindFeasible(context.Background())
	ok2, err2 := second.FindFeasible(context.Background())
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first.Assignment(), second.Assignment())
	assert.Equal(t, first.Stats().Nodes, second.Stats().Nodes)
}

func TestFindFeasibleProvesInfeasibility(t *testing.T) {
	p, _ := queens(3)
	ok, err := p.FindFeasible(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, p.IsInfeasible())
}

func TestFindFeasibleNodeLimit(t *testing.T) {
	p := solver.New(solver.WithNodeLimit(2))
	vars := p.AddVars(domain.New(0, 3), domain.New(0, 3), domain.New(0, 3))
	p.Add(constraint.AllDifferent(vars...))
	p.Add(constraint.Equals(expr.Sum(vars...), expr.Constant(3)))

	// x=3 fails at the second node, the limit stops x=2
	ok, err := p.FindFeasible(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, solver.ErrSearchLimitReached)
	assert.False(t, p.IsInfeasible())
}

func TestCrossCheckAgreesWithMaxSAT(t *testing.T) {
	p := solver.New()
	x, y, z := p.AddRange(0, 3), p.AddRange(0, 3), p.AddRange(0, 3)
	p.Add(constraint.LessOrEqual(expr.WeightedSum([]domain.Var{x, y, z}, []int{2, 3, 1}), expr.Constant(7)))
	p.Add(constraint.NotEquals(expr.FromVar(x), expr.FromVar(y)))
	p.SetObjective(expr.NewObjective().AddTerm(x, -3).AddTerm(y, -4).AddTerm(z, -1))

	report, err := solver.CrossCheck(context.Background(), p, oracle.NewMaxSAT())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, report.Engine.Status)
	assert.True(t, report.Agree, report.String())
	assert.False(t, p.IsSolved(), "the input problem is untouched")
}

func TestCrossCheckInfeasible(t *testing.T) {
	p := solver.New()
	x, y := p.AddRange(0, 2), p.AddRange(0, 2)
	p.Add(constraint.Equals(expr.Plus(expr.FromVar(x), expr.FromVar(y)), expr.Constant(5)))

	report, err := solver.CrossCheck(context.Background(), p, oracle.NewMaxSAT())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInfeasible, report.Engine.Status)
	assert.True(t, report.OracleInfeasible)
	assert.True(t, report.Agree)
}
