package constraint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
)

func TestCombinations(t *testing.T) {
	for k, want := range []float64{1, 5, 10, 10, 5, 1} {
		assert.Equal(t, want, Combinations(5, k), "C(5,%d)", k)
	}
	assert.Equal(t, 252.0, Combinations(10, 5))
	assert.Equal(t, 0.0, Combinations(3, 4))
	assert.Equal(t, 0.0, Combinations(3, -1))
}

func TestEachCombination(t *testing.T) {
	var got [][]int
	done := eachCombination(4, 2, func(idx []int) bool {
		got = append(got, append([]int(nil), idx...))
		return true
	})
	assert.True(t, done)
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, got)

	calls := 0
	done = eachCombination(4, 2, func([]int) bool { calls++; return calls < 2 })
	assert.False(t, done)
	assert.Equal(t, 2, calls)
}

func TestOneHotOptions(t *testing.T) {
	s, v := store(domain.Binary(), domain.Binary(), domain.Binary(), domain.Binary())
	c := Equals(expr.Sum(v...), expr.Constant(1))

	opts, ok := Options(c, s, 100)
	require.True(t, ok)
	require.Len(t, opts, 4)
	for i, opt := range opts {
		for j, a := range opt {
			assert.Equal(t, v[j], a.Var)
			assert.Equal(t, boolInt(i == j), a.Value)
		}
	}
	assert.Equal(t, 4.0, EstimateAssignments(c, s))
	assert.Equal(t, 4.0, DecompositionScore(c, s))
}

func TestSignedUnitOptions(t *testing.T) {
	s, v := store(domain.Binary(), domain.Binary(), domain.Binary())
	c := Equals(expr.Difference(expr.Sum(v[0], v[1]), expr.FromVar(v[2])), expr.Constant(1))

	opts, ok := Options(c, s, 100)
	require.True(t, ok)
	assert.Equal(t, []Option{
		{{v[0], 1}, {v[1], 1}, {v[2], 1}},
		{{v[0], 1}, {v[1], 0}, {v[2], 0}},
		{{v[0], 0}, {v[1], 1}, {v[2], 0}},
	}, opts)
	assert.Equal(t, 3.0, EstimateAssignments(c, s))
	assert.Equal(t, 3.0, DecompositionScore(c, s))

	_, ok = Options(c, s, 2)
	assert.False(t, ok, "more options than the limit")
}

func TestOptionsSkipPinnedVariables(t *testing.T) {
	s, v := store(domain.Constant(1), domain.Binary(), domain.Binary())
	c := Equals(expr.Sum(v...), expr.Constant(2))

	opts, ok := Options(c, s, 10)
	require.True(t, ok)
	assert.Equal(t, []Option{
		{{v[1], 1}, {v[2], 0}},
		{{v[1], 0}, {v[2], 1}},
	}, opts)
}

func TestGenericLessEqualOptions(t *testing.T) {
	s, v := store(domain.Binary(), domain.Binary(), domain.Binary())
	c := LessEqual(expr.WeightedSum(v, []int{-2, 2, 1}))

	opts, ok := Options(c, s, 100)
	require.True(t, ok)
	assert.Equal(t, []Option{
		{{v[0], 1}, {v[1], 1}, {v[2], 0}},
		{{v[0], 1}, {v[1], 0}, {v[2], 1}},
		{{v[0], 1}, {v[1], 0}, {v[2], 0}},
		{{v[0], 0}, {v[1], 0}, {v[2], 0}},
	}, opts)
}

func TestGenericEqualitySkipsNonDivisibleCompletions(t *testing.T) {
	s, v := store(domain.New(0, 3), domain.New(0, 3))
	c := Equals(expr.WeightedSum(v, []int{2, 3}), expr.Constant(7))

	opts, ok := Options(c, s, 100)
	require.True(t, ok)
	assert.Equal(t, []Option{{{v[0], 2}, {v[1], 1}}}, opts)

	none := Equals(expr.WeightedSum(v, []int{2, 4}), expr.Constant(3))
	opts, ok = Options(none, s, 100)
	require.True(t, ok)
	assert.Empty(t, opts)
}

func TestOptionsOfSatisfiedConstraint(t *testing.T) {
	s, v := store(domain.Constant(1), domain.Constant(0))
	c := Equals(expr.Sum(v...), expr.Constant(1))
	opts, ok := Options(c, s, 1)
	require.True(t, ok)
	assert.Equal(t, []Option{{}}, opts)
	assert.Equal(t, 0.0, DecompositionScore(c, s))
}

func TestDistinctHasNoOptions(t *testing.T) {
	s, v := store(domain.New(0, 2), domain.New(0, 2))
	c := AllDifferent(v...)
	_, ok := Options(c, s, 100)
	assert.False(t, ok)
	assert.Equal(t, 0.0, DecompositionScore(c, s))
	assert.True(t, math.IsInf(EstimateAssignments(c, s), 1))
}

func TestScoreFavorsTightConstraints(t *testing.T) {
	s, v := store(domain.New(0, 10), domain.New(0, 10), domain.New(0, 10))
	loose := LessOrEqual(expr.Sum(v...), expr.Constant(30))
	tight := Equals(expr.Sum(v...), expr.Constant(30))

	assert.Less(t, DecompositionScore(loose, s), 1.0)
	assert.Greater(t, DecompositionScore(tight, s), DecompositionScore(loose, s))
}
