package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPanicsOnEmptyInterval(t *testing.T) {
	assert.Panics(t, func() { New(3, 2) })
	assert.Panics(t, func() { FromValues() })
}

func TestDomainBasics(t *testing.T) {
	d := New(-3, 4)
	assert.Equal(t, -3, d.Min())
	assert.Equal(t, 4, d.Max())
	assert.Equal(t, 7, d.Size())
	assert.Equal(t, 8, d.Count())
	assert.False(t, d.IsConstant())
	assert.True(t, Constant(5).IsConstant())
	assert.True(t, Binary().IsBinary())
	assert.Equal(t, "[-3..4]", d.String())
	assert.Equal(t, "{5}", Constant(5).String())
}

func TestScaleFlipsBoundsForNegativeCoefficients(t *testing.T) {
	d := New(-1, 3)
	tests := []struct {
		s        int
		min, max int
	}{
		{2, -2, 6},
		{-2, -6, 2},
		{1, -1, 3},
		{0, 0, 0},
	}
	for _, tc := range tests {
		got := d.Scale(tc.s)
		assert.Equal(t, tc.min, got.Min(), "scale %d", tc.s)
		assert.Equal(t, tc.max, got.Max(), "scale %d", tc.s)
	}
}

func TestWithoutPunchesHoles(t *testing.T) {
	d := New(0, 9)

	d, ok := d.Without(4)
	require.True(t, ok)
	assert.False(t, d.IsContiguous())
	assert.False(t, d.Contains(4))
	assert.Equal(t, 9, d.Count())
	assert.Equal(t, 9, d.Size())
	assert.Equal(t, "[0..3]∪[5..9]", d.String())

	d, ok = d.Without(5)
	require.True(t, ok)
	assert.Equal(t, "[0..3]∪[6..9]", d.String())

	d, ok = d.Without(0)
	require.True(t, ok)
	assert.Equal(t, 1, d.Min())

	_, ok = Constant(3).Without(3)
	assert.False(t, ok)

	same, ok := Constant(3).Without(7)
	require.True(t, ok)
	assert.True(t, same.Equal(Constant(3)))
}

func TestBoundsSnapOverHoles(t *testing.T) {
	d := FromValues(1, 2, 7, 8, 9)
	assert.Equal(t, "[1..2]∪[7..9]", d.String())

	up, ok := d.WithMin(4)
	require.True(t, ok)
	assert.Equal(t, 7, up.Min())
	assert.True(t, up.IsContiguous())

	down, ok := d.WithMax(6)
	require.True(t, ok)
	assert.Equal(t, 2, down.Max())
	assert.True(t, down.IsContiguous())

	_, ok = d.WithMin(10)
	assert.False(t, ok)
	_, ok = d.WithMax(0)
	assert.False(t, ok)
}

func TestCoalescesAdjacentParts(t *testing.T) {
	d := FromValues(5, 3, 4, 1)
	assert.Equal(t, "{1}∪[3..5]", d.String())

	joined, ok := d.Intersect(New(3, 10))
	require.True(t, ok)
	assert.True(t, joined.IsContiguous())
	assert.True(t, joined.Equal(New(3, 5)))

	_, ok = d.Intersect(Constant(2))
	assert.False(t, ok)
}

func TestNextPrevSkipHoles(t *testing.T) {
	d := FromValues(0, 1, 5, 6)

	var down []int
	for v, ok := d.Max(), true; ok; v, ok = d.Prev(v) {
		down = append(down, v)
	}
	assert.Equal(t, []int{6, 5, 1, 0}, down)

	n, ok := d.Next(1)
	require.True(t, ok)
	assert.Equal(t, 5, n)
	_, ok = d.Next(6)
	assert.False(t, ok)
	assert.Equal(t, []int{0, 1, 5, 6}, d.Values())
}
