package models

import (
	"fmt"
	"math/rand/v2"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
	"github.com/gitrdm/intsolve/pkg/solver"
)

// Compatibility describes a kidney exchange pool: Edges[i][j] means the donor
// of pair i can give to the recipient of pair j, with benefit Weights[i][j].
type Compatibility struct {
	Edges   [][]bool
	Weights [][]float64
}

// N returns the number of pairs.
func (c Compatibility) N() int { return len(c.Edges) }

// CreateCompatibility draws a random pool of n pairs where each directed
// edge exists with the given density. The matrix grows ring by ring from the
// top-left corner, so for a fixed seed a larger n extends a smaller pool.
// Without realWeights every edge weighs 1; the random weights are drawn
// regardless to keep the edge pattern independent of that choice.
func CreateCompatibility(n int, density float64, realWeights bool, seed uint64) Compatibility {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	c := Compatibility{Edges: make([][]bool, n), Weights: make([][]float64, n)}
	for i := range c.Edges {
		c.Edges[i] = make([]bool, n)
		c.Weights[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if rng.Float64() < density {
				c.Edges[i][j] = true
				c.Weights[i][j] = rng.Float64()
			}
			if rng.Float64() < density {
				c.Edges[j][i] = true
				c.Weights[j][i] = rng.Float64()
			}
		}
	}
	if !realWeights {
		for i := range c.Weights {
			for j := range c.Weights[i] {
				c.Weights[i][j] = 0
				if c.Edges[i][j] {
					c.Weights[i][j] = 1
				}
			}
		}
	}
	return c
}

// Edge is a selected donation from pair From to pair To.
type Edge struct {
	From, To int
}

// Kidney is the edge assignment model of a kidney exchange with cycles of at
// most K pairs. X[i][j] selects edge i→j; Y[i][l] places pair i in the cycle
// whose largest pair is l (i <= l).
type Kidney struct {
	Problem *solver.Problem
	X       [][]domain.Var
	Y       [][]domain.Var
	K       int
	pool    Compatibility
}

// NewKidney builds the model maximizing the total weight of the selected
// edges, expressed as minimizing its negation.
func NewKidney(pool Compatibility, k int, opts ...solver.Option) (*Kidney, error) {
	n := pool.N()
	if k < 2 {
		return nil, fmt.Errorf("models: cycle limit %d, want at least 2", k)
	}
	upper := make([][]bool, n)
	edges := make([][]bool, n)
	for i := range upper {
		if len(pool.Edges[i]) != n {
			return nil, fmt.Errorf("models: compatibility row %d has %d entries, want %d", i, len(pool.Edges[i]), n)
		}
		upper[i] = make([]bool, n)
		edges[i] = make([]bool, n)
		for j := range upper[i] {
			upper[i][j] = j >= i
			edges[i][j] = pool.Edges[i][j] && i != j
		}
	}

	p := solver.New(opts...)
	m := &Kidney{Problem: p, X: p.AddBinaryMatrix(edges), Y: p.AddBinaryMatrix(upper), K: k, pool: pool}
	x, y := m.X, m.Y

	obj := expr.NewObjective()
	for i := range x {
		for j, v := range x[i] {
			obj.AddTerm(v, -pool.Weights[i][j])
		}
	}
	p.SetObjective(obj)

	for i := 0; i < n; i++ {
		out, in := expr.Sum(x[i]...), expr.Sum(column(x, i)...)
		p.Add(constraint.Equals(in, out))
		p.Add(constraint.LessOrEqual(out, expr.Constant(1)))
		p.Add(constraint.LessOrEqual(in, expr.Constant(1)))
		// a pair sits in one cycle exactly when it donates
		p.Add(constraint.Equals(expr.Sum(y[i]...), out))
	}
	for l := 0; l < n; l++ {
		p.Add(constraint.LessOrEqual(expr.Sum(column(y, l)...), expr.Constant(k)))
		for i := 0; i < n; i++ {
			if y[i][l].IsZero() {
				continue
			}
			// the largest pair leads its cycle
			if i != l {
				p.Add(constraint.LessOrEqual(expr.FromVar(y[i][l]), expr.FromVar(y[l][l])))
			}
			// edges leaving cycle l stay in cycle l
			for j := 0; j < n; j++ {
				if x[i][j].IsZero() {
					continue
				}
				lhs := expr.Plus(expr.FromVar(y[i][l]), expr.FromVar(x[i][j]))
				p.Add(constraint.LessOrEqual(lhs, expr.AddVar(expr.Constant(1), y[j][l], 1)))
			}
		}
	}
	return m, nil
}

func column(vs [][]domain.Var, j int) []domain.Var {
	out := make([]domain.Var, len(vs))
	for i := range vs {
		out[i] = vs[i][j]
	}
	return out
}

// Selected returns the chosen edges under a full assignment.
func (m *Kidney) Selected(values []int) []Edge {
	var edges []Edge
	for i := range m.X {
		for j, v := range m.X[i] {
			if !v.IsZero() && values[v] == 1 {
				edges = append(edges, Edge{From: i, To: j})
			}
		}
	}
	return edges
}

// Weight sums the weights of edges.
func (c Compatibility) Weight(edges []Edge) float64 {
	total := 0.0
	for _, e := range edges {
		total += c.Weights[e.From][e.To]
	}
	return total
}

// ValidateExchange checks that edges form disjoint cycles of at most k
// compatible pairs.
func (c Compatibility) ValidateExchange(edges []Edge, k int) error {
	next := make(map[int]int, len(edges))
	received := make(map[int]bool, len(edges))
	for _, e := range edges {
		if !c.Edges[e.From][e.To] || e.From == e.To {
			return fmt.Errorf("edge %d→%d is not compatible", e.From, e.To)
		}
		if _, dup := next[e.From]; dup {
			return fmt.Errorf("pair %d donates twice", e.From)
		}
		if received[e.To] {
			return fmt.Errorf("pair %d receives twice", e.To)
		}
		next[e.From] = e.To
		received[e.To] = true
	}
	for start := range next {
		length, cur := 0, start
		for {
			to, ok := next[cur]
			if !ok {
				return fmt.Errorf("pair %d receives without donating", cur)
			}
			length++
			cur = to
			if cur == start {
				break
			}
			if length > len(edges) {
				return fmt.Errorf("chain from pair %d never closes", start)
			}
		}
		if length > k {
			return fmt.Errorf("cycle through pair %d has %d pairs, limit %d", start, length, k)
		}
	}
	return nil
}
