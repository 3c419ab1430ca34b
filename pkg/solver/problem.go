// Package solver combines a domain store, a set of constraints and an
// optional linear objective into a Problem, and provides the fixpoint
// propagation loop, equality reduction and the two search procedures built on
// top of it.
//
// A Problem is built incrementally:
//
//	p := solver.New()
//	x := p.AddRange(0, 9)
//	y := p.AddRange(0, 9)
//	p.Add(constraint.Equals(expr.Plus(expr.FromVar(x), expr.FromVar(y)), expr.Constant(10)))
//	p.SetObjective(expr.NewObjective().AddTerm(x, 1))
//	sol, err := p.Minimize(ctx)
//
// The core is single-threaded. A Problem and its clones never share mutable
// state except the Monitor collecting statistics, which is safe for
// concurrent use; independent problems may be solved concurrently.
package solver

import (
	"fmt"
	"strings"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
)

// Problem owns the variables, constraints and objective of one model.
type Problem struct {
	store      *domain.Store
	infos      []constraintInfo
	index      reverseIndex
	objective  *expr.Objective
	infeasible bool
	cfg        *config
}

// New creates an empty problem. Only the constant-zero sentinel domain.Zero
// is registered.
func New(opts ...Option) *Problem {
	p := &Problem{
		store:     domain.NewStore(),
		objective: expr.NewObjective(),
		cfg:       newConfig(opts),
	}
	p.index.grow(p.store.Len())
	return p
}

// AddVar registers a variable with domain d.
func (p *Problem) AddVar(d domain.Domain) domain.Var {
	v := p.store.Add(d)
	p.index.grow(p.store.Len())
	return v
}

// AddRange registers a variable with domain [min, max].
func (p *Problem) AddRange(min, max int) domain.Var {
	return p.AddVar(domain.New(min, max))
}

// AddBinary registers a 0/1 variable.
func (p *Problem) AddBinary() domain.Var {
	return p.AddVar(domain.Binary())
}

// AddVars registers one variable per domain.
func (p *Problem) AddVars(ds ...domain.Domain) []domain.Var {
	vs := make([]domain.Var, len(ds))
	for i, d := range ds {
		vs[i] = p.AddVar(d)
	}
	return vs
}

// AddBinaries registers n 0/1 variables.
func (p *Problem) AddBinaries(n int) []domain.Var {
	vs := make([]domain.Var, n)
	for i := range vs {
		vs[i] = p.AddBinary()
	}
	return vs
}

// AddBinaryMatrix registers a 0/1 variable for each true slot of mask. False
// slots hold domain.Zero, so they can be summed like any other variable and
// always contribute 0. A ragged mask panics.
func (p *Problem) AddBinaryMatrix(mask [][]bool) [][]domain.Var {
	out := make([][]domain.Var, len(mask))
	for i, row := range mask {
		if len(row) != len(mask[0]) {
			panic(fmt.Sprintf("solver: ragged mask, row %d has %d columns, want %d", i, len(row), len(mask[0])))
		}
		out[i] = make([]domain.Var, len(row))
		for j, on := range row {
			if on {
				out[i][j] = p.AddBinary()
			}
		}
	}
	return out
}

// AddBinaryCube is AddBinaryMatrix in three dimensions.
func (p *Problem) AddBinaryCube(mask [][][]bool) [][][]domain.Var {
	out := make([][][]domain.Var, len(mask))
	for i, plane := range mask {
		if len(plane) != len(mask[0]) {
			panic(fmt.Sprintf("solver: ragged mask, plane %d has %d rows, want %d", i, len(plane), len(mask[0])))
		}
		for j, row := range plane {
			if len(row) != len(mask[0][0]) {
				panic(fmt.Sprintf("solver: ragged mask, row %d/%d has %d columns, want %d", i, j, len(row), len(mask[0][0])))
			}
		}
		out[i] = p.AddBinaryMatrix(plane)
	}
	return out
}

// Add registers a constraint. It panics when the constraint references a
// variable unknown to the problem.
func (p *Problem) Add(c constraint.Constraint) {
	vars := c.Vars()
	for _, v := range vars {
		if int(v) < 0 || int(v) >= p.store.Len() {
			panic(fmt.Sprintf("solver: constraint %s references unknown variable %s", c, v))
		}
	}
	id := len(p.infos)
	p.infos = append(p.infos, constraintInfo{c: c, reconsider: 1})
	p.index.add(id, vars)
}

// AddAll registers every constraint in order.
func (p *Problem) AddAll(cs ...constraint.Constraint) {
	for _, c := range cs {
		p.Add(c)
	}
}

// SetObjective sets the linear function Minimize minimizes. A nil objective
// resets it to the constant 0.
func (p *Problem) SetObjective(o *expr.Objective) {
	if o == nil {
		o = expr.NewObjective()
	}
	p.objective = o.Clone()
}

// Objective returns the objective. It must not be modified.
func (p *Problem) Objective() *expr.Objective { return p.objective }

// Assign pins v to x. Propagation is deferred to the next Propagate call.
func (p *Problem) Assign(v domain.Var, x int) domain.Result {
	return p.write(p.store.Assign(v, x))
}

// RestrictToMin raises the lower bound of v.
func (p *Problem) RestrictToMin(v domain.Var, x int) domain.Result {
	return p.write(p.store.RestrictToMin(v, x))
}

// RestrictToMax lowers the upper bound of v.
func (p *Problem) RestrictToMax(v domain.Var, x int) domain.Result {
	return p.write(p.store.RestrictToMax(v, x))
}

// Exclude removes x from the domain of v.
func (p *Problem) Exclude(v domain.Var, x int) domain.Result {
	return p.write(p.store.Exclude(v, x))
}

func (p *Problem) write(r domain.Result) domain.Result {
	if r == domain.Infeasible {
		p.infeasible = true
	}
	return r
}

// Domain returns the current domain of v.
func (p *Problem) Domain(v domain.Var) domain.Domain { return p.store.Get(v) }

// Vars returns every user variable in registration order.
func (p *Problem) Vars() []domain.Var { return p.store.Vars() }

// NumVars returns the number of user variables.
func (p *Problem) NumVars() int { return p.store.Len() - 1 }

// Constraints returns the live (not yet entailed) constraints in id order.
func (p *Problem) Constraints() []constraint.Constraint {
	var out []constraint.Constraint
	for _, info := range p.infos {
		if !info.complete {
			out = append(out, info.c)
		}
	}
	return out
}

// IsInfeasible reports whether propagation has proven the problem has no
// solution. The flag is sticky.
func (p *Problem) IsInfeasible() bool { return p.infeasible }

// IsSolved reports whether every variable is either pinned or referenced by
// no live constraint. A solved problem is never infeasible.
func (p *Problem) IsSolved() bool {
	if p.infeasible {
		return false
	}
	for _, v := range p.store.Vars() {
		if !p.store.Get(v).IsConstant() && p.index.referenced(v) {
			return false
		}
	}
	return true
}

// Value returns the value of v in the current (possibly partial) solution:
// the pinned value, or for a free variable the bound favored by the
// objective.
func (p *Problem) Value(v domain.Var) int {
	d := p.store.Get(v)
	if d.IsConstant() {
		return d.Min()
	}
	if p.objective.Coefficient(v) < 0 {
		return d.Max()
	}
	return d.Min()
}

// Assignment returns Value for every variable, indexed by domain.Var. Index 0
// is the sentinel and always holds 0.
func (p *Problem) Assignment() []int {
	out := make([]int, p.store.Len())
	for i := range out {
		out[i] = p.Value(domain.Var(i))
	}
	return out
}

// ObjectiveValue evaluates the objective at Assignment.
func (p *Problem) ObjectiveValue() float64 {
	return p.objective.Value(p.Value)
}

// ObjectiveBound is the relaxed lower bound of the objective under the
// current domains.
func (p *Problem) ObjectiveBound() float64 {
	return p.objective.LowerBound(p.store)
}

// Stats returns the statistics collected so far by this problem and its
// clones.
func (p *Problem) Stats() Stats { return p.cfg.monitor.Stats() }

// Clone returns an independent copy holding only the live constraints. The
// copy shares the configuration and the Monitor.
func (p *Problem) Clone() *Problem {
	q := &Problem{
		store:      p.store.Clone(),
		objective:  p.objective,
		infeasible: p.infeasible,
		cfg:        p.cfg,
	}
	q.index.grow(q.store.Len())
	for _, info := range p.infos {
		if info.complete {
			continue
		}
		q.index.add(len(q.infos), info.c.Vars())
		q.infos = append(q.infos, info)
	}
	return q
}

// adopt takes over the state of a solved descendant.
func (p *Problem) adopt(q *Problem) {
	p.store = q.store
	p.infos = q.infos
	p.index = q.index
	p.infeasible = q.infeasible
}

func (p *Problem) String() string {
	var b strings.Builder
	for _, v := range p.store.Vars() {
		fmt.Fprintf(&b, "%s ∈ %s\n", v, p.store.Get(v))
	}
	for id, info := range p.infos {
		if !info.complete {
			fmt.Fprintf(&b, "c%d: %s\n", id, info.c)
		}
	}
	if !p.objective.IsZero() {
		fmt.Fprintf(&b, "minimize %s\n", p.objective)
	}
	return b.String()
}
