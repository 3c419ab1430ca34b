package solver

import (
	"math"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
)

// unresolved reports whether v still needs a decision: it is not pinned and
// some live constraint mentions it.
func (p *Problem) unresolved(v domain.Var) bool {
	return !p.store.Get(v).IsConstant() && p.index.referenced(v)
}

// selectVariable picks the next branching variable.
//
// Objective variables come first, ranked by size - |coefficient| so that
// heavily weighted variables with small domains are decided early. Without
// an unresolved objective variable the smallest domain wins, and a binary
// choice is taken immediately. Ties go to the lowest index.
func (p *Problem) selectVariable() (domain.Var, bool) {
	best, found := domain.Zero, false
	bestScore := math.Inf(1)
	for _, t := range p.objective.Terms() {
		if !p.unresolved(t.Var) {
			continue
		}
		score := float64(p.store.Get(t.Var).Size()) - math.Abs(t.Coeff)
		if score < bestScore {
			best, bestScore, found = t.Var, score, true
		}
	}
	if found {
		return best, true
	}

	bestSize := math.MaxInt
	for _, v := range p.store.Vars() {
		if !p.unresolved(v) {
			continue
		}
		size := p.store.Get(v).Size()
		if size == 1 {
			return v, true
		}
		if size < bestSize {
			best, bestSize, found = v, size, true
		}
	}
	return best, found
}

// branchConstraint returns the live constraint with the highest
// decomposition score when that score exceeds 1.
func (p *Problem) branchConstraint() (int, bool) {
	best, bestScore := -1, 1.0
	for id := range p.infos {
		info := &p.infos[id]
		if info.complete {
			continue
		}
		info.score = constraint.DecompositionScore(info.c, p.store)
		if info.score > bestScore {
			best, bestScore = id, info.score
		}
	}
	return best, best >= 0
}

// optionChildren creates one child per option of constraint id. It reports
// false when the constraint has too many options to enumerate.
func (p *Problem) optionChildren(id int) ([]*Problem, bool) {
	opts, ok := constraint.Options(p.infos[id].c, p.store, p.cfg.optionLimit)
	if !ok {
		return nil, false
	}
	children := make([]*Problem, 0, len(opts))
	for _, opt := range opts {
		child := p.Clone()
		if child.apply(opt) {
			children = append(children, child)
		}
	}
	return children, true
}

func (p *Problem) apply(opt constraint.Option) bool {
	for _, a := range opt {
		if p.Assign(a.Var, a.Value) == domain.Infeasible {
			return false
		}
	}
	return true
}

// valueChildren branches on v, largest values first. Domains with more than
// maxBranchValues values are split into an upper and a lower half.
func (p *Problem) valueChildren(v domain.Var) []*Problem {
	d := p.store.Get(v)
	if limit := p.cfg.maxBranchValues; limit > 0 && d.Count() > limit {
		mid := d.Min() + d.Size()/2
		upper, lower := p.Clone(), p.Clone()
		upper.RestrictToMin(v, mid+1)
		lower.RestrictToMax(v, mid)
		return []*Problem{upper, lower}
	}
	children := make([]*Problem, 0, d.Count())
	for x, ok := d.Max(), true; ok; x, ok = d.Prev(x) {
		child := p.Clone()
		child.Assign(v, x)
		children = append(children, child)
	}
	return children
}

// branch expands p into children covering all of its solutions.
func (p *Problem) branch() []*Problem {
	if id, ok := p.branchConstraint(); ok {
		if children, ok := p.optionChildren(id); ok {
			return children
		}
	}
	v, ok := p.selectVariable()
	if !ok {
		return nil
	}
	return p.valueChildren(v)
}
