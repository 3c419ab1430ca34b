package solver

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
)

// NonDivisible records an inequality or disequality that could not be
// rewritten because its coefficient of the pivot is not a multiple of the
// source equality's coefficient.
type NonDivisible struct {
	Var         domain.Var
	Source      string
	Target      string
	SourceCoeff int
	TargetCoeff int
}

func (n NonDivisible) String() string {
	return fmt.Sprintf("%s: %d does not divide %d (%s into %s)", n.Var, n.SourceCoeff, n.TargetCoeff, n.Source, n.Target)
}

// ReduceReport summarizes a Reduce pass.
type ReduceReport struct {
	// Eliminated lists the pivots that now occur in a single live constraint.
	Eliminated []domain.Var
	// Rewritten counts constraint replacements.
	Rewritten int
	// NonDivisible lists the pairs left untouched.
	NonDivisible []NonDivisible
	// Infeasible is set when normalization proved the problem has no solution.
	Infeasible bool
}

// Reduce eliminates variables shared between constraints using the live
// equalities, Gaussian style, without leaving the integers.
//
// Each live equality, in id order, picks a pivot among its variables that
// also occur in another live constraint: fewest memberships, then smallest
// absolute coefficient, then lowest index. The equality is divided by the
// GCD of its coefficients and oriented so the pivot coefficient is positive.
// Other equalities are combined with it Euclid style, target -= ⌊t/s⌋·source
// with the roles swapped until one pivot coefficient is zero; the unimodular
// steps keep the system equivalent. Inequalities, disequalities and the
// equalities already used as a source are only rewritten when s divides t.
//
// Every rewritten constraint is reindexed and scheduled for propagation.
func (p *Problem) Reduce() ReduceReport {
	_, span := tracer.Start(context.Background(), "solver.Reduce")
	defer span.End()

	var report ReduceReport
	if p.infeasible {
		report.Infeasible = true
		return report
	}
	used := make(map[int]bool)
	eliminated := make(map[domain.Var]bool)
	for id := 0; id < len(p.infos); id++ {
		if used[id] || p.infos[id].complete || p.infos[id].c.Kind() != constraint.KindEqual {
			continue
		}
		v, ok := p.pivot(id, eliminated)
		if !ok {
			continue
		}
		if !p.normalize(id, v, &report) {
			report.Infeasible = true
			break
		}
		src := id
		for _, tid := range p.index.of(v) {
			if tid != src && !used[tid] && p.infos[tid].c.Kind() == constraint.KindEqual {
				src = p.combine(src, tid, v, &report)
			}
		}
		clean := true
		for _, tid := range p.index.of(v) {
			if tid == src {
				continue
			}
			if !p.eliminate(src, tid, v, &report) {
				clean = false
			}
		}
		used[src] = true
		if clean {
			eliminated[v] = true
			report.Eliminated = append(report.Eliminated, v)
		}
	}

	p.cfg.monitor.recordReduce(len(report.Eliminated), report.Rewritten)
	span.SetAttributes(
		attribute.Int("reduce.eliminated", len(report.Eliminated)),
		attribute.Int("reduce.rewritten", report.Rewritten),
		attribute.Int("reduce.non_divisible", len(report.NonDivisible)),
	)
	p.cfg.logger.Debug("reduce finished",
		"eliminated", len(report.Eliminated),
		"rewritten", report.Rewritten,
		"non_divisible", len(report.NonDivisible),
		"infeasible", report.Infeasible)
	return report
}

// pivot picks the elimination variable of equality id.
func (p *Problem) pivot(id int, eliminated map[domain.Var]bool) (domain.Var, bool) {
	e := p.linear(id)
	best, found := domain.Zero, false
	bestRefs, bestCoeff := 0, 0
	for _, t := range e.Terms() {
		refs := len(p.index.of(t.Var))
		if eliminated[t.Var] || refs < 2 {
			continue
		}
		coeff := abs(t.Coeff)
		if !found || refs < bestRefs || (refs == bestRefs && coeff < bestCoeff) {
			best, bestRefs, bestCoeff, found = t.Var, refs, coeff, true
		}
	}
	return best, found
}

// normalize divides equality id by its coefficient GCD and makes the
// coefficient of v positive. It reports false when the GCD does not divide
// the constant, which marks the problem infeasible.
func (p *Problem) normalize(id int, v domain.Var, report *ReduceReport) bool {
	e := p.linear(id)
	n := e
	if g := expr.GCD(e); g > 1 {
		if e.Constant()%g != 0 {
			p.infeasible = true
			return false
		}
		n = expr.DivideExact(e, g)
	}
	if n.Coefficient(v) < 0 {
		n = expr.Negate(n)
	}
	if !expr.Equal(n, e) {
		p.rewrite(id, n, report)
	}
	return true
}

// combine eliminates v between the equalities src and tgt and returns the id
// of the one that still holds v.
func (p *Problem) combine(src, tgt int, v domain.Var, report *ReduceReport) int {
	se, te := p.linear(src), p.linear(tgt)
	for te.Coefficient(v) != 0 {
		te = substitute(te, se, v)
		if te.Coefficient(v) != 0 {
			se, te = te, se
			src, tgt = tgt, src
		}
	}
	if !expr.Equal(se, p.linear(src)) {
		p.rewrite(src, se, report)
	}
	if !expr.Equal(te, p.linear(tgt)) {
		p.rewrite(tgt, te, report)
	}
	return src
}

// eliminate rewrites a target when the source coefficient divides its own.
// Distinct targets are never rewritten.
func (p *Problem) eliminate(src, tgt int, v domain.Var, report *ReduceReport) bool {
	if _, ok := p.infos[tgt].c.(constraint.Linear); !ok {
		return false
	}
	se, te := p.linear(src), p.linear(tgt)
	s, t := se.Coefficient(v), te.Coefficient(v)
	if t%s != 0 {
		report.NonDivisible = append(report.NonDivisible, NonDivisible{
			Var:         v,
			Source:      p.infos[src].c.String(),
			Target:      p.infos[tgt].c.String(),
			SourceCoeff: s,
			TargetCoeff: t,
		})
		return false
	}
	p.rewrite(tgt, substitute(te, se, v), report)
	return true
}

// substitute subtracts ⌊t/s⌋ times source from target, where s and t are the
// coefficients of v. Both must reference v.
func substitute(target, source expr.Expr, v domain.Var) expr.Expr {
	s, t := source.Coefficient(v), target.Coefficient(v)
	if s == 0 || t == 0 {
		panic(fmt.Sprintf("solver: cannot substitute %s: source %q, target %q", v, source, target))
	}
	q := t / s
	if (t%s != 0) && ((t < 0) != (s < 0)) {
		q--
	}
	return expr.Add(target, source, -q)
}

// linear returns the expression of constraint id, which must be linear.
func (p *Problem) linear(id int) expr.Expr {
	lc, ok := p.infos[id].c.(constraint.Linear)
	if !ok {
		panic(fmt.Sprintf("solver: constraint %s is not linear", p.infos[id].c))
	}
	return lc.Expr()
}

// rewrite replaces the expression of constraint id, keeping its kind, and
// reindexes it.
func (p *Problem) rewrite(id int, e expr.Expr, report *ReduceReport) {
	info := &p.infos[id]
	lc := info.c.(constraint.Linear)
	p.index.remove(id, lc.Vars())
	info.c = constraint.Rewrite(lc, e)
	p.index.add(id, info.c.Vars())
	if info.reconsider == 0 {
		info.reconsider = 1
	}
	report.Rewritten++
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
