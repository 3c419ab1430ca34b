package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/intsolve/pkg/domain"
)

var tracer = otel.Tracer("github.com/gitrdm/intsolve/pkg/solver")

// FindFeasible searches depth-first for any solution.
//
// Every node propagates, then branches on one variable (see selectVariable),
// trying its values from largest to smallest on independent clones. The
// search is deterministic. On success the problem takes over the solved
// state and FindFeasible returns true. When the search space is exhausted
// the problem is marked infeasible and FindFeasible returns false.
//
// Cancellation of ctx, the time limit and the node limit stop the search
// early with false and a non-nil error. The problem then keeps the domains
// of its root propagation.
func (p *Problem) FindFeasible(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "solver.FindFeasible",
		trace.WithAttributes(
			attribute.Int("problem.vars", p.NumVars()),
			attribute.Int("problem.constraints", len(p.infos)),
		))
	defer span.End()

	if p.cfg.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.timeLimit)
		defer cancel()
	}
	if p.cfg.reduce {
		p.Reduce()
	}

	start := time.Now()
	d := &dfs{ctx: ctx, limit: p.cfg.nodeLimit, monitor: p.cfg.monitor}
	solved, err := d.search(p, 0)
	p.cfg.monitor.recordSearch(time.Since(start))
	span.SetAttributes(attribute.Int("search.nodes", d.nodes))

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.cfg.logger.Info("feasibility search stopped", "nodes", d.nodes, "error", err)
		if errors.Is(err, ErrSearchLimitReached) {
			return false, err
		}
		return false, fmt.Errorf("find feasible: %w", err)
	case solved == nil:
		p.infeasible = true
		p.cfg.logger.Info("problem is infeasible", "nodes", d.nodes)
		return false, nil
	default:
		p.adopt(solved)
		p.cfg.logger.Info("feasible solution found", "nodes", d.nodes)
		return true, nil
	}
}

type dfs struct {
	ctx     context.Context
	limit   int
	nodes   int
	monitor *Monitor
}

// search returns a solved descendant of p, or nil when p has no solution.
// p itself is modified by propagation.
func (d *dfs) search(p *Problem, depth int) (*Problem, error) {
	if err := d.ctx.Err(); err != nil {
		return nil, err
	}
	if d.limit > 0 && d.nodes >= d.limit {
		return nil, ErrSearchLimitReached
	}
	d.nodes++
	d.monitor.recordNode(depth)

	if p.Propagate() == domain.Infeasible {
		return nil, nil
	}
	if p.IsSolved() {
		d.monitor.recordSolution()
		return p, nil
	}
	v, ok := p.selectVariable()
	if !ok {
		return nil, nil
	}
	dom := p.store.Get(v)
	for x, ok := dom.Max(), true; ok; x, ok = dom.Prev(x) {
		child := p.Clone()
		child.Assign(v, x)
		solved, err := d.search(child, depth+1)
		if err != nil || solved != nil {
			return solved, err
		}
		d.monitor.recordBacktrack()
	}
	return nil, nil
}
